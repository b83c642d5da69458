package scrape

import (
	"context"
	"testing"
	"time"
)

func TestJobQueueBasicOperations(t *testing.T) {
	q := NewJobQueue(2)
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job := Job{Name: "Yoga", URL: "https://sport.example/_Yoga.html"}
	if !q.Enqueue(ctx, job) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	jobs := q.Dequeue(ctx)
	got := <-jobs
	if got.Name != "Yoga" {
		t.Errorf("expected Yoga, got %q", got.Name)
	}
}

func TestJobQueueCapacity(t *testing.T) {
	q := NewJobQueue(2)
	ctx := context.Background()

	if !q.Enqueue(ctx, Job{Name: "a"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, Job{Name: "b"}) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, Job{Name: "c"}) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestJobQueueClose(t *testing.T) {
	q := NewJobQueue(2)
	ctx := context.Background()

	if !q.Enqueue(ctx, Job{Name: "a"}) {
		t.Error("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, Job{Name: "b"}) {
		t.Error("expected enqueue to fail after close")
	}
	// Closing twice is fine
	if err := q.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	// Queued jobs still drain, then the channel closes
	jobs := q.Dequeue(ctx)
	select {
	case got, ok := <-jobs:
		if !ok || got.Name != "a" {
			t.Errorf("expected queued job a, got %v ok=%v", got, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued job")
	}
	select {
	case _, ok := <-jobs:
		if ok {
			t.Error("expected channel to close after drain")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestJobQueueContextCancel(t *testing.T) {
	q := NewJobQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill so the select cannot take the send path
	if !q.Enqueue(context.Background(), Job{Name: "a"}) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, Job{Name: "b"}) {
		t.Error("expected enqueue to fail with cancelled context")
	}
}
