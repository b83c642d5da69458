package api

import (
	"errors"
	"fmt"

	"github.com/unisport/kursfinder/internal/adapters/repository"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthDisabled = errors.New("authentication disabled")
	ErrRateLimited  = errors.New("rate limited")
)

// Request-shape causes shared by the path-parameter handlers.
var (
	errOfferID    = errors.New("offer id must be a positive integer")
	errScoreRange = errors.New("score must be between 1 and 5")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and keeps the cause in the message.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, cause)
}

// Wrap tags an arbitrary error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// isNotFound translates storage-layer not-found conditions into 404 responses.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
