package repository

import "errors"

// Sentinel kinds for catalog store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRating = errors.New("rating outside 1..5")
)
