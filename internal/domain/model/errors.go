package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidEnum    = errors.New("invalid category value")
	ErrUnknownFeature = errors.New("unknown feature")
	ErrBadTimeOfDay   = errors.New("invalid time of day")
	ErrBadCriteria    = errors.New("invalid criteria")
)
