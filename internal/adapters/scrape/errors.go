package scrape

import "errors"

// Sentinel kinds for importer errors.
var (
	ErrBadIndex   = errors.New("unusable index page")
	ErrBadPage    = errors.New("unusable offer page")
	ErrBadStatus  = errors.New("unexpected http status")
	ErrNoProgress = errors.New("no page could be processed")
)
