package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound        = errors.New("item not found")
	ErrDuplicateItem   = errors.New("conflict: item with this id already exists")
	ErrInvalidKind     = errors.New("invalid kind: must be movie, series, season, episode, or audio")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidIndex    = errors.New("index number must not be negative")
	ErrInvalidYear     = errors.New("production year must not be negative")
	ErrNoProviderIDs   = errors.New("at least one provider id is required")
	ErrEmptyProviderID = errors.New("provider id keys and values must not be empty")
)
