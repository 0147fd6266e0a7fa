package services

import "errors"

// Analysis service errors
var (
	ErrTooManySamples = errors.New("too many samples")
	ErrNoValues       = errors.New("no values supplied")
)
