package models

import "errors"

var (
	// ErrUnauthorized is returned when a caller requests an entity outside its entitled set.
	ErrUnauthorized = errors.New("entity not authorized for user")

	// ErrNotFound is returned when a requested entity or series does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrInvalidRequest is returned when request parameters are inconsistent,
// such as an individual view over several entities.
var ErrInvalidRequest = errors.New("invalid request")
