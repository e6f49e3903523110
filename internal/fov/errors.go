package fov

import "errors"

// Query validation failures. They are fatal to the current query only and are
// always returned wrapped with context; match them with errors.Is.
var (
	ErrInvalidGrid     = errors.New("invalid grid")
	ErrInvalidDistance = errors.New("invalid max distance")
	ErrOutOfBounds     = errors.New("coordinate out of bounds")
)
