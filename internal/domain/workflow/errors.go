package workflow

import "errors"

var (
	// ErrInvalidState is returned when a raw state string cannot be parsed
	// against the bound service definition
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTransition is returned when a requested edge is not in the graph
	ErrInvalidTransition = errors.New("invalid state transition")
)
