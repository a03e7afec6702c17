package graph

import "errors"

var (
	ErrToolNotRegistered = errors.New("tool not registered")
	ErrGraphNotFound     = errors.New("graph not found")
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidGraph      = errors.New("invalid graph definition")

	// ErrMaxStepsExceeded is recorded on runs that exhaust the step budget
	// with a next node still pending.
	ErrMaxStepsExceeded = errors.New("max steps exceeded (possible infinite loop)")
)
