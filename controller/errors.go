package controller

import "errors"

var (
	// ErrNoMoves indicates a motion request without move steps.
	ErrNoMoves = errors.New("no move steps")

	// ErrUnknownPreset indicates a tool or base name missing from the preset registry.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrConfigNil indicates a nil configuration.
	ErrConfigNil = errors.New("controller config is nil")
)
