package motion

import "errors"

var (
	// ErrUnknownMoveType indicates a move type name outside MoveTypes.
	ErrUnknownMoveType = errors.New("unknown move type")

	// ErrUnknownDataFormat indicates a data format name outside DataFormats.
	ErrUnknownDataFormat = errors.New("unknown data format")

	// ErrIncompatibleFormat indicates a data format the move type doesn't accept.
	ErrIncompatibleFormat = errors.New("data format not supported by move type")

	// ErrInvalidParameter indicates an out-of-range move or query parameter.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoMoves indicates a motion script without any move step.
	ErrNoMoves = errors.New("no move steps")
)
