package listennode

import "errors"

var (
	// ErrUnknownHeader indicates the header token is not TMSCT, TMSTA or CPERR.
	ErrUnknownHeader = errors.New("unknown listen node header")

	// ErrInvalidScriptID indicates the script ID is empty or contains a reserved envelope character.
	ErrInvalidScriptID = errors.New("invalid script ID")

	// ErrInvalidErrorCode indicates the CPERR frame carries a non-hexadecimal error code.
	ErrInvalidErrorCode = errors.New("invalid communication error code")
)
