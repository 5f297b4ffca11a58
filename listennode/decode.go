package listennode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-tmcomm/envelope"
)

// Decode decodes one listen node message.
//
// The message must start with '$' and end with '*' followed by two hex digits; a
// trailing CRLF is accepted. Decode never panics on malformed input, it returns an error
// wrapping one of the envelope errors or ErrUnknownHeader/ErrInvalidErrorCode.
func Decode(raw string) (*Frame, error) {
	token, data, err := envelope.Open(raw)
	if err != nil {
		return nil, err
	}

	header, ok := ParseHeader(token)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHeader, token)
	}

	if header == CommError {
		code, err := strconv.ParseUint(strings.TrimSpace(data), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidErrorCode, data)
		}

		return &Frame{header: CommError, payload: data, errCode: ErrorCode(code)}, nil
	}

	scriptID, payload, _ := strings.Cut(data, envelope.Separator)

	return &Frame{header: header, scriptID: scriptID, payload: payload}, nil
}
