package listennode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-tmcomm/envelope"
)

// Header identifies the kind of listen node frame.
type Header uint8

const (
	// ScriptCommand is an external script request or its response (TMSCT).
	ScriptCommand Header = iota
	// StatusQuery is a status request or its response (TMSTA).
	StatusQuery
	// CommError is a communication error reported by the robot (CPERR).
	CommError
)

// Port is the TCP port of the listen node in the reference deployment.
const Port = 5890

// DefaultScriptID is the script ID used for scripts that don't need a dedicated tag.
const DefaultScriptID = "local"

// String returns the wire token of the header.
func (h Header) String() string {
	switch h {
	case ScriptCommand:
		return "TMSCT"
	case StatusQuery:
		return "TMSTA"
	case CommError:
		return "CPERR"
	default:
		return "unknown"
	}
}

// ParseHeader converts a wire token into a Header.
func ParseHeader(token string) (Header, bool) {
	switch token {
	case "TMSCT":
		return ScriptCommand, true
	case "TMSTA":
		return StatusQuery, true
	case "CPERR":
		return CommError, true
	default:
		return 0, false
	}
}

// ErrorCode is the error code carried by a CPERR frame.
type ErrorCode uint8

const (
	ErrCodeOK              ErrorCode = 0x00
	ErrCodePacket          ErrorCode = 0x01
	ErrCodeChecksum        ErrorCode = 0x02
	ErrCodeHeader          ErrorCode = 0x03
	ErrCodePacketData      ErrorCode = 0x04
	ErrCodeNotInListenNode ErrorCode = 0xF1
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodePacket:
		return "packet error"
	case ErrCodeChecksum:
		return "checksum error"
	case ErrCodeHeader:
		return "header error"
	case ErrCodePacketData:
		return "packet data error"
	case ErrCodeNotInListenNode:
		return "not in listen node"
	default:
		return fmt.Sprintf("unknown error 0x%02X", uint8(c))
	}
}

// Frame is one listen node frame.
type Frame struct {
	header   Header
	scriptID string
	payload  string
	errCode  ErrorCode
}

// NewScriptFrame creates a TMSCT frame carrying script, tagged with scriptID.
func NewScriptFrame(scriptID string, script string) (*Frame, error) {
	if err := validateScriptID(scriptID); err != nil {
		return nil, err
	}

	return &Frame{header: ScriptCommand, scriptID: scriptID, payload: script}, nil
}

// NewStatusFrame creates a TMSTA frame for the status sub-command subCmd.
// content may be empty.
func NewStatusFrame(subCmd string, content string) (*Frame, error) {
	if err := validateScriptID(subCmd); err != nil {
		return nil, err
	}

	return &Frame{header: StatusQuery, scriptID: subCmd, payload: content}, nil
}

// NewCommErrorFrame creates a CPERR frame with the given error code.
func NewCommErrorFrame(code ErrorCode) *Frame {
	return &Frame{header: CommError, payload: fmt.Sprintf("%02X", uint8(code)), errCode: code}
}

// Header returns the frame header.
func (f *Frame) Header() Header { return f.header }

// ScriptID returns the correlation tag of the frame. It is empty for CPERR frames.
func (f *Frame) ScriptID() string { return f.scriptID }

// Payload returns the script or response text. For CPERR frames it is the error code text.
func (f *Frame) Payload() string { return f.payload }

// ErrorCode returns the error code of a CPERR frame, ErrCodeOK otherwise.
func (f *Frame) ErrorCode() ErrorCode { return f.errCode }

// Data returns the data segment of the envelope.
func (f *Frame) Data() string {
	switch {
	case f.header == CommError:
		return f.payload
	case f.payload == "":
		return f.scriptID
	default:
		return f.scriptID + envelope.Separator + f.payload
	}
}

// Length returns the value of the length field, the byte length of Data.
func (f *Frame) Length() int {
	return len(f.Data())
}

// Checksum returns the XOR checksum of the frame.
func (f *Frame) Checksum() byte {
	return envelope.Checksum(f.header.String() + envelope.Separator + strconv.Itoa(f.Length()) +
		envelope.Separator + f.Data() + envelope.Separator)
}

// ToBytes encodes the frame to its wire form, CRLF included.
func (f *Frame) ToBytes() []byte {
	return envelope.Seal(f.header.String(), f.Data())
}

// String returns the wire form without the trailing CRLF, for logging.
func (f *Frame) String() string {
	return strings.TrimRight(string(f.ToBytes()), "\r\n")
}

func validateScriptID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidScriptID)
	}
	if strings.ContainsAny(id, ",*$\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidScriptID, id)
	}

	return nil
}
