// Package ethslave implements the frame codec of the TM robot ethernet slave (telemetry) channel.
//
// The robot periodically broadcasts its state as TMSVR frames:
//
//	$TMSVR,<len>,<TransactionID>,<Mode>,<content>,*<CS>\r\n
//
// In string mode the content is a list of CRLF separated key=value lines, in JSON mode it is
// an array of {"Item": key, "Value": value} objects.
package ethslave

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-tmcomm/envelope"
)

// Port is the TCP port of the ethernet slave in the reference deployment.
const Port = 5891

// HeaderToken is the envelope header of telemetry frames.
const HeaderToken = "TMSVR"

// Well-known telemetry items consumed by the robot state cache.
const (
	KeyBaseName      = "Base_Name"
	KeyToolName      = "TCP_Name"
	KeyToolValue     = "TCP_Value"
	KeyCoordBaseTool = "Coord_Base_Tool"
	KeyJointAngle    = "Joint_Angle"
)

var (
	// ErrNotTelemetry indicates the envelope header is not TMSVR.
	ErrNotTelemetry = errors.New("not a telemetry frame")

	// ErrUnsupportedMode indicates the frame content mode can't be decoded.
	ErrUnsupportedMode = errors.New("unsupported telemetry mode")

	// ErrMalformedContent indicates the content doesn't follow its mode's syntax.
	ErrMalformedContent = errors.New("malformed telemetry content")
)

// Mode is the content encoding of a telemetry frame.
type Mode int

const (
	ModeBinary Mode = 0
	ModeString Mode = 1
	ModeJSON   Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeString:
		return "string"
	case ModeJSON:
		return "json"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Item is one key=value pair of a telemetry frame.
type Item struct {
	Key   string
	Value string
}

// Frame is a decoded telemetry frame. Item order follows the wire.
type Frame struct {
	TransactionID string
	Mode          Mode
	Items         []Item
}

// NewFrame creates a telemetry frame.
func NewFrame(transactionID string, mode Mode, items ...Item) *Frame {
	return &Frame{TransactionID: transactionID, Mode: mode, Items: items}
}

// TransactionIndex returns the numeric transaction ID when it is in [0, 9], -1 otherwise.
func (f *Frame) TransactionIndex() int {
	idx, err := strconv.Atoi(f.TransactionID)
	if err != nil || idx < 0 || idx > 9 {
		return -1
	}

	return idx
}

// Value returns the value of key, or an empty string when the frame doesn't carry it.
func (f *Frame) Value(key string) string {
	v, _ := f.Lookup(key)
	return v
}

// Lookup returns the value of key and whether the frame carries it.
func (f *Frame) Lookup(key string) (string, bool) {
	for _, item := range f.Items {
		if item.Key == key {
			return item.Value, true
		}
	}

	return "", false
}

// ToBytes encodes the frame to its wire form.
func (f *Frame) ToBytes() ([]byte, error) {
	var content string
	switch f.Mode {
	case ModeString:
		lines := make([]string, 0, len(f.Items))
		for _, item := range f.Items {
			lines = append(lines, item.Key+"="+item.Value)
		}
		content = strings.Join(lines, "\r\n")

	case ModeJSON:
		objs := make([]jsonItem, 0, len(f.Items))
		for _, item := range f.Items {
			raw, err := json.Marshal(item.Value)
			if err != nil {
				return nil, err
			}
			objs = append(objs, jsonItem{Item: item.Key, Value: raw})
		}
		buf, err := json.Marshal(objs)
		if err != nil {
			return nil, err
		}
		content = string(buf)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, f.Mode)
	}

	data := f.TransactionID + envelope.Separator + strconv.Itoa(int(f.Mode)) + envelope.Separator + content

	return envelope.Seal(HeaderToken, data), nil
}

// Decode decodes one telemetry message.
func Decode(raw string) (*Frame, error) {
	token, data, err := envelope.Open(raw)
	if err != nil {
		return nil, err
	}

	if token != HeaderToken {
		return nil, fmt.Errorf("%w: %q", ErrNotTelemetry, token)
	}

	txID, rest, ok := strings.Cut(data, envelope.Separator)
	if !ok {
		return nil, fmt.Errorf("%w: missing mode", ErrMalformedContent)
	}

	modeText, content, _ := strings.Cut(rest, envelope.Separator)
	modeNum, err := strconv.Atoi(modeText)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mode %q", ErrMalformedContent, modeText)
	}

	frame := &Frame{TransactionID: txID, Mode: Mode(modeNum)}

	switch frame.Mode {
	case ModeString:
		frame.Items = decodeString(content)
	case ModeJSON:
		if frame.Items, err = decodeJSON(content); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, frame.Mode)
	}

	return frame, nil
}

func decodeString(content string) []Item {
	lines := strings.FieldsFunc(content, func(r rune) bool { return r == '\r' || r == '\n' })

	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		items = append(items, Item{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}

	return items
}

type jsonItem struct {
	Item  string          `json:"Item"`
	Value json.RawMessage `json:"Value"`
}

func decodeJSON(content string) ([]Item, error) {
	var objs []jsonItem
	if err := json.Unmarshal([]byte(content), &objs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}

	items := make([]Item, 0, len(objs))
	for _, obj := range objs {
		items = append(items, Item{Key: obj.Item, Value: jsonValueText(obj.Value)})
	}

	return items, nil
}

// jsonValueText renders a JSON value the way string mode would carry it: strings
// unquoted, arrays as {a,b,c}, other scalars verbatim.
func jsonValueText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, elem := range arr {
			parts = append(parts, jsonValueText(elem))
		}
		return "{" + strings.Join(parts, ",") + "}"
	}

	return strings.TrimSpace(string(raw))
}
