// Package envelope implements the textual envelope shared by the TM robot listen node
// (command) channel and the ethernet slave (telemetry) channel:
//
//	$<HEADER>,<LENGTH>,<DATA>,*<CS>\r\n
//
// LENGTH is the byte length of DATA and CS is the XOR of every byte of
// "<HEADER>,<LENGTH>,<DATA>," rendered as two uppercase hex digits.
package envelope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	StartByte    = "$"
	Separator    = ","
	ChecksumSign = "*"
	EndBytes     = "\r\n"
)

var (
	// ErrMalformed indicates the input doesn't start with '$' or doesn't end with '*' followed by two hex digits.
	ErrMalformed = errors.New("malformed envelope")

	// ErrLengthMismatch indicates the length field doesn't match the byte length of the data segment.
	ErrLengthMismatch = errors.New("envelope length field mismatch")

	// ErrChecksumMismatch indicates the checksum field doesn't match the computed XOR checksum.
	ErrChecksumMismatch = errors.New("envelope checksum mismatch")
)

// Checksum returns the XOR of every byte of s.
func Checksum(s string) byte {
	var cs byte
	for i := 0; i < len(s); i++ {
		cs ^= s[i]
	}

	return cs
}

// Seal wraps data with header into a complete wire message, CRLF included.
func Seal(header string, data string) []byte {
	body := header + Separator + strconv.Itoa(len(data)) + Separator + data + Separator

	var sb strings.Builder
	sb.Grow(len(body) + 6)
	sb.WriteString(StartByte)
	sb.WriteString(body)
	sb.WriteString(ChecksumSign)
	sb.WriteString(fmt.Sprintf("%02X", Checksum(body)))
	sb.WriteString(EndBytes)

	return []byte(sb.String())
}

// Open validates a wire message and returns its header token and data segment.
//
// Trailing CR/LF characters are ignored. The length field and the checksum are
// verified exactly.
func Open(raw string) (header string, data string, err error) {
	msg := strings.TrimRight(raw, "\r\n")

	n := len(msg)
	if n < 4 || msg[0] != '$' || msg[n-3] != '*' || !isHex(msg[n-2]) || !isHex(msg[n-1]) {
		return "", "", ErrMalformed
	}

	// "<HEADER>,<LENGTH>,<DATA>,"
	body := msg[1 : n-3]
	if !strings.HasSuffix(body, Separator) {
		return "", "", fmt.Errorf("%w: missing separator before checksum", ErrMalformed)
	}

	headerEnd := strings.Index(body, Separator)
	if headerEnd <= 0 {
		return "", "", fmt.Errorf("%w: missing header", ErrMalformed)
	}

	lengthEnd := strings.Index(body[headerEnd+1:], Separator)
	if lengthEnd < 0 {
		return "", "", fmt.Errorf("%w: missing length field", ErrMalformed)
	}
	lengthEnd += headerEnd + 1

	header = body[:headerEnd]
	length, convErr := strconv.Atoi(body[headerEnd+1 : lengthEnd])
	if convErr != nil || length < 0 {
		return "", "", fmt.Errorf("%w: invalid length field %q", ErrMalformed, body[headerEnd+1:lengthEnd])
	}

	if lengthEnd+1 > len(body)-1 {
		data = ""
	} else {
		data = body[lengthEnd+1 : len(body)-1]
	}

	if length != len(data) {
		return "", "", fmt.Errorf("%w: field %d, actual %d", ErrLengthMismatch, length, len(data))
	}

	want, _ := strconv.ParseUint(msg[n-2:], 16, 8)
	if got := Checksum(body); byte(want) != got {
		return "", "", fmt.Errorf("%w: field %02X, computed %02X", ErrChecksumMismatch, want, got)
	}

	return header, data, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
