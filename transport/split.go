package transport

import (
	"bytes"
	"strconv"
)

var crlf = []byte("\r\n")

// ScanCRLF is a bufio.SplitFunc that splits on "\r\n". The returned tokens exclude
// the delimiter; empty tokens are returned as well.
func ScanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, crlf); i >= 0 {
		return i + len(crlf), data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// ScanEnvelope is a bufio.SplitFunc for "$HDR,LEN,DATA,*CS\r\n" messages whose data
// may contain CRLF, as telemetry frames in string mode do.
//
// Bytes before the next '$' are discarded. The end of a message is located through
// its length field; when the length field is unusable the first "*XX\r\n" marker ends
// the message instead. The returned tokens exclude the trailing CRLF.
func ScanEnvelope(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.IndexByte(data, '$')
	if start < 0 {
		// nothing but garbage
		return len(data), nil, nil
	}

	msg := data[start:]
	if end, ok := envelopeEnd(msg); ok {
		if end <= len(msg) {
			return start + end, msg[:end-len(crlf)], nil
		}

		if !atEOF {
			return start, nil, nil
		}
	}

	if end := markerEnd(msg); end > 0 {
		return start + end, msg[:end-len(crlf)], nil
	}

	if atEOF && len(msg) > 0 {
		return len(data), msg, nil
	}

	return start, nil, nil
}

// envelopeEnd returns the total size of the message at the head of msg computed from its
// length field, and false when the length field is missing, invalid, or the computed
// end doesn't carry the checksum marker.
func envelopeEnd(msg []byte) (int, bool) {
	hdrEnd := bytes.IndexByte(msg, ',')
	if hdrEnd < 0 {
		return 0, false
	}

	lenEnd := bytes.IndexByte(msg[hdrEnd+1:], ',')
	if lenEnd < 0 {
		return 0, false
	}
	lenEnd += hdrEnd + 1

	n, err := strconv.Atoi(string(msg[hdrEnd+1 : lenEnd]))
	if err != nil || n < 0 {
		return 0, false
	}

	// data, ",*XX", CRLF
	end := lenEnd + 1 + n + 4 + len(crlf)
	if end > len(msg) {
		return end, true
	}

	tail := msg[end-6 : end]
	if tail[0] != ',' || tail[1] != '*' || !isHexByte(tail[2]) || !isHexByte(tail[3]) || tail[4] != '\r' || tail[5] != '\n' {
		return 0, false
	}

	return end, true
}

// markerEnd returns the end offset of the first "*XX\r\n" marker in msg, or -1.
func markerEnd(msg []byte) int {
	for i := 0; i+4 < len(msg); i++ {
		if msg[i] == '*' && isHexByte(msg[i+1]) && isHexByte(msg[i+2]) && msg[i+3] == '\r' && msg[i+4] == '\n' {
			return i + 5
		}
	}

	return -1
}

func isHexByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}
