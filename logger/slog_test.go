package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSONOutput(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.With("channel", "command").Info("frame sent", "id", "base")

	var entry map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &entry))
	require.Equal("frame sent", entry["msg"])
	require.Equal("command", entry["channel"])
	require.Equal("base", entry["id"])
	require.Contains(entry, "ts")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, ErrorLevel, false)
	require.Equal(ErrorLevel, l.Level())

	l.SetLevel(DebugLevel)
	require.Equal(DebugLevel, l.Level())

	child := l.With("k", "v")
	require.Equal(DebugLevel, child.Level())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
