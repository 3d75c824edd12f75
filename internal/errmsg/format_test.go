//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpLoad,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpLoad,
			err:      errors.New("file not found"),
			expected: "Failed to load sound: file not found",
		},
		{
			name:     "decode operation",
			op:       OpDecode,
			err:      errors.New("bad frame header"),
			expected: "Failed to decode sound data: bad frame header",
		},
		{
			name:     "engine operation",
			op:       OpEngineInit,
			err:      errors.New("no audio device"),
			expected: "Failed to initialize audio engine: no audio device",
		},
		{
			name:     "playback operation",
			op:       OpPlaybackStart,
			err:      errors.New("source not loaded"),
			expected: "Failed to start playback: source not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.op, tt.err); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpLoad,
			context:  "clip.wav",
			err:      nil,
			expected: "",
		},
		{
			name:     "includes context",
			op:       OpLoad,
			context:  "clip.wav",
			err:      errors.New("timeout"),
			expected: "Failed to load sound 'clip.wav': timeout",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpLoad,
			context:  "",
			err:      errors.New("timeout"),
			expected: "Failed to load sound: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWith(tt.op, tt.context, tt.err); got != tt.expected {
				t.Errorf("FormatWith() = %q, want %q", got, tt.expected)
			}
		})
	}
}
