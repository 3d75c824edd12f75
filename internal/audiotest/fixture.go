// Package audiotest generates small audio fixtures for tests.
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteSineWAV writes a mono 16-bit PCM sine tone into a temp dir owned by
// the test and returns its path.
func WriteSineWAV(t *testing.T, name string, freq float64, sampleRate int, d time.Duration) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	n := int(float64(sampleRate) * d.Seconds())
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, n),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		phase := 2 * math.Pi * freq * float64(i) / float64(sampleRate)
		buf.Data[i] = int(math.Sin(phase) * 0.3 * math.MaxInt16)
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return path
}

// WriteJunk writes non-audio bytes under the given name, for decode
// failure tests.
func WriteJunk(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("this is not audio data at all"), 0o644); err != nil {
		t.Fatalf("write junk fixture: %v", err)
	}
	return path
}
