package loader

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Resource is a fully decoded, in-memory audio clip.
type Resource struct {
	Source string
	Buffer *beep.Buffer
	Format beep.Format
	Meta   Metadata
}

// Metadata holds the tags read from the source, when present.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Duration returns the total length of the clip.
func (r *Resource) Duration() time.Duration {
	return r.Format.SampleRate.D(r.Buffer.Len())
}

// Streamer returns a fresh seekable streamer over the whole clip. Every
// playback attempt must take its own; streamers are not shared.
func (r *Resource) Streamer() beep.StreamSeeker {
	return r.Buffer.Streamer(0, r.Buffer.Len())
}

// decode turns raw transferred bytes into a buffered resource. The codec is
// chosen by file extension.
func decode(src string, raw []byte) (*Resource, error) {
	r := &readSeekNopCloser{Reader: bytes.NewReader(raw)}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext := sourceExt(src); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(r)
	case ".flac":
		streamer, format, err = flac.Decode(r)
	case ".wav":
		streamer, format, err = wav.Decode(r)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported format: %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	streamer.Close()

	res := &Resource{
		Source: src,
		Buffer: buf,
		Format: format,
	}
	if m, err := tag.ReadFrom(bytes.NewReader(raw)); err == nil {
		res.Meta = Metadata{
			Title:  m.Title(),
			Artist: m.Artist(),
			Album:  m.Album(),
		}
	}
	return res, nil
}

// readSeekNopCloser adapts an in-memory reader to the beep decoders, which
// variously want Read, Seek and Close.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (*readSeekNopCloser) Close() error { return nil }
