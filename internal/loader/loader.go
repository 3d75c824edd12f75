// Package loader turns a source locator (file path or http(s) URL) into a
// decoded, playable resource, reporting load progress along the way.
//
// Loads requested before the playback engine is initialized are queued and
// replayed in submission order when EngineReady is called.
package loader

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chime-audio/chime/internal/event"
)

// Event names emitted by the Loader.
const (
	EventProgress  = "progress"
	EventFileLoad  = "fileload"
	EventFileError = "fileerror"
)

// Progress is the payload of a "progress" event.
type Progress struct {
	Source   string
	Loaded   int64
	Total    int64
	Fraction float64 // Loaded/Total, in [0,1]
}

// LoadError is the payload of a "fileerror" event.
type LoadError struct {
	Source string
	Err    error
}

const progressChunk = 32 * 1024

// Loader fetches and decodes audio sources. Each source reaches exactly one
// terminal outcome per Load: a "fileload" event with the decoded resource,
// or a "fileerror" event. A decode failure after a complete transfer is a
// load failure like any transport error.
type Loader struct {
	*event.Dispatcher

	engineReady bool
	pending     []string
	resources   map[string]*Resource

	client *http.Client
	log    *zap.SugaredLogger
}

// New creates a loader. The engine is assumed not ready until EngineReady
// is called.
func New(log *zap.SugaredLogger) *Loader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loader{
		Dispatcher: event.NewDispatcher(),
		resources:  make(map[string]*Resource),
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// EngineReady marks the engine as initialized and replays queued loads in
// submission order.
func (l *Loader) EngineReady() {
	if l.engineReady {
		return
	}
	l.engineReady = true
	queued := l.pending
	l.pending = nil
	for _, src := range queued {
		_ = l.load(src)
	}
}

// Load begins fetching and decoding src. If the engine is not ready yet
// the request is queued and nil is returned; the outcome is reported via
// events either way.
func (l *Loader) Load(src string) error {
	if !l.engineReady {
		l.log.Debugw("engine not ready, queueing load", "src", src)
		l.pending = append(l.pending, src)
		return nil
	}
	return l.load(src)
}

// IsLoaded reports whether src has completed loading and decoding.
func (l *Loader) IsLoaded(src string) bool {
	_, ok := l.resources[src]
	return ok
}

// Resource returns the decoded resource for src, or nil.
func (l *Loader) Resource(src string) *Resource {
	return l.resources[src]
}

// Unload drops the decoded resource for src.
func (l *Loader) Unload(src string) {
	delete(l.resources, src)
}

func (l *Loader) load(src string) error {
	if res, ok := l.resources[src]; ok {
		// Idempotent-intent: already loaded, just re-announce.
		l.Emit(EventFileLoad, l, res)
		return nil
	}

	raw, err := l.fetch(src)
	if err != nil {
		return l.fail(src, err)
	}

	res, err := decode(src, raw)
	if err != nil {
		return l.fail(src, err)
	}

	l.resources[src] = res
	l.log.Debugw("source loaded", "src", src, "duration", res.Duration())
	l.Emit(EventFileLoad, l, res)
	return nil
}

func (l *Loader) fail(src string, err error) error {
	l.log.Warnw("load failed", "src", src, "error", err)
	l.Emit(EventFileError, l, LoadError{Source: src, Err: err})
	return err
}

// fetch transfers the raw bytes of src, emitting progress events when the
// total size is known. The raw bytes are the intermediate artifact handed
// to the decoder; success is only reported after decoding.
func (l *Loader) fetch(src string) ([]byte, error) {
	if isHTTP(src) {
		resp, err := l.client.Get(src)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
		}
		return l.readAll(src, resp.Body, resp.ContentLength)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var total int64
	if fi, err := f.Stat(); err == nil {
		total = fi.Size()
	}
	return l.readAll(src, f, total)
}

// readAll reads r to the end in chunks. A total of zero (or less) means the
// size is unknown: no progress events are emitted, avoiding a division by
// zero reaching listeners.
func (l *Loader) readAll(src string, r io.Reader, total int64) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, progressChunk)
	var loaded int64
	var last float64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			loaded += int64(n)
			if total > 0 {
				frac := min(float64(loaded)/float64(total), 1)
				if frac >= last {
					last = frac
					l.Emit(EventProgress, l, Progress{
						Source:   src,
						Loaded:   loaded,
						Total:    total,
						Fraction: frac,
					})
				}
			}
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func isHTTP(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// sourceExt returns the lowercased file extension of a path or URL.
func sourceExt(src string) string {
	p := src
	if isHTTP(src) {
		if u, err := url.Parse(src); err == nil {
			p = u.Path
		}
	}
	if i := strings.LastIndex(p, "."); i >= 0 {
		return strings.ToLower(p[i:])
	}
	return ""
}
