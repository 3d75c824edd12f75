package engine

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"github.com/chime-audio/chime/internal/loader"
)

// Speaker plays decoded resources through the system audio device using
// the beep speaker. A single speaker instance is shared by all handles;
// beep's internal mixer keeps concurrent handles independent.
type Speaker struct {
	mu         sync.Mutex
	ready      bool
	sampleRate beep.SampleRate
	resources  map[string]*loader.Resource
	log        *zap.SugaredLogger
}

// NewSpeaker creates an uninitialized speaker engine.
func NewSpeaker(log *zap.SugaredLogger) *Speaker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Speaker{
		resources: make(map[string]*loader.Resource),
		log:       log,
	}
}

// Init opens the audio device. bufferLen controls output latency; 1/10s
// is a good default.
func (s *Speaker) Init(sampleRate int, bufferLen time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(bufferLen)); err != nil {
		return err
	}
	s.sampleRate = sr
	s.ready = true
	s.log.Debugw("speaker initialized", "sample_rate", sampleRate)
	return nil
}

func (s *Speaker) Name() string { return "speaker" }

func (s *Speaker) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Speaker) IsPreloadComplete(src string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[src]
	return ok
}

// AddResource registers a decoded resource so sessions can play it.
func (s *Speaker) AddResource(res *loader.Resource) {
	s.mu.Lock()
	s.resources[res.Source] = res
	s.mu.Unlock()
}

// RemoveResource drops a registered resource. Live handles keep their
// streamer and are unaffected.
func (s *Speaker) RemoveResource(src string) {
	s.mu.Lock()
	delete(s.resources, src)
	s.mu.Unlock()
}

func (s *Speaker) Acquire(src string, spriteStart time.Duration, onComplete func()) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}
	res, ok := s.resources[src]
	if !ok {
		return nil, ErrNotLoaded
	}
	h := &speakerHandle{
		streamer:    res.Streamer(),
		format:      res.Format,
		outRate:     s.sampleRate,
		spriteStart: spriteStart,
		volume:      1,
		onComplete:  onComplete,
	}
	return h, nil
}

// Verify Speaker implements Engine at compile time.
var _ Engine = (*Speaker)(nil)

// speakerHandle is one attempt's binding to the beep mixer.
//
// The streamer itself lives for the whole attempt; the ctrl/volume/pan
// chain around it is rebuilt on every Play because beep's mixer drops a
// drained sequence (end of clip or Stop).
type speakerHandle struct {
	mu          sync.Mutex
	streamer    beep.StreamSeeker
	format      beep.Format
	outRate     beep.SampleRate
	spriteStart time.Duration

	ctrl *beep.Ctrl
	vol  *effects.Volume
	pan  *effects.Pan

	volume   float64
	balance  float64
	duration time.Duration
	looping  bool
	playing  bool
	stopped  bool
	released bool

	onComplete func()
}

func (h *speakerHandle) Duration() time.Duration {
	d := h.format.SampleRate.D(h.streamerLen()) - h.spriteStart
	if d < 0 {
		return 0
	}
	return d
}

func (h *speakerHandle) streamerLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return 0
	}
	return h.streamer.Len()
}

func (h *speakerHandle) Play(offset time.Duration) error {
	h.mu.Lock()
	if h.released || h.streamer == nil {
		h.mu.Unlock()
		return ErrReleased
	}
	h.stopped = false

	from := h.format.SampleRate.N(offset)
	from = min(max(from, 0), h.streamer.Len())
	_ = h.streamer.Seek(from)

	end := h.streamer.Len()
	if h.duration > 0 {
		clipEnd := h.format.SampleRate.N(h.spriteStart + h.duration)
		end = min(end, clipEnd)
	}

	h.ctrl = &beep.Ctrl{Streamer: beep.Take(max(end-from, 0), h.streamer)}
	h.vol = &effects.Volume{
		Streamer: h.ctrl,
		Base:     2,
		Volume:   levelToVolume(h.volume),
		Silent:   h.volume <= 0,
	}
	h.pan = &effects.Pan{Streamer: h.vol, Pan: h.balance}

	var out beep.Streamer = h.pan
	if h.format.SampleRate != h.outRate {
		out = beep.Resample(4, h.format.SampleRate, h.outRate, h.pan)
	}
	h.playing = true
	h.mu.Unlock()

	speaker.Play(beep.Seq(out, beep.Callback(h.finished)))
	return nil
}

// finished runs on the speaker goroutine with the speaker lock held, so it
// must not touch the handle lock (setters take handle lock then speaker
// lock). Completion is handed off to a fresh goroutine instead.
func (h *speakerHandle) finished() {
	go h.completeAsync()
}

func (h *speakerHandle) completeAsync() {
	h.mu.Lock()
	fire := h.playing && !h.stopped && !h.released
	h.playing = false
	h.mu.Unlock()
	if fire && h.onComplete != nil {
		h.onComplete()
	}
}

func (h *speakerHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	if h.vol != nil {
		speaker.Lock()
		h.vol.Volume = levelToVolume(v)
		h.vol.Silent = v <= 0
		speaker.Unlock()
	}
}

func (h *speakerHandle) SetPan(p float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.balance = p
	if h.pan != nil {
		speaker.Lock()
		h.pan.Pan = p
		speaker.Unlock()
	}
}

func (h *speakerHandle) SetDuration(d time.Duration) {
	h.mu.Lock()
	h.duration = d
	h.mu.Unlock()
}

func (h *speakerHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := h.format.SampleRate.D(h.streamer.Position())
	speaker.Unlock()
	return pos
}

func (h *speakerHandle) SetPosition(offset time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return
	}
	n := h.format.SampleRate.N(offset)
	n = min(max(n, 0), h.streamer.Len())
	speaker.Lock()
	_ = h.streamer.Seek(n)
	speaker.Unlock()
}

func (h *speakerHandle) AddLooping() {
	h.mu.Lock()
	h.looping = true
	h.mu.Unlock()
}

func (h *speakerHandle) RemoveLooping() {
	h.mu.Lock()
	h.looping = false
	h.mu.Unlock()
}

func (h *speakerHandle) SetPaused(paused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return
	}
	speaker.Lock()
	h.ctrl.Paused = paused
	speaker.Unlock()
}

func (h *speakerHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *speakerHandle) stopLocked() {
	h.stopped = true
	h.playing = false
	if h.ctrl != nil {
		// Detaching the streamer drains the ctrl, so the mixer drops the
		// sequence on its next pass. The stopped flag keeps the trailing
		// callback from firing.
		speaker.Lock()
		h.ctrl.Streamer = nil
		h.ctrl.Paused = false
		speaker.Unlock()
	}
}

func (h *speakerHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.stopLocked()
	h.released = true
	h.streamer = nil
	h.ctrl = nil
	h.vol = nil
	h.pan = nil
}

// levelToVolume converts a 0.0-1.0 level to beep's log-scale Volume value.
// beep treats Volume as an exponent on Base: 0 means unchanged, -1 half
// volume, -2 quarter, and so on. Levels at or below zero are silenced via
// the Silent flag instead.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
