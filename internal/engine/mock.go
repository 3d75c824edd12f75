// internal/engine/mock.go
package engine

import "time"

// Mock is a test double for Engine.
type Mock struct {
	ready      bool
	durations  map[string]time.Duration
	acquireErr error
	handles    []*MockHandle
}

// NewMock creates a ready mock engine with no sources.
func NewMock() *Mock {
	return &Mock{
		ready:     true,
		durations: make(map[string]time.Duration),
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Ready() bool { return m.ready }

func (m *Mock) IsPreloadComplete(src string) bool {
	_, ok := m.durations[src]
	return ok
}

func (m *Mock) Acquire(src string, spriteStart time.Duration, onComplete func()) (Handle, error) {
	if !m.ready {
		return nil, ErrNotReady
	}
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	d, ok := m.durations[src]
	if !ok {
		return nil, ErrNotLoaded
	}
	span := d - spriteStart
	if span < 0 {
		span = 0
	}
	h := &MockHandle{Source: src, SpriteStart: spriteStart, duration: span, onComplete: onComplete}
	m.handles = append(m.handles, h)
	return h, nil
}

// Test helpers

func (m *Mock) SetReady(ready bool) { m.ready = ready }

// AddSource registers a fake resource with the given full length.
func (m *Mock) AddSource(src string, d time.Duration) { m.durations[src] = d }

func (m *Mock) SetAcquireError(err error) { m.acquireErr = err }

// Handles returns every handle acquired so far, in order.
func (m *Mock) Handles() []*MockHandle { return m.handles }

// LastHandle returns the most recently acquired handle, or nil.
func (m *Mock) LastHandle() *MockHandle {
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)

// MockHandle records every hook call for assertions.
type MockHandle struct {
	Source      string
	SpriteStart time.Duration

	PlayCalls    []time.Duration
	VolumeCalls  []float64
	PanCalls     []float64
	SeekCalls    []time.Duration
	PausedCalls  []bool
	LoopAdds     int
	LoopRemoves  int
	StopCalls    int
	ReleaseCalls int

	duration time.Duration
	position time.Duration
	playErr  error
	released bool

	onComplete func()
}

func (h *MockHandle) Duration() time.Duration { return h.duration }

func (h *MockHandle) SetVolume(v float64) { h.VolumeCalls = append(h.VolumeCalls, v) }

func (h *MockHandle) SetPan(p float64) { h.PanCalls = append(h.PanCalls, p) }

func (h *MockHandle) SetDuration(d time.Duration) { h.duration = d }

func (h *MockHandle) Position() time.Duration { return h.position }

func (h *MockHandle) SetPosition(offset time.Duration) {
	h.SeekCalls = append(h.SeekCalls, offset)
	h.position = offset
}

func (h *MockHandle) AddLooping() { h.LoopAdds++ }

func (h *MockHandle) RemoveLooping() { h.LoopRemoves++ }

func (h *MockHandle) SetPaused(paused bool) { h.PausedCalls = append(h.PausedCalls, paused) }

func (h *MockHandle) Play(offset time.Duration) error {
	if h.released {
		return ErrReleased
	}
	if h.playErr != nil {
		return h.playErr
	}
	h.PlayCalls = append(h.PlayCalls, offset)
	h.position = offset
	return nil
}

func (h *MockHandle) Stop() { h.StopCalls++ }

func (h *MockHandle) Release() {
	h.ReleaseCalls++
	h.released = true
}

// Test helpers

func (h *MockHandle) SetPlayError(err error) { h.playErr = err }

// AdvanceTo moves the simulated engine clock to an absolute offset.
func (h *MockHandle) AdvanceTo(offset time.Duration) { h.position = offset }

func (h *MockHandle) Released() bool { return h.released }

// SimulateComplete drives the end-of-clip signal synchronously, as the
// real engine does from its mixer goroutine.
func (h *MockHandle) SimulateComplete() {
	if h.released || h.onComplete == nil {
		return
	}
	h.onComplete()
}

// Verify MockHandle implements Handle at compile time.
var _ Handle = (*MockHandle)(nil)
