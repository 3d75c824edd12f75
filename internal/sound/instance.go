// Package sound implements the playback session core: one Instance per
// logical sound-playing attempt, driving an engine.Handle through a small
// state machine, plus the Manager façade that arbitrates contention
// between instances sharing a source.
package sound

import (
	"math"
	"sync"
	"time"

	"github.com/chime-audio/chime/internal/engine"
	"github.com/chime-audio/chime/internal/event"
)

// Arbiter is the slice of the façade an Instance calls back into. The
// Manager implements it; tests substitute their own.
type Arbiter interface {
	// PlayInstance arbitrates a play request. It returns false when the
	// request is denied outright; otherwise it schedules or performs the
	// begin-playing step (reporting its outcome through the instance's
	// own events).
	PlayInstance(i *Instance, opts PlayOptions) bool

	// PlayFinished is notified when an instance releases its engine
	// resources, so the façade can reclaim the channel slot.
	PlayFinished(i *Instance)
}

// Instance is one playback session. It is reusable: after an attempt
// reaches a terminal state, Play starts a new one.
//
// Events: "succeeded", "interrupted", "failed", "loop", "complete".
type Instance struct {
	*event.Dispatcher

	mu sync.Mutex

	src         string
	id          int
	spriteStart time.Duration

	state  PlayState
	paused bool
	muted  bool
	volume float64
	pan    float64

	duration time.Duration
	position time.Duration
	loop     int

	delayTimer *time.Timer
	delayTok   *delayToken

	handle  engine.Handle
	engine  engine.Engine
	arbiter Arbiter
}

type delayToken struct{}

// NewInstance creates a session for src. spriteStart and duration carve a
// sub-clip out of the source; both zero means the whole clip.
func NewInstance(src string, spriteStart, duration time.Duration, eng engine.Engine, arb Arbiter) *Instance {
	return &Instance{
		Dispatcher:  event.NewDispatcher(),
		src:         src,
		spriteStart: spriteStart,
		duration:    max(duration, 0),
		volume:      1,
		engine:      eng,
		arbiter:     arb,
	}
}

// Source returns the immutable source locator.
func (i *Instance) Source() string { return i.src }

// ID returns the identifier assigned by the owning façade.
func (i *Instance) ID() int { return i.id }

// State returns the current play state.
func (i *Instance) State() PlayState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Play starts a new attempt, or, when the instance is already playing,
// applies opts to the running attempt (resuming it if paused) without
// acquiring a second engine resource.
func (i *Instance) Play(opts *PlayOptions) {
	var o PlayOptions
	if opts != nil {
		o = *opts
	}

	i.mu.Lock()
	if i.state == Succeeded {
		i.applyLiveLocked(o)
		i.mu.Unlock()
		return
	}
	i.cleanUpLocked()
	i.mu.Unlock()

	if i.arbiter == nil || !i.arbiter.PlayInstance(i, o) {
		i.mu.Lock()
		i.paused = false
		i.state = Failed
		i.mu.Unlock()
		i.Emit(EventFailed, i, nil)
	}
}

// applyLiveLocked is the live-update form of Play on a running attempt.
func (i *Instance) applyLiveLocked(o PlayOptions) {
	if o.Volume != nil {
		i.setVolumeLocked(*o.Volume)
	}
	if o.Pan != nil {
		i.setPanLocked(*o.Pan)
	}
	if o.Loop != nil {
		i.setLoopLocked(*o.Loop)
	}
	if o.Offset != nil {
		i.setPositionLocked(*o.Offset)
	}
	if i.paused {
		i.paused = false
		if i.handle != nil {
			i.handle.SetPaused(false)
		}
	}
}

// BeginPlaying is invoked by the façade once arbitration and any requested
// delay have elapsed. It validates the resource, acquires a fresh engine
// handle and starts output. Failures are terminal for the attempt; no
// retry happens at this layer.
func (i *Instance) BeginPlaying(o PlayOptions) bool {
	i.mu.Lock()
	i.cancelDelayLocked()

	if o.Offset != nil {
		i.position = *o.Offset
	}
	if i.position < 0 {
		i.position = 0
	}
	if o.Loop != nil {
		i.loop = *o.Loop
	}
	if o.Volume != nil && !math.IsNaN(*o.Volume) {
		i.volume = clampVolume(*o.Volume)
	}
	if o.Pan != nil && !math.IsNaN(*o.Pan) {
		i.pan = clampPan(*o.Pan)
	}

	if i.engine == nil || !i.engine.IsPreloadComplete(i.src) {
		i.failLocked()
		i.mu.Unlock()
		i.Emit(EventFailed, i, nil)
		return false
	}

	h, err := i.engine.Acquire(i.src, i.spriteStart, i.handleSoundComplete)
	if err != nil {
		i.failLocked()
		i.mu.Unlock()
		i.Emit(EventFailed, i, nil)
		return false
	}

	if i.duration <= 0 {
		i.duration = h.Duration()
	}
	if i.position > i.duration {
		h.Release()
		i.failLocked()
		i.mu.Unlock()
		i.Emit(EventFailed, i, nil)
		return false
	}

	i.handle = h
	h.SetDuration(i.duration)
	h.SetPan(i.pan)
	if i.muted {
		h.SetVolume(0)
	} else {
		h.SetVolume(i.volume)
	}
	if i.loop != 0 {
		h.AddLooping()
	}

	if err := h.Play(i.spriteStart + i.position); err != nil {
		i.failLocked()
		i.mu.Unlock()
		i.Emit(EventFailed, i, nil)
		return false
	}

	i.state = Succeeded
	i.paused = false
	i.mu.Unlock()
	i.Emit(EventSucceeded, i, nil)
	return true
}

// failLocked moves the attempt to Failed after releasing its resources.
// The caller emits the "failed" event after unlocking.
func (i *Instance) failLocked() {
	i.cleanUpLocked()
	i.paused = false
	i.state = Failed
}

// Interrupt preempts the attempt on behalf of the façade. Interruption is
// a scheduling outcome, not an error; it is never reported on the
// "failed" channel.
func (i *Instance) Interrupt() {
	i.mu.Lock()
	i.cleanUpLocked()
	i.paused = false
	i.state = Interrupted
	i.mu.Unlock()
	i.Emit(EventInterrupted, i, nil)
}

// Stop ends the attempt from any state: position resets to zero, pending
// delays and engine resources are released, and the state becomes
// Finished. No event is emitted.
func (i *Instance) Stop() {
	i.mu.Lock()
	i.cleanUpLocked()
	i.position = 0
	i.paused = false
	i.state = Finished
	i.mu.Unlock()
}

// Destroy releases all resources and listeners. The instance must not be
// used afterwards.
func (i *Instance) Destroy() {
	i.Stop()
	i.RemoveAll("")
}

// handleSoundComplete is the engine's end-of-clip callback. A nonzero loop
// counter keeps the attempt alive: the counter is decremented (a negative
// counter means infinite and is never decremented, so it cannot wrap), the
// playhead resets to the clip start and the engine restarts. At zero the
// attempt finishes.
func (i *Instance) handleSoundComplete() {
	i.mu.Lock()
	if i.state != Succeeded || i.handle == nil {
		i.mu.Unlock()
		return
	}

	if i.loop != 0 {
		if i.loop > 0 {
			i.loop--
		}
		if i.loop == 0 {
			i.handle.RemoveLooping()
		}
		remaining := i.loop
		h := i.handle
		i.position = 0
		i.mu.Unlock()
		i.Emit(EventLoop, i, remaining)
		_ = h.Play(i.spriteStart)
		return
	}

	i.cleanUpLocked()
	i.position = 0
	i.paused = false
	i.state = Finished
	i.mu.Unlock()
	i.Emit(EventComplete, i, nil)
}

// cleanUpLocked cancels the pending delay, releases the engine handle and
// notifies the façade that the channel slot is free. Safe to call when
// nothing is held.
func (i *Instance) cleanUpLocked() {
	i.cancelDelayLocked()
	if i.handle != nil {
		i.handle.Stop()
		i.handle.Release()
		i.handle = nil
	}
	if i.arbiter != nil {
		i.arbiter.PlayFinished(i)
	}
}

// delayBegin arms the single-slot delayed-start task. An existing pending
// task is replaced. The task is cancelable until the moment it fires: the
// token invalidates a timer that already expired but lost the race to a
// cancellation.
func (i *Instance) delayBegin(o PlayOptions) {
	i.mu.Lock()
	i.cancelDelayLocked()
	tok := &delayToken{}
	i.delayTok = tok
	delay := o.Delay
	o.Delay = 0
	i.delayTimer = time.AfterFunc(delay, func() {
		i.mu.Lock()
		if i.delayTok != tok {
			i.mu.Unlock()
			return
		}
		i.delayTok = nil
		i.delayTimer = nil
		i.mu.Unlock()
		i.BeginPlaying(o)
	})
	i.mu.Unlock()
}

func (i *Instance) cancelDelayLocked() {
	if i.delayTimer != nil {
		i.delayTimer.Stop()
		i.delayTimer = nil
		i.delayTok = nil
	}
}

// Paused reports whether the running attempt is paused.
func (i *Instance) Paused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.paused
}

// Pause suspends the running attempt. It only succeeds while the attempt
// is in the Succeeded state and not already paused.
func (i *Instance) Pause() bool { return i.SetPaused(true) }

// Resume continues a paused attempt from the captured position.
func (i *Instance) Resume() bool { return i.SetPaused(false) }

// SetPaused suspends or resumes the attempt. Returns false when the
// transition is not valid from the current state; the paused flag is left
// unchanged in that case.
func (i *Instance) SetPaused(paused bool) bool {
	i.mu.Lock()
	if paused {
		if i.state != Succeeded || i.paused {
			i.mu.Unlock()
			return false
		}
		if i.handle != nil {
			i.position = i.clipPositionLocked()
		}
		i.paused = true
		i.cancelDelayLocked()
		if i.handle != nil {
			i.handle.SetPaused(true)
		}
	} else {
		if !i.paused {
			i.mu.Unlock()
			return false
		}
		i.paused = false
		if i.handle != nil && i.state == Succeeded {
			i.handle.SetPaused(false)
		}
	}
	i.mu.Unlock()
	return true
}

// Volume returns the stored volume, whether or not it is audible (muting
// suppresses application, not storage).
func (i *Instance) Volume() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.volume
}

// SetVolume stores and applies a volume in [0,1]. Out-of-range values are
// clamped; NaN is ignored. While muted the value is stored but not
// applied.
func (i *Instance) SetVolume(v float64) {
	i.mu.Lock()
	i.setVolumeLocked(v)
	i.mu.Unlock()
}

func (i *Instance) setVolumeLocked(v float64) {
	if math.IsNaN(v) {
		return
	}
	i.volume = clampVolume(v)
	if i.handle != nil && !i.muted {
		i.handle.SetVolume(i.volume)
	}
}

// Pan returns the stored stereo pan in [-1,1].
func (i *Instance) Pan() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pan
}

// SetPan stores and applies a pan in [-1,1]. Out-of-range values are
// clamped; NaN is ignored.
func (i *Instance) SetPan(p float64) {
	i.mu.Lock()
	i.setPanLocked(p)
	i.mu.Unlock()
}

func (i *Instance) setPanLocked(p float64) {
	if math.IsNaN(p) {
		return
	}
	i.pan = clampPan(p)
	if i.handle != nil {
		i.handle.SetPan(i.pan)
	}
}

// Muted reports whether audio output is suppressed.
func (i *Instance) Muted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.muted
}

// SetMuted suppresses or restores audible output. Unmuting reapplies the
// stored volume, clamped again in case it was mutated while muted.
func (i *Instance) SetMuted(muted bool) {
	i.mu.Lock()
	i.muted = muted
	if i.handle != nil {
		if muted {
			i.handle.SetVolume(0)
		} else {
			i.volume = clampVolume(i.volume)
			i.handle.SetVolume(i.volume)
		}
	}
	i.mu.Unlock()
}

// Loop returns the remaining loop count: 0 none, negative infinite.
func (i *Instance) Loop() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loop
}

// SetLoop sets the remaining loop count. The engine is notified exactly on
// the zero/nonzero edges.
func (i *Instance) SetLoop(loop int) {
	i.mu.Lock()
	i.setLoopLocked(loop)
	i.mu.Unlock()
}

func (i *Instance) setLoopLocked(loop int) {
	if i.handle != nil {
		if i.loop == 0 && loop != 0 {
			i.handle.AddLooping()
		} else if i.loop != 0 && loop == 0 {
			i.handle.RemoveLooping()
		}
	}
	i.loop = loop
}

// Duration returns the clip duration.
func (i *Instance) Duration() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.duration
}

// SetDuration overrides the clip duration, which synthesizes a sub-clip
// when shorter than the resource. Negative values are ignored.
func (i *Instance) SetDuration(d time.Duration) {
	if d < 0 {
		return
	}
	i.mu.Lock()
	i.duration = d
	if i.handle != nil {
		i.handle.SetDuration(d)
	}
	i.mu.Unlock()
}

// Position returns the playhead. While playing and unpaused it is computed
// live from the engine clock; otherwise the stored value is returned.
func (i *Instance) Position() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == Succeeded && !i.paused && i.handle != nil {
		return i.clipPositionLocked()
	}
	return i.position
}

// clipPositionLocked translates the engine's absolute offset back into
// clip-relative time.
func (i *Instance) clipPositionLocked() time.Duration {
	p := i.handle.Position() - i.spriteStart
	if p < 0 {
		p = 0
	}
	if i.duration > 0 && p > i.duration {
		p = i.duration
	}
	return p
}

// SetPosition moves the playhead. Negative values clamp to zero.
func (i *Instance) SetPosition(d time.Duration) {
	i.mu.Lock()
	i.setPositionLocked(d)
	i.mu.Unlock()
}

func (i *Instance) setPositionLocked(d time.Duration) {
	if d < 0 {
		d = 0
	}
	i.position = d
	if i.handle != nil {
		i.handle.SetPosition(i.spriteStart + d)
	}
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

func clampPan(p float64) float64 {
	return min(max(p, -1), 1)
}
