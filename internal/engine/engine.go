// Package engine defines the back-end playback contract consumed by the
// sound package, plus the built-in implementations (beep speaker output and
// a mock for tests).
//
// An Engine hands out one Handle per playback attempt. Handles are never
// shared between attempts: once released, a new attempt must acquire a
// fresh one.
package engine

import (
	"errors"
	"time"
)

var (
	// ErrNotReady is returned by Acquire before the engine is initialized.
	ErrNotReady = errors.New("engine not initialized")
	// ErrNotLoaded is returned by Acquire when the source has no decoded
	// resource registered with the engine.
	ErrNotLoaded = errors.New("source not loaded")
	// ErrReleased is returned by Play on a handle that has been released.
	ErrReleased = errors.New("handle released")
)

// Engine creates playback handles for loaded sources.
type Engine interface {
	// Name identifies the engine ("speaker", "mock").
	Name() string

	// Ready reports whether the engine can produce output.
	Ready() bool

	// IsPreloadComplete reports whether the source has a decoded resource
	// registered and playback can start without waiting.
	IsPreloadComplete(src string) bool

	// Acquire binds a fresh handle to the source for one playback attempt.
	// spriteStart carves a sub-clip: handle offsets are absolute into the
	// resource, and Duration reports the playable span past spriteStart.
	// onComplete fires when playback reaches the end of the clip; it is
	// never called after Stop or Release.
	Acquire(src string, spriteStart time.Duration, onComplete func()) (Handle, error)
}

// Handle is one engine-side playback binding.
//
// All mutators are best-effort and side-effecting only; callers must not
// assume success. Release is idempotent.
type Handle interface {
	// Duration returns the playable span of the clip (resource length
	// minus the sprite start offset).
	Duration() time.Duration

	SetVolume(v float64)
	SetPan(p float64)

	// SetDuration bounds playback to the given span past the sprite start.
	// Zero means play to the end of the resource.
	SetDuration(d time.Duration)

	// Position returns the current absolute offset into the resource.
	Position() time.Duration

	// SetPosition seeks to an absolute offset into the resource.
	SetPosition(offset time.Duration)

	// AddLooping and RemoveLooping notify the engine when the owning
	// session starts or stops looping. Engines that loop natively hook
	// these; others may ignore them.
	AddLooping()
	RemoveLooping()

	SetPaused(paused bool)

	// Play starts (or, after a completed loop pass, restarts) output at
	// the given absolute offset.
	Play(offset time.Duration) error

	// Stop halts output without releasing the binding.
	Stop()

	// Release stops output and frees the binding. Safe to call twice.
	Release()
}
