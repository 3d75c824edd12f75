package sound

import (
	"fmt"
	"time"
)

// Interrupt governs how a play request contends with active instances of
// the same source once the channel cap is reached.
type Interrupt int

const (
	// InterruptNone denies the new request.
	InterruptNone Interrupt = iota
	// InterruptAny preempts the oldest active instance.
	InterruptAny
	// InterruptEarly preempts the instance with the least progress.
	InterruptEarly
	// InterruptLate preempts the instance with the most progress.
	InterruptLate
)

// String returns the policy name.
func (p Interrupt) String() string {
	switch p {
	case InterruptNone:
		return "none"
	case InterruptAny:
		return "any"
	case InterruptEarly:
		return "early"
	case InterruptLate:
		return "late"
	default:
		return "unknown"
	}
}

// ParseInterrupt converts a policy name to an Interrupt.
func ParseInterrupt(s string) (Interrupt, error) {
	switch s {
	case "none", "":
		return InterruptNone, nil
	case "any":
		return InterruptAny, nil
	case "early":
		return InterruptEarly, nil
	case "late":
		return InterruptLate, nil
	default:
		return InterruptNone, fmt.Errorf("unknown interrupt policy: %q", s)
	}
}

// PlayOptions carries per-attempt playback parameters. Nil pointer fields
// leave the instance's current value untouched.
type PlayOptions struct {
	Interrupt Interrupt
	Delay     time.Duration  // wait before the attempt begins
	Offset    *time.Duration // playhead to start from
	Loop      *int           // 0 none, <0 infinite, >0 extra passes
	Volume    *float64       // [0,1]
	Pan       *float64       // [-1,1]
}
