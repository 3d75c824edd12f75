// internal/sound/state.go
package sound

// PlayState represents the lifecycle of one playback attempt.
//
// The state machine:
//
//	Uninitialized ──play──▶ Succeeded ──┬──▶ Finished    (natural end, Stop)
//	                                    ├──▶ Interrupted (façade preemption)
//	                                    └──▶ Failed      (resource not ready)
//
// Terminal states end the current attempt only: the instance is reusable,
// and Play from any state starts a fresh attempt. Stop is the one
// transition allowed from every state without precondition.
type PlayState int

const (
	Uninitialized PlayState = iota
	Succeeded
	Interrupted
	Failed
	Finished
)

// String returns the state name.
func (s PlayState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Succeeded:
		return "Succeeded"
	case Interrupted:
		return "Interrupted"
	case Failed:
		return "Failed"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Active returns true while the attempt holds an engine resource.
func (s PlayState) Active() bool {
	return s == Succeeded
}

// Event names emitted by an Instance.
const (
	EventSucceeded   = "succeeded"
	EventInterrupted = "interrupted"
	EventFailed      = "failed"
	EventLoop        = "loop"
	EventComplete    = "complete"
)
