package sound

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/chime-audio/chime/internal/engine"
	"github.com/chime-audio/chime/internal/event"
)

func newTestRig(t *testing.T) (*Manager, *engine.Mock) {
	t.Helper()
	eng := engine.NewMock()
	eng.AddSource("clip.wav", 10*time.Second)
	return NewManager(eng, nil, ManagerOptions{}), eng
}

// eventLog collects the names of lifecycle events as they are emitted.
// Delayed starts fire from a timer goroutine, so access is locked.
type eventLog struct {
	mu    sync.Mutex
	names []string
}

func (l *eventLog) add(name string) {
	l.mu.Lock()
	l.names = append(l.names, name)
	l.mu.Unlock()
}

// Names returns a copy of the emitted event names, in order.
func (l *eventLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func record(i *Instance) *eventLog {
	l := &eventLog{}
	for _, name := range []string{EventSucceeded, EventInterrupted, EventFailed, EventLoop, EventComplete} {
		name := name
		i.On(name, func(event.Event) { l.add(name) })
	}
	return l
}

// wantEvents fails the test when the log does not match exactly.
func wantEvents(t *testing.T, l *eventLog, want ...string) {
	t.Helper()
	got := l.Names()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetVolume_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{name: "below range clamps to zero", input: -0.5, expected: 0},
		{name: "zero stays", input: 0, expected: 0},
		{name: "in range stays", input: 0.3, expected: 0.3},
		{name: "one stays", input: 1, expected: 1},
		{name: "above range clamps to one", input: 2.4, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _ := newTestRig(t)
			i := mgr.CreateInstance("clip.wav", 0, 0)
			i.SetVolume(tt.input)
			if i.Volume() != tt.expected {
				t.Errorf("Volume() = %v, want %v", i.Volume(), tt.expected)
			}
		})
	}
}

func TestSetVolume_NaNIgnored(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.SetVolume(0.7)
	i.SetVolume(math.NaN())

	if i.Volume() != 0.7 {
		t.Errorf("Volume() = %v after NaN, want 0.7", i.Volume())
	}
}

func TestSetPan_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{name: "below range clamps to -1", input: -3, expected: -1},
		{name: "left stays", input: -1, expected: -1},
		{name: "center stays", input: 0, expected: 0},
		{name: "in range stays", input: 0.25, expected: 0.25},
		{name: "above range clamps to 1", input: 7, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _ := newTestRig(t)
			i := mgr.CreateInstance("clip.wav", 0, 0)
			i.SetPan(tt.input)
			if i.Pan() != tt.expected {
				t.Errorf("Pan() = %v, want %v", i.Pan(), tt.expected)
			}
		})
	}
}

func TestPlay_Succeeds(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	i.Play(nil)

	if i.State() != Succeeded {
		t.Errorf("State() = %v, want Succeeded", i.State())
	}
	wantEvents(t, events, EventSucceeded)
	h := eng.LastHandle()
	if h == nil {
		t.Fatal("no handle acquired")
	}
	if len(h.PlayCalls) != 1 || h.PlayCalls[0] != 0 {
		t.Errorf("PlayCalls = %v, want [0]", h.PlayCalls)
	}
	if i.Duration() != 10*time.Second {
		t.Errorf("Duration() = %v, want 10s from resource", i.Duration())
	}
}

func TestPlay_WhilePlayingIsLiveUpdate(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	i.Pause()

	vol, offset, loop := 0.4, 2*time.Second, 3
	i.Play(&PlayOptions{Volume: &vol, Offset: &offset, Loop: &loop})

	if len(eng.Handles()) != 1 {
		t.Fatalf("play on a running instance acquired a second handle (%d total)", len(eng.Handles()))
	}
	if i.Volume() != 0.4 {
		t.Errorf("Volume() = %v, want 0.4", i.Volume())
	}
	if i.Loop() != 3 {
		t.Errorf("Loop() = %v, want 3", i.Loop())
	}
	if i.Paused() {
		t.Error("instance still paused after live-update play")
	}
	h := eng.LastHandle()
	if len(h.SeekCalls) == 0 || h.SeekCalls[len(h.SeekCalls)-1] != 2*time.Second {
		t.Errorf("SeekCalls = %v, want trailing 2s", h.SeekCalls)
	}
}

func TestPlay_ResourceMissingFails(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("missing.wav", 0, 0)
	events := record(i)

	i.Play(nil)

	if i.State() != Failed {
		t.Errorf("State() = %v, want Failed", i.State())
	}
	wantEvents(t, events, EventFailed)
}

func TestBeginPlaying_OffsetBeyondDurationFails(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 2*time.Second)
	events := record(i)

	offset := 3 * time.Second
	ok := i.BeginPlaying(PlayOptions{Offset: &offset})

	if ok {
		t.Error("BeginPlaying() = true, want false")
	}
	if i.State() != Failed {
		t.Errorf("State() = %v, want Failed", i.State())
	}
	wantEvents(t, events, EventFailed)
}

func TestBeginPlaying_NegativeOffsetClampsToZero(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	offset := -5 * time.Second
	if !i.BeginPlaying(PlayOptions{Offset: &offset}) {
		t.Fatal("BeginPlaying() failed")
	}
	h := eng.LastHandle()
	if h.PlayCalls[0] != 0 {
		t.Errorf("PlayCalls[0] = %v, want 0", h.PlayCalls[0])
	}
}

func TestStop_ResetsPositionAndFinishes(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	eng.LastHandle().AdvanceTo(4 * time.Second)

	i.Stop()

	if i.State() != Finished {
		t.Errorf("State() = %v, want Finished", i.State())
	}
	if i.Position() != 0 {
		t.Errorf("Position() = %v after stop, want 0", i.Position())
	}
	if !eng.LastHandle().Released() {
		t.Error("handle not released by stop")
	}
}

func TestStop_AllowedFromAnyState(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Stop()
	if i.State() != Finished {
		t.Errorf("State() = %v from uninitialized stop, want Finished", i.State())
	}

	i.Play(nil)
	i.Stop()
	i.Stop()
	if i.State() != Finished {
		t.Errorf("State() = %v after double stop, want Finished", i.State())
	}
}

func TestLoop_FiniteCountdown(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	loop := 2
	i.Play(&PlayOptions{Loop: &loop})
	h := eng.LastHandle()

	h.SimulateComplete()
	if i.State() != Succeeded || i.Loop() != 1 {
		t.Errorf("after 1st complete: state=%v loop=%d, want Succeeded/1", i.State(), i.Loop())
	}

	h.SimulateComplete()
	if i.State() != Succeeded || i.Loop() != 0 {
		t.Errorf("after 2nd complete: state=%v loop=%d, want Succeeded/0", i.State(), i.Loop())
	}

	h.SimulateComplete()
	if i.State() != Finished {
		t.Errorf("after 3rd complete: state=%v, want Finished", i.State())
	}

	wantEvents(t, events, EventSucceeded, EventLoop, EventLoop, EventComplete)
}

func TestLoop_InfiniteNeverCompletes(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	loop := -1
	i.Play(&PlayOptions{Loop: &loop})
	h := eng.LastHandle()

	for range 5 {
		h.SimulateComplete()
	}

	if i.State() != Succeeded {
		t.Errorf("State() = %v, want Succeeded", i.State())
	}
	if i.Loop() != -1 {
		t.Errorf("Loop() = %d, want -1 (infinite sentinel never counts down)", i.Loop())
	}
	loops := 0
	for _, name := range events.Names() {
		if name == EventComplete {
			t.Error("infinite loop emitted complete")
		}
		if name == EventLoop {
			loops++
		}
	}
	if loops != 5 {
		t.Errorf("loop events = %d, want 5", loops)
	}
}

func TestLoop_RestartsPlaybackFromClipStart(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	loop := 1
	i.Play(&PlayOptions{Loop: &loop})
	h := eng.LastHandle()
	h.SimulateComplete()

	if len(h.PlayCalls) != 2 {
		t.Fatalf("PlayCalls = %v, want a restart after loop", h.PlayCalls)
	}
	if h.PlayCalls[1] != 0 {
		t.Errorf("restart offset = %v, want 0", h.PlayCalls[1])
	}
}

func TestSetLoop_EdgeHooks(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	h := eng.LastHandle()

	i.SetLoop(3) // 0 -> nonzero
	i.SetLoop(5) // nonzero -> nonzero, no hook
	i.SetLoop(0) // nonzero -> 0
	i.SetLoop(0) // 0 -> 0, no hook

	if h.LoopAdds != 1 {
		t.Errorf("LoopAdds = %d, want 1", h.LoopAdds)
	}
	if h.LoopRemoves != 1 {
		t.Errorf("LoopRemoves = %d, want 1", h.LoopRemoves)
	}
}

func TestPause_RequiresSucceededState(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	if i.Pause() {
		t.Error("Pause() = true before playback")
	}
	if i.Paused() {
		t.Error("paused flag set by invalid pause")
	}

	i.Play(nil)
	if !i.Pause() {
		t.Error("Pause() = false while playing")
	}
	if !i.Paused() {
		t.Error("paused flag not set")
	}
	if i.Pause() {
		t.Error("Pause() = true while already paused")
	}
}

func TestPause_CapturesPositionForResume(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	h := eng.LastHandle()
	h.AdvanceTo(1500 * time.Millisecond)

	i.Pause()
	h.AdvanceTo(9 * time.Second) // engine clock keeps moving; stored position must not

	if i.Position() != 1500*time.Millisecond {
		t.Errorf("Position() = %v while paused, want 1500ms", i.Position())
	}
	if len(h.PausedCalls) == 0 || !h.PausedCalls[len(h.PausedCalls)-1] {
		t.Errorf("PausedCalls = %v, want trailing true", h.PausedCalls)
	}

	if !i.Resume() {
		t.Error("Resume() = false on a paused instance")
	}
	if h.PausedCalls[len(h.PausedCalls)-1] {
		t.Errorf("PausedCalls = %v, want trailing false after resume", h.PausedCalls)
	}
}

func TestResume_OnlyValidWhenPaused(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	if i.Resume() {
		t.Error("Resume() = true when never paused")
	}
	i.Play(nil)
	if i.Resume() {
		t.Error("Resume() = true while playing unpaused")
	}
}

func TestPosition_LiveWhilePlaying(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	eng.LastHandle().AdvanceTo(2 * time.Second)

	if i.Position() != 2*time.Second {
		t.Errorf("Position() = %v, want 2s from engine clock", i.Position())
	}
}

func TestSetPosition_NegativeClampsToZero(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.SetPosition(-3 * time.Second)
	if i.Position() != 0 {
		t.Errorf("Position() = %v, want 0", i.Position())
	}
}

func TestSetDuration_NegativeIgnored(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 4*time.Second)

	i.SetDuration(-time.Second)
	if i.Duration() != 4*time.Second {
		t.Errorf("Duration() = %v, want unchanged 4s", i.Duration())
	}
}

func TestMute_StoresVolumeWithoutApplying(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	h := eng.LastHandle()

	i.SetMuted(true)
	if h.VolumeCalls[len(h.VolumeCalls)-1] != 0 {
		t.Errorf("VolumeCalls = %v, want trailing 0 after mute", h.VolumeCalls)
	}

	i.SetVolume(0.5)
	if h.VolumeCalls[len(h.VolumeCalls)-1] != 0 {
		t.Errorf("VolumeCalls = %v, volume applied while muted", h.VolumeCalls)
	}
	if i.Volume() != 0.5 {
		t.Errorf("Volume() = %v, want stored 0.5", i.Volume())
	}

	i.SetMuted(false)
	if h.VolumeCalls[len(h.VolumeCalls)-1] != 0.5 {
		t.Errorf("VolumeCalls = %v, want trailing 0.5 after unmute", h.VolumeCalls)
	}
}

func TestSpriteOffset_TranslatesPositions(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", time.Second, 2*time.Second)

	offset := 500 * time.Millisecond
	i.Play(&PlayOptions{Offset: &offset})

	h := eng.LastHandle()
	if h.SpriteStart != time.Second {
		t.Errorf("SpriteStart = %v, want 1s", h.SpriteStart)
	}
	if h.PlayCalls[0] != 1500*time.Millisecond {
		t.Errorf("PlayCalls[0] = %v, want absolute 1.5s", h.PlayCalls[0])
	}

	h.AdvanceTo(1700 * time.Millisecond)
	if i.Position() != 700*time.Millisecond {
		t.Errorf("Position() = %v, want clip-relative 700ms", i.Position())
	}
}

func TestInterrupt_DuringPendingDelay(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	i.Play(&PlayOptions{Delay: 50 * time.Millisecond})
	i.Interrupt()

	time.Sleep(150 * time.Millisecond)

	if i.State() != Interrupted {
		t.Errorf("State() = %v, want Interrupted", i.State())
	}
	if len(eng.Handles()) != 0 {
		t.Error("delayed start fired after interrupt")
	}
	wantEvents(t, events, EventInterrupted)
}

func TestDelayedPlay_FiresAfterDelay(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	i.Play(&PlayOptions{Delay: 20 * time.Millisecond})

	if len(eng.Handles()) != 0 {
		t.Fatal("playback started before the delay elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for i.State() != Succeeded && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if i.State() != Succeeded {
		t.Fatalf("State() = %v after delay, want Succeeded", i.State())
	}
	wantEvents(t, events, EventSucceeded)
}

func TestInterrupt_IsNotAFailure(t *testing.T) {
	mgr, _ := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)
	events := record(i)

	i.Play(nil)
	i.Interrupt()

	if i.State() != Interrupted {
		t.Errorf("State() = %v, want Interrupted", i.State())
	}
	wantEvents(t, events, EventSucceeded, EventInterrupted)
}

func TestInstance_ReusableAfterTerminalState(t *testing.T) {
	mgr, eng := newTestRig(t)
	i := mgr.CreateInstance("clip.wav", 0, 0)

	i.Play(nil)
	eng.LastHandle().SimulateComplete()
	if i.State() != Finished {
		t.Fatalf("State() = %v, want Finished", i.State())
	}

	i.Play(nil)
	if i.State() != Succeeded {
		t.Errorf("State() = %v on replay, want Succeeded", i.State())
	}
	if len(eng.Handles()) != 2 {
		t.Errorf("handles = %d, want a fresh handle per attempt", len(eng.Handles()))
	}
}
