package event

import "testing"

func TestDispatcher_DeliversInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var got []string

	d.On("ping", func(Event) { got = append(got, "a") })
	d.On("ping", func(Event) { got = append(got, "b") })
	d.On("ping", func(Event) { got = append(got, "c") })

	d.Emit("ping", nil, nil)

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d calls, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcher_SnapshotAtDispatchTime(t *testing.T) {
	d := NewDispatcher()
	var calls int

	// A listener that registers another listener mid-dispatch: the new one
	// must not run during the same emit.
	d.On("ping", func(Event) {
		calls++
		d.On("ping", func(Event) { calls += 100 })
	})

	d.Emit("ping", nil, nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (listener added during dispatch ran early)", calls)
	}
}

func TestDispatcher_RemovalDuringDispatchKeepsSnapshot(t *testing.T) {
	d := NewDispatcher()
	var got []string

	var second *Listener
	d.On("ping", func(Event) {
		got = append(got, "first")
		d.Off("ping", second)
	})
	second = d.On("ping", func(Event) { got = append(got, "second") })

	d.Emit("ping", nil, nil)

	// The snapshot taken at dispatch time still includes the second
	// listener; only the next emit skips it.
	if len(got) != 2 {
		t.Fatalf("first emit delivered %d calls, want 2", len(got))
	}

	got = nil
	d.Emit("ping", nil, nil)
	if len(got) != 1 || got[0] != "first" {
		t.Errorf("second emit delivered %v, want [first]", got)
	}
}

func TestDispatcher_OnceRunsOnce(t *testing.T) {
	d := NewDispatcher()
	var calls int

	d.Once("ping", func(Event) { calls++ })

	d.Emit("ping", nil, nil)
	d.Emit("ping", nil, nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDispatcher_OffUnknownListenerIsNoop(t *testing.T) {
	d := NewDispatcher()
	l := d.On("ping", func(Event) {})
	d.Off("pong", l)
	d.Off("ping", &Listener{})

	if !d.HasListeners("ping") {
		t.Error("listener was removed by unrelated Off calls")
	}
}

func TestDispatcher_EventCarriesTargetAndData(t *testing.T) {
	d := NewDispatcher()
	target := struct{ name string }{"session"}

	var got Event
	d.On("ping", func(e Event) { got = e })
	d.Emit("ping", target, 42)

	if got.Name != "ping" {
		t.Errorf("Name = %q, want ping", got.Name)
	}
	if got.Target != target {
		t.Errorf("Target = %v, want %v", got.Target, target)
	}
	if got.Data != 42 {
		t.Errorf("Data = %v, want 42", got.Data)
	}
}

func TestDispatcher_RemoveAll(t *testing.T) {
	d := NewDispatcher()
	d.On("a", func(Event) {})
	d.On("b", func(Event) {})

	d.RemoveAll("a")
	if d.HasListeners("a") {
		t.Error("listeners for a survived RemoveAll(a)")
	}
	if !d.HasListeners("b") {
		t.Error("listeners for b were dropped by RemoveAll(a)")
	}

	d.RemoveAll("")
	if d.HasListeners("b") {
		t.Error("listeners survived RemoveAll(\"\")")
	}
}
