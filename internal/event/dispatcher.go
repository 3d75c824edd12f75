// Package event provides a small synchronous event dispatcher.
//
// Delivery is ordered and synchronous: Emit calls listeners one by one, in
// registration order, against a snapshot of the listener set taken at
// dispatch time. Listeners added or removed during a dispatch do not affect
// the in-flight delivery.
package event

import "sync"

// Event is delivered to listeners on Emit.
type Event struct {
	Name   string
	Target any // the object that emitted the event
	Data   any // event-specific payload, may be nil
}

// Listener is a registered handler. The value returned by On/Once is the
// handle used to remove it again.
type Listener struct {
	fn   func(Event)
	once bool
}

// Dispatcher fans events out to registered listeners.
// The zero value is not usable; use NewDispatcher.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[string][]*Listener
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]*Listener)}
}

// On registers fn for events with the given name.
func (d *Dispatcher) On(name string, fn func(Event)) *Listener {
	l := &Listener{fn: fn}
	d.mu.Lock()
	d.listeners[name] = append(d.listeners[name], l)
	d.mu.Unlock()
	return l
}

// Once registers fn to be called at most once, then removed.
func (d *Dispatcher) Once(name string, fn func(Event)) *Listener {
	l := &Listener{fn: fn, once: true}
	d.mu.Lock()
	d.listeners[name] = append(d.listeners[name], l)
	d.mu.Unlock()
	return l
}

// Off removes a listener previously returned by On or Once.
// Removing an unknown listener is a no-op.
func (d *Dispatcher) Off(name string, l *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(name, l)
}

func (d *Dispatcher) removeLocked(name string, l *Listener) {
	list := d.listeners[name]
	for i, cand := range list {
		if cand == l {
			d.listeners[name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every listener for name, or every listener of the
// dispatcher when name is empty.
func (d *Dispatcher) RemoveAll(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name == "" {
		d.listeners = make(map[string][]*Listener)
		return
	}
	delete(d.listeners, name)
}

// HasListeners reports whether any listener is registered for name.
func (d *Dispatcher) HasListeners(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[name]) > 0
}

// Emit delivers the event synchronously to the listeners registered for
// e.Name at the time of the call.
func (d *Dispatcher) Emit(name string, target, data any) {
	d.mu.Lock()
	list := d.listeners[name]
	snapshot := make([]*Listener, len(list))
	copy(snapshot, list)
	for _, l := range snapshot {
		if l.once {
			d.removeLocked(name, l)
		}
	}
	d.mu.Unlock()

	e := Event{Name: name, Target: target, Data: data}
	for _, l := range snapshot {
		l.fn(e)
	}
}
