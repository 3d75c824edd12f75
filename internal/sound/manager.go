package sound

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chime-audio/chime/internal/engine"
	"github.com/chime-audio/chime/internal/event"
	"github.com/chime-audio/chime/internal/loader"
)

// DefaultMaxChannels caps simultaneous instances per source when no
// explicit value is configured.
const DefaultMaxChannels = 16

// ResourceSink is implemented by engines that want decoded resources
// pushed to them as loads complete.
type ResourceSink interface {
	AddResource(res *loader.Resource)
}

// Manager is the top-level façade: it registers sources with the loader,
// creates instances, and arbitrates contention between instances sharing
// a source. It implements Arbiter.
type Manager struct {
	mu sync.Mutex

	engine      engine.Engine
	loader      *loader.Loader
	log         *zap.SugaredLogger
	maxChannels int

	lastID int
	active map[string][]*Instance
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	MaxChannels int // per-source cap; 0 means DefaultMaxChannels
	Log         *zap.SugaredLogger
}

// NewManager wires an engine and a loader together. The loader may be nil
// when resources are registered with the engine directly (tests, embedded
// assets).
func NewManager(eng engine.Engine, ld *loader.Loader, opts ManagerOptions) *Manager {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	maxChannels := opts.MaxChannels
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	m := &Manager{
		engine:      eng,
		loader:      ld,
		log:         log,
		maxChannels: maxChannels,
		active:      make(map[string][]*Instance),
	}
	if ld != nil {
		if sink, ok := eng.(ResourceSink); ok {
			ld.On(loader.EventFileLoad, func(e event.Event) {
				if res, ok := e.Data.(*loader.Resource); ok {
					sink.AddResource(res)
				}
			})
		}
	}
	return m
}

// Start releases loads queued behind engine initialization. Call it after
// the engine reports ready; queued loads replay in submission order.
func (m *Manager) Start() {
	if m.loader == nil {
		return
	}
	if m.engine != nil && m.engine.Ready() {
		m.loader.EngineReady()
	}
}

// RegisterSound requests loading of a source so instances can play it.
func (m *Manager) RegisterSound(src string) error {
	if m.loader == nil {
		return nil
	}
	return m.loader.Load(src)
}

// RemoveSound drops a loaded source from the loader and the engine. Live
// instances keep their already-acquired handles.
func (m *Manager) RemoveSound(src string) {
	if m.loader != nil {
		m.loader.Unload(src)
	}
	if rm, ok := m.engine.(interface{ RemoveResource(string) }); ok {
		rm.RemoveResource(src)
	}
}

// IsPreloadComplete reports whether the source is decoded and playable.
func (m *Manager) IsPreloadComplete(src string) bool {
	return m.engine != nil && m.engine.IsPreloadComplete(src)
}

// CreateInstance builds a registered session for src. spriteStart and
// duration carve a sub-clip; both zero plays the whole resource.
func (m *Manager) CreateInstance(src string, spriteStart, duration time.Duration) *Instance {
	i := NewInstance(src, spriteStart, duration, m.engine, m)
	m.mu.Lock()
	m.lastID++
	i.id = m.lastID
	m.mu.Unlock()
	return i
}

// Play creates an instance for src and starts it with opts.
func (m *Manager) Play(src string, opts *PlayOptions) *Instance {
	i := m.CreateInstance(src, 0, 0)
	i.Play(opts)
	return i
}

// StopAll stops every active instance.
func (m *Manager) StopAll() {
	m.mu.Lock()
	var all []*Instance
	for _, list := range m.active {
		all = append(all, list...)
	}
	m.mu.Unlock()
	for _, i := range all {
		i.Stop()
	}
}

// ActiveCount returns the number of active instances for src.
func (m *Manager) ActiveCount(src string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active[src])
}

// PlayInstance arbitrates a session's play request. When the per-source
// cap is reached, the interrupt policy picks a victim to preempt or
// denies the request. Accepted requests are scheduled (after any delay)
// onto the session's begin-playing step; a begin failure is surfaced by
// the session itself, so this still counts as accepted.
func (m *Manager) PlayInstance(i *Instance, o PlayOptions) bool {
	src := i.Source()

	m.mu.Lock()
	list := m.active[src]
	if len(list) >= m.maxChannels {
		snapshot := make([]*Instance, len(list))
		copy(snapshot, list)
		m.mu.Unlock()

		victim := chooseVictim(snapshot, o.Interrupt)
		if victim == nil {
			m.log.Debugw("play denied", "src", src, "policy", o.Interrupt)
			return false
		}
		m.log.Debugw("interrupting instance", "src", src, "id", victim.ID(), "policy", o.Interrupt)
		victim.Interrupt()
		m.mu.Lock()
	}
	m.active[src] = append(m.active[src], i)
	m.mu.Unlock()

	if o.Delay > 0 {
		i.delayBegin(o)
		return true
	}
	i.BeginPlaying(o)
	return true
}

// PlayFinished reclaims the channel slot of a finished session. Unknown
// instances are tolerated: cleanup runs even for attempts that never got
// a slot.
func (m *Manager) PlayFinished(i *Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.active[i.Source()]
	for idx, cand := range list {
		if cand == i {
			m.active[i.Source()] = append(list[:idx:idx], list[idx+1:]...)
			return
		}
	}
}

// chooseVictim applies the interrupt policy to the active list, oldest
// first. Position reads use the live engine clock.
func chooseVictim(list []*Instance, policy Interrupt) *Instance {
	if len(list) == 0 {
		return nil
	}
	switch policy {
	case InterruptAny:
		return list[0]
	case InterruptEarly:
		victim := list[0]
		for _, cand := range list[1:] {
			if cand.Position() < victim.Position() {
				victim = cand
			}
		}
		return victim
	case InterruptLate:
		victim := list[0]
		for _, cand := range list[1:] {
			if cand.Position() > victim.Position() {
				victim = cand
			}
		}
		return victim
	default:
		return nil
	}
}

// Verify Manager implements Arbiter at compile time.
var _ Arbiter = (*Manager)(nil)
