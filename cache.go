package operation

import "sync"

// MemoryPressureSource is the abstract collaborator a Client can subscribe
// to for memory-pressure-driven eviction. Concrete sources (cgroup
// watchers, mobile OS callbacks) live outside the core.
type MemoryPressureSource interface {
	Subscribe(f func(Pressure)) Subscription
}

// ManualPressureSource is a MemoryPressureSource an application or test
// drives explicitly by calling Report.
type ManualPressureSource struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]func(Pressure)
}

// NewManualPressureSource builds a MemoryPressureSource with no automatic
// signal; callers trigger it via Report.
func NewManualPressureSource() *ManualPressureSource {
	return &ManualPressureSource{subscribers: make(map[uint64]func(Pressure))}
}

// Subscribe registers f to be called on every Report.
func (m *ManualPressureSource) Subscribe(f func(Pressure)) Subscription {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = f
	m.mu.Unlock()

	return NewSubscription(func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	})
}

// Report announces a pressure level to every subscriber.
func (m *ManualPressureSource) Report(p Pressure) {
	m.mu.Lock()
	subs := make([]func(Pressure), 0, len(m.subscribers))
	for _, f := range m.subscribers {
		subs = append(subs, f)
	}
	m.mu.Unlock()

	for _, f := range subs {
		f(p)
	}
}
