package testutil

import (
	"sync"

	"deuxgo"
)

// FakeMonitor is an in-memory deuxgo.ConnectivityMonitor with a settable
// state. Listeners fire only on actual transitions, as the contract demands.
type FakeMonitor struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	nextID    int
}

var _ deuxgo.ConnectivityMonitor = (*FakeMonitor)(nil)

func NewFakeMonitor(online bool) *FakeMonitor {
	return &FakeMonitor{
		online:    online,
		listeners: make(map[int]func(bool)),
	}
}

func (m *FakeMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline flips the state, notifying listeners on a transition.
func (m *FakeMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
}

func (m *FakeMonitor) Subscribe(listener func(online bool)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}
