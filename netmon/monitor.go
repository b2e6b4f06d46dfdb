// Package netmon implements deuxgo's ConnectivityMonitor by polling a
// reachability probe and notifying listeners on state transitions.
package netmon

import (
	"context"
	"net"
	"sync"
	"time"

	"deuxgo"
)

// Probe reports whether the network currently looks reachable.
type Probe func(ctx context.Context) bool

// DialProbe probes connectivity with a TCP dial to addr.
func DialProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

type Monitor struct {
	probe    Probe
	interval time.Duration
	l        deuxgo.Logger

	mu        sync.Mutex
	lastKnown bool
	listeners map[int]func(bool)
	nextID    int
	stop      chan struct{}
	done      chan struct{}
}

var _ deuxgo.ConnectivityMonitor = (*Monitor)(nil)

func New(probe Probe, interval time.Duration, logger deuxgo.Logger) *Monitor {
	return &Monitor{
		probe:     probe,
		interval:  interval,
		l:         logger,
		listeners: make(map[int]func(bool)),
	}
}

// IsOnline is a point-in-time probe of the network.
func (m *Monitor) IsOnline() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	return m.probe(ctx)
}

func (m *Monitor) Subscribe(listener func(online bool)) (cancel func()) {
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

// Start begins background polling. Listeners are notified exactly once per
// observed transition.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.lastKnown = m.IsOnline()
	m.l.Info("network monitor started", "online", m.lastKnown)
	m.mu.Unlock()

	go m.poll(stop, done)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stop == nil {
		m.mu.Unlock()
		return
	}
	stop, done := m.stop, m.done
	m.stop = nil
	m.done = nil
	m.mu.Unlock()

	close(stop)
	<-done
	m.l.Info("network monitor stopped")
}

func (m *Monitor) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	online := m.IsOnline()

	m.mu.Lock()
	if online == m.lastKnown {
		m.mu.Unlock()
		return
	}
	m.lastKnown = online
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.l.Info("network state changed", "online", online)
	for _, fn := range listeners {
		fn(online)
	}
}
