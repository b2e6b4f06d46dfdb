package deuxgo

import "errors"

// ErrOffline is returned by operations that require connectivity.
var ErrOffline = errors.New("offline")

// ConnectivityMonitor answers "are we online now?" and notifies subscribers
// of transitions.
type ConnectivityMonitor interface {
	// IsOnline is a point-in-time check.
	IsOnline() bool

	// Subscribe registers a listener that is called with the new state
	// exactly once per observed transition. The returned func cancels the
	// subscription.
	Subscribe(listener func(online bool)) (cancel func())
}
