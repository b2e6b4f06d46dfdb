package deuxgo

import "strconv"

// SyncStatus marks whether a todo row matches what the server last
// acknowledged.
type SyncStatus int

const (
	SyncStatusSynced SyncStatus = iota
	SyncStatusPending
)

// TodoRecord represents the data needed to create a todo row
type TodoRecord struct {
	Text       string
	Done       bool
	Date       string // calendar date, YYYY-MM-DD
	SyncStatus SyncStatus
}

// ExistingTodo represents a todo row that exists in the database
type ExistingTodo struct {
	TodoRecord
	LocalID  int64
	ServerID int64 // 0 until the create has been acknowledged by the server
}

// Ref returns the strongest identity currently known for the todo:
// the server identity once synced, the local identity before that.
func (t ExistingTodo) Ref() TaskRef {
	if t.ServerID != 0 {
		return ServerRef(t.ServerID)
	}
	return LocalRef(t.LocalID)
}

// TaskRef identifies a todo in exactly one of the two id namespaces.
// Local and server ids live in separate sequences, so a raw integer is
// ambiguous; TaskRef makes the namespace part of the value.
type TaskRef struct {
	id     int64
	server bool
}

func ServerRef(id int64) TaskRef { return TaskRef{id: id, server: true} }

func LocalRef(id int64) TaskRef { return TaskRef{id: id} }

// ServerID returns the server identity, if that is the ref's namespace.
func (r TaskRef) ServerID() (int64, bool) {
	if !r.server {
		return 0, false
	}
	return r.id, true
}

// LocalID returns the local identity, if that is the ref's namespace.
func (r TaskRef) LocalID() (int64, bool) {
	if r.server {
		return 0, false
	}
	return r.id, true
}

func (r TaskRef) IsZero() bool { return r.id == 0 }

func (r TaskRef) String() string {
	if r.server {
		return "server:" + strconv.FormatInt(r.id, 10)
	}
	return "local:" + strconv.FormatInt(r.id, 10)
}
