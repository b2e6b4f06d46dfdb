// Package testutil provides testing fakes for the store's collaborators.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"deuxgo"
)

// RemoteCall records one invocation of the fake remote client.
type RemoteCall struct {
	Type    deuxgo.OpType
	TodoID  int64
	Payload deuxgo.OpPayload
}

// FakeRemote is an in-memory deuxgo.RemoteClient. By default every call
// succeeds; CREATE responses carry server ids counting up from NextServerID.
type FakeRemote struct {
	mu    sync.Mutex
	calls []RemoteCall

	// NextServerID seeds the ids handed out for CREATE responses.
	NextServerID int64

	// Script, when set, decides the result of every Execute call and
	// overrides the defaults below.
	Script func(call RemoteCall) (deuxgo.RemoteResult, error)

	// ExecuteErr makes every Execute return a transport error.
	ExecuteErr error

	// FailTypes maps operation types to an HTTP status to fail them with.
	FailTypes map[deuxgo.OpType]int

	// Gate, when non-nil, blocks each Execute call until a value is sent
	// on it. Used to hold a replay open.
	Gate chan struct{}

	// ListBody is returned by ListTodos.
	ListBody string
}

var _ deuxgo.RemoteClient = (*FakeRemote)(nil)

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		NextServerID: 100,
		FailTypes:    make(map[deuxgo.OpType]int),
	}
}

// Calls returns a copy of the recorded calls.
func (f *FakeRemote) Calls() []RemoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]RemoteCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Execute implements deuxgo.RemoteClient.
func (f *FakeRemote) Execute(ctx context.Context, t deuxgo.OpType, todoID int64, payload deuxgo.OpPayload) (deuxgo.RemoteResult, error) {
	if f.Gate != nil {
		<-f.Gate
	}

	call := RemoteCall{Type: t, TodoID: todoID, Payload: payload}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	script := f.Script
	executeErr := f.ExecuteErr
	failStatus := f.FailTypes[t]
	serverID := f.NextServerID
	if t == deuxgo.OpCreate {
		f.NextServerID++
	}
	f.mu.Unlock()

	if script != nil {
		return script(call)
	}
	if executeErr != nil {
		return deuxgo.RemoteResult{}, executeErr
	}
	if failStatus != 0 {
		return deuxgo.RemoteResult{Success: false, StatusCode: failStatus, Body: "{}"}, nil
	}
	if t == deuxgo.OpCreate {
		return deuxgo.RemoteResult{
			Success:    true,
			StatusCode: 200,
			Body:       fmt.Sprintf(`{"todo":{"id":%d}}`, serverID),
		}, nil
	}
	return deuxgo.RemoteResult{Success: true, StatusCode: 200, Body: "{}"}, nil
}

// ListTodos implements deuxgo.RemoteClient.
func (f *FakeRemote) ListTodos(ctx context.Context, since, until string) (deuxgo.RemoteResult, error) {
	f.mu.Lock()
	body := f.ListBody
	f.mu.Unlock()
	if body == "" {
		body = `{"todos":[]}`
	}
	return deuxgo.RemoteResult{Success: true, StatusCode: 200, Body: body}, nil
}
