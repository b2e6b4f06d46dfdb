package deuxgo

import (
	"context"
	"encoding/json"
	"fmt"
)

// RemoteResult is the outcome of one remote call. Success reflects the HTTP
// status class; Body is the raw response.
type RemoteResult struct {
	Success    bool
	StatusCode int
	Body       string
}

// RemoteClient performs one remote call per logical todo operation. Retry,
// batching and timeout policy do not belong here; a timed-out or failed
// transport simply surfaces as an error or an unsuccessful result.
type RemoteClient interface {
	// Execute performs the remote call for one operation. todoID is the
	// server identity target and is ignored for CREATE.
	Execute(ctx context.Context, t OpType, todoID int64, payload OpPayload) (RemoteResult, error)

	// ListTodos fetches todos in the inclusive date range.
	ListTodos(ctx context.Context, since, until string) (RemoteResult, error)
}

// RemoteTodo is a todo as the remote service serializes it.
type RemoteTodo struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
	Date string `json:"current_date"`
}

// ExtractTodoID pulls the server-assigned id out of a create response.
// The service wraps the todo in a "todo" object; older responses are bare.
func ExtractTodoID(body string) (int64, error) {
	var wrapped struct {
		Todo *RemoteTodo `json:"todo"`
		ID   int64       `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
		return 0, fmt.Errorf("parse create response: %w", err)
	}
	if wrapped.Todo != nil && wrapped.Todo.ID != 0 {
		return wrapped.Todo.ID, nil
	}
	if wrapped.ID != 0 {
		return wrapped.ID, nil
	}
	return 0, fmt.Errorf("create response has no todo id: %.100s", body)
}

// ParseTodoList decodes a list response, accepting both a bare array and the
// {"todos":[...]} wrapper.
func ParseTodoList(body string) ([]RemoteTodo, error) {
	var todos []RemoteTodo
	if err := json.Unmarshal([]byte(body), &todos); err == nil {
		return todos, nil
	}
	var wrapped struct {
		Todos []RemoteTodo `json:"todos"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	return wrapped.Todos, nil
}
