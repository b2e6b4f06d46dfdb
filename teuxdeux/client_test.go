package teuxdeux

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"deuxgo"
	"deuxgo/charmlog"
)

type captured struct {
	method      string
	path        string
	query       string
	body        string
	auth        string
	contentType string
}

func newTestClient(t *testing.T, status int, respBody string) (*Client, *captured) {
	t.Helper()

	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.body = string(body)
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	logger := charmlog.NewLogger(charmlog.Options{Writer: io.Discard})
	return NewClient(srv.URL, "Bearer test-token", 12, srv.Client(), logger), got
}

func TestExecuteRoutes(t *testing.T) {
	tests := []struct {
		name       string
		opType     deuxgo.OpType
		todoID     int64
		payload    deuxgo.OpPayload
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{
			name:       "create",
			opType:     deuxgo.OpCreate,
			payload:    deuxgo.CreatePayload{Text: "buy milk", Date: "2026-09-01"},
			wantMethod: http.MethodPost,
			wantPath:   "/workspaces/12/todos",
			wantBody:   `{"text":"buy milk","current_date":"2026-09-01"}`,
		},
		{
			name:       "update",
			opType:     deuxgo.OpUpdate,
			todoID:     42,
			payload:    deuxgo.UpdatePayload{Text: "buy oat milk"},
			wantMethod: http.MethodPatch,
			wantPath:   "/workspaces/12/todos/42",
			wantBody:   `{"text":"buy oat milk"}`,
		},
		{
			name:       "delete",
			opType:     deuxgo.OpDelete,
			todoID:     42,
			payload:    deuxgo.DeletePayload{},
			wantMethod: http.MethodDelete,
			wantPath:   "/workspaces/12/todos/42",
			wantBody:   "",
		},
		{
			name:       "toggle done",
			opType:     deuxgo.OpToggleDone,
			todoID:     42,
			payload:    deuxgo.TogglePayload{Done: true},
			wantMethod: http.MethodPost,
			wantPath:   "/workspaces/12/todos/42/state",
			wantBody:   `{"done":true}`,
		},
		{
			name:       "reposition",
			opType:     deuxgo.OpReposition,
			todoID:     42,
			payload:    deuxgo.RepositionPayload{Date: "2026-09-02", Position: 3},
			wantMethod: http.MethodPost,
			wantPath:   "/workspaces/12/todos/42/reposition",
			wantBody:   `{"current_date":"2026-09-02","position":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, got := newTestClient(t, http.StatusOK, `{"todo":{"id":1}}`)

			res, err := client.Execute(context.Background(), tt.opType, tt.todoID, tt.payload)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !res.Success || res.StatusCode != http.StatusOK {
				t.Errorf("result = %+v", res)
			}

			if got.method != tt.wantMethod {
				t.Errorf("method = %s, want %s", got.method, tt.wantMethod)
			}
			if got.path != tt.wantPath {
				t.Errorf("path = %s, want %s", got.path, tt.wantPath)
			}
			if got.body != tt.wantBody {
				t.Errorf("body = %s, want %s", got.body, tt.wantBody)
			}
			if got.auth != "Bearer test-token" {
				t.Errorf("auth header = %q", got.auth)
			}
			if tt.wantBody != "" && got.contentType != "application/json" {
				t.Errorf("content type = %q", got.contentType)
			}
		})
	}
}

func TestExecuteRejectsMismatchedPayload(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, "{}")

	if _, err := client.Execute(context.Background(), deuxgo.OpCreate, 0, deuxgo.UpdatePayload{Text: "x"}); err == nil {
		t.Error("expected error for mismatched payload")
	}
	if _, err := client.Execute(context.Background(), deuxgo.OpType("BOGUS"), 0, deuxgo.DeletePayload{}); err == nil {
		t.Error("expected error for unknown operation type")
	}
}

func TestExecuteReportsServerRejection(t *testing.T) {
	client, _ := newTestClient(t, http.StatusUnprocessableEntity, `{"error":"text required"}`)

	res, err := client.Execute(context.Background(), deuxgo.OpCreate, 0, deuxgo.CreatePayload{Text: "", Date: "2026-09-01"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true for a 422 response")
	}
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", res.StatusCode)
	}
	if res.Body != `{"error":"text required"}` {
		t.Errorf("Body = %s", res.Body)
	}
}

func TestListTodos(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"todos":[{"id":1,"text":"a","done":false,"current_date":"2026-09-01"}]}`)

	res, err := client.ListTodos(context.Background(), "2026-09-01", "2026-09-07")
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
	if got.method != http.MethodGet {
		t.Errorf("method = %s", got.method)
	}
	if got.path != "/workspaces/12/todos" {
		t.Errorf("path = %s", got.path)
	}
	if got.query != "since=2026-09-01&until=2026-09-07" {
		t.Errorf("query = %s", got.query)
	}

	todos, err := deuxgo.ParseTodoList(res.Body)
	if err != nil {
		t.Fatalf("ParseTodoList: %v", err)
	}
	if len(todos) != 1 || todos[0].Text != "a" {
		t.Errorf("todos = %+v", todos)
	}
}
