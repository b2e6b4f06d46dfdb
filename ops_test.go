package deuxgo

import (
	"testing"
)

func TestEncodePayloadWireFormat(t *testing.T) {
	tests := []struct {
		name    string
		opType  OpType
		payload OpPayload
		want    string
	}{
		{"create", OpCreate, CreatePayload{Text: "buy milk", Date: "2026-08-31"}, `{"text":"buy milk","current_date":"2026-08-31"}`},
		{"update", OpUpdate, UpdatePayload{Text: "buy oat milk"}, `{"text":"buy oat milk"}`},
		{"delete", OpDelete, DeletePayload{}, `{}`},
		{"toggle", OpToggleDone, TogglePayload{Done: true}, `{"done":true}`},
		{"reposition", OpReposition, RepositionPayload{Date: "2026-09-01", Position: 0}, `{"current_date":"2026-09-01","position":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodePayload(tt.opType, tt.payload)
			if err != nil {
				t.Fatalf("EncodePayload: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("EncodePayload = %s, want %s", got, tt.want)
			}

			decoded, err := DecodePayload(tt.opType, got)
			if err != nil {
				t.Fatalf("DecodePayload: %v", err)
			}
			if decoded != tt.payload {
				t.Errorf("DecodePayload = %#v, want %#v", decoded, tt.payload)
			}
		})
	}
}

func TestEncodePayloadRejectsMismatch(t *testing.T) {
	if _, err := EncodePayload(OpCreate, UpdatePayload{Text: "x"}); err == nil {
		t.Error("expected error for mismatched payload type")
	}
	if _, err := EncodePayload(OpType("BOGUS"), DeletePayload{}); err == nil {
		t.Error("expected error for unknown operation type")
	}
}

func TestExtractTodoID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int64
		wantErr bool
	}{
		{"wrapped", `{"todo":{"id":42,"text":"x"}}`, 42, false},
		{"bare", `{"id":7,"text":"x"}`, 7, false},
		{"no id", `{"status":"ok"}`, 0, true},
		{"not json", `<html>`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTodoID(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTodoID: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractTodoID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTodoList(t *testing.T) {
	wrapped := `{"todos":[{"id":1,"text":"a","done":false,"current_date":"2026-08-31"}]}`
	todos, err := ParseTodoList(wrapped)
	if err != nil {
		t.Fatalf("ParseTodoList: %v", err)
	}
	if len(todos) != 1 || todos[0].ID != 1 || todos[0].Text != "a" {
		t.Errorf("unexpected todos: %#v", todos)
	}

	bare := `[{"id":2,"text":"b","done":true,"current_date":"2026-09-01"}]`
	todos, err = ParseTodoList(bare)
	if err != nil {
		t.Fatalf("ParseTodoList bare: %v", err)
	}
	if len(todos) != 1 || todos[0].ID != 2 || !todos[0].Done {
		t.Errorf("unexpected todos: %#v", todos)
	}

	if _, err := ParseTodoList("nope"); err == nil {
		t.Error("expected error for invalid body")
	}
}

func TestTaskRefNamespaces(t *testing.T) {
	server := ServerRef(10)
	if id, ok := server.ServerID(); !ok || id != 10 {
		t.Errorf("ServerID = %d, %v", id, ok)
	}
	if _, ok := server.LocalID(); ok {
		t.Error("server ref must not expose a local id")
	}

	local := LocalRef(3)
	if id, ok := local.LocalID(); !ok || id != 3 {
		t.Errorf("LocalID = %d, %v", id, ok)
	}
	if _, ok := local.ServerID(); ok {
		t.Error("local ref must not expose a server id")
	}

	if !(TaskRef{}).IsZero() {
		t.Error("zero ref must be zero")
	}

	synced := ExistingTodo{LocalID: 5, ServerID: 99}
	if synced.Ref() != ServerRef(99) {
		t.Errorf("Ref = %v, want server:99", synced.Ref())
	}
	unsynced := ExistingTodo{LocalID: 5}
	if unsynced.Ref() != LocalRef(5) {
		t.Errorf("Ref = %v, want local:5", unsynced.Ref())
	}
}
