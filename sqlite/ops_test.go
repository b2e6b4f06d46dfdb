package sqlite

import (
	"context"
	"testing"

	"deuxgo"
)

func TestEnqueuePreservesOrder(t *testing.T) {
	_, queue := setupTestDB(t)
	ctx := context.Background()

	records := []deuxgo.OpRecord{
		{Type: deuxgo.OpCreate, LocalTodoID: 1, Payload: deuxgo.CreatePayload{Text: "first", Date: "2026-09-01"}},
		{Type: deuxgo.OpUpdate, LocalTodoID: 1, Payload: deuxgo.UpdatePayload{Text: "first edited"}},
		{Type: deuxgo.OpToggleDone, TodoID: 9, Payload: deuxgo.TogglePayload{Done: true}},
	}

	var prev int64
	for _, rec := range records {
		id, err := queue.Enqueue(ctx, rec)
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if id <= prev {
			t.Errorf("ids must increase: %d after %d", id, prev)
		}
		prev = id
	}

	ops, err := queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	for i, rec := range records {
		if ops[i].Type != rec.Type {
			t.Errorf("op %d type = %s, want %s", i, ops[i].Type, rec.Type)
		}
		if ops[i].Payload != rec.Payload {
			t.Errorf("op %d payload = %#v, want %#v", i, ops[i].Payload, rec.Payload)
		}
		if ops[i].RetryCount != 0 {
			t.Errorf("op %d retry count = %d, want 0", i, ops[i].RetryCount)
		}
	}
	if ops[2].TodoID != 9 {
		t.Errorf("op 2 todo id = %d, want 9", ops[2].TodoID)
	}
	if ops[0].LocalTodoID != 1 {
		t.Errorf("op 0 local todo id = %d, want 1", ops[0].LocalTodoID)
	}
}

func TestReassignTodoIDTouchesOnlyUnresolvedOps(t *testing.T) {
	_, queue := setupTestDB(t)
	ctx := context.Background()

	// Two ops waiting on the id of local todo 3, one already resolved,
	// one belonging to a different local todo.
	if _, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpUpdate, LocalTodoID: 3, Payload: deuxgo.UpdatePayload{Text: "a"}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpToggleDone, LocalTodoID: 3, Payload: deuxgo.TogglePayload{Done: true}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpDelete, TodoID: 50, LocalTodoID: 3, Payload: deuxgo.DeletePayload{}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpUpdate, LocalTodoID: 4, Payload: deuxgo.UpdatePayload{Text: "b"}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	n, err := queue.ReassignTodoID(ctx, 3, 77)
	if err != nil {
		t.Fatalf("ReassignTodoID: %v", err)
	}
	if n != 2 {
		t.Errorf("reassigned %d ops, want 2", n)
	}

	ops, err := queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	want := []int64{77, 77, 50, 0}
	for i, todoID := range want {
		if ops[i].TodoID != todoID {
			t.Errorf("op %d todo id = %d, want %d", i, ops[i].TodoID, todoID)
		}
	}
}

func TestReassignTodoIDValidatesArgs(t *testing.T) {
	_, queue := setupTestDB(t)
	ctx := context.Background()

	if _, err := queue.ReassignTodoID(ctx, 0, 77); err == nil {
		t.Error("expected error for zero local id")
	}
	if _, err := queue.ReassignTodoID(ctx, 3, 0); err == nil {
		t.Error("expected error for zero server id")
	}
}

func TestIncrementRetryAndRemove(t *testing.T) {
	_, queue := setupTestDB(t)
	ctx := context.Background()

	id, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpUpdate, TodoID: 1, Payload: deuxgo.UpdatePayload{Text: "x"}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := queue.IncrementRetry(ctx, id); err != nil {
			t.Fatalf("IncrementRetry: %v", err)
		}
	}
	ops, err := queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(ops) != 1 || ops[0].RetryCount != 3 {
		t.Fatalf("ops = %+v, want one op with retry count 3", ops)
	}

	if err := queue.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	count, err := queue.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after remove", count)
	}
}

func TestClear(t *testing.T) {
	_, queue := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := queue.Enqueue(ctx, deuxgo.OpRecord{Type: deuxgo.OpDelete, TodoID: int64(i + 1), Payload: deuxgo.DeletePayload{}}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := queue.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err := queue.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after clear", count)
	}
}
