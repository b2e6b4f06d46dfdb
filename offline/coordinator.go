// Package offline makes every todo mutation offline-safe and replays the
// queued mutations to convergence.
//
// A mutation is written to the local store first, unconditionally. If the
// network is up and the todo already has a server identity, one remote call
// follows and its failure is surfaced to the caller. In every other case the
// mutation is recorded as a pending operation and reported as accepted; the
// queue is replayed, strictly in order, when connectivity returns or a sync
// is requested.
package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Thiht/transactor"

	"deuxgo"
)

// MaxRetryCount is the replay retry ceiling. An operation that has already
// failed this many times is dropped on its next replay without another
// remote call. Dropping is deliberate, logged data loss.
const MaxRetryCount = 3

type runState int

const (
	stateIdle runState = iota
	stateRunning
)

// SyncListener receives the outcome of one replay run.
type SyncListener func(success bool, errMsg string)

type Coordinator struct {
	store   deuxgo.TodoStore
	queue   deuxgo.OpQueue
	remote  deuxgo.RemoteClient
	monitor deuxgo.ConnectivityMonitor
	tx      transactor.Transactor
	l       deuxgo.Logger

	mu            sync.Mutex
	state         runState
	listeners     map[int]SyncListener
	nextID        int
	cancelMonitor func()
	wg            sync.WaitGroup
}

func New(
	store deuxgo.TodoStore,
	queue deuxgo.OpQueue,
	remote deuxgo.RemoteClient,
	monitor deuxgo.ConnectivityMonitor,
	tx transactor.Transactor,
	logger deuxgo.Logger,
) *Coordinator {
	return &Coordinator{
		store:     store,
		queue:     queue,
		remote:    remote,
		monitor:   monitor,
		tx:        tx,
		l:         logger,
		listeners: make(map[int]SyncListener),
	}
}

// Start subscribes to connectivity transitions so that going online
// triggers a replay. Close undoes it.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelMonitor != nil {
		return
	}
	c.cancelMonitor = c.monitor.Subscribe(func(online bool) {
		if online && !c.Syncing() {
			c.l.Info("network online - starting sync")
			c.SyncPendingOperations()
		}
	})
}

// Close cancels the connectivity subscription and waits for an in-flight
// replay to finish its current operation and exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	cancel := c.cancelMonitor
	c.cancelMonitor = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// Syncing reports whether a replay run is active.
func (c *Coordinator) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// AddSyncListener registers a listener for replay outcomes. The returned
// func cancels the registration.
func (c *Coordinator) AddSyncListener(listener SyncListener) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = listener

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Coordinator) PendingOperationCount(ctx context.Context) (int, error) {
	return c.queue.Count(ctx)
}

// Todos returns the locally stored todos for the date range, for instant
// display before any remote refresh completes.
func (c *Coordinator) Todos(ctx context.Context, start, end string) ([]deuxgo.ExistingTodo, error) {
	return c.store.GetRange(ctx, start, end)
}

// ==================== MUTATIONS ====================

// CreateTodo adds a todo for the given date. Offline, the todo is stored
// under a local-only identity and a CREATE is queued; the identity is
// reconciled when the queue replays.
func (c *Coordinator) CreateTodo(ctx context.Context, text, date string) (deuxgo.ExistingTodo, error) {
	rec := deuxgo.TodoRecord{Text: text, Date: date, SyncStatus: deuxgo.SyncStatusPending}
	localID, err := c.store.SaveTodo(ctx, 0, 0, rec)
	if err != nil {
		return deuxgo.ExistingTodo{}, fmt.Errorf("save todo: %w", err)
	}

	if c.monitor.IsOnline() {
		payload := deuxgo.CreatePayload{Text: text, Date: date}
		res, err := c.remote.Execute(ctx, deuxgo.OpCreate, 0, payload)
		if err != nil {
			return deuxgo.ExistingTodo{}, fmt.Errorf("create todo: %w", err)
		}
		if !res.Success {
			return deuxgo.ExistingTodo{}, fmt.Errorf("create todo: server returned %d", res.StatusCode)
		}

		serverID, err := deuxgo.ExtractTodoID(res.Body)
		if err != nil {
			// The todo exists remotely now; keep the local-only row rather
			// than risking a duplicate create.
			c.l.Warn("created remotely but could not read server id", "err", err)
			return deuxgo.ExistingTodo{TodoRecord: rec, LocalID: localID}, nil
		}

		rec.SyncStatus = deuxgo.SyncStatusSynced
		err = c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := c.store.DeleteByLocalID(ctx, localID); err != nil {
				return err
			}
			id, err := c.store.SaveTodo(ctx, serverID, 0, rec)
			localID = id
			return err
		})
		if err != nil {
			return deuxgo.ExistingTodo{}, fmt.Errorf("reconcile created todo: %w", err)
		}
		return deuxgo.ExistingTodo{TodoRecord: rec, LocalID: localID, ServerID: serverID}, nil
	}

	_, err = c.queue.Enqueue(ctx, deuxgo.OpRecord{
		Type:        deuxgo.OpCreate,
		LocalTodoID: localID,
		Payload:     deuxgo.CreatePayload{Text: text, Date: date},
	})
	if err != nil {
		return deuxgo.ExistingTodo{}, fmt.Errorf("queue create: %w", err)
	}
	return deuxgo.ExistingTodo{TodoRecord: rec, LocalID: localID}, nil
}

// UpdateTodoText changes a todo's text.
func (c *Coordinator) UpdateTodoText(ctx context.Context, ref deuxgo.TaskRef, text string) error {
	todo, err := c.lookup(ctx, ref)
	if err != nil {
		return err
	}

	rec := todo.TodoRecord
	rec.Text = text
	rec.SyncStatus = deuxgo.SyncStatusPending
	if _, err := c.store.SaveTodo(ctx, todo.ServerID, todo.LocalID, rec); err != nil {
		return fmt.Errorf("save todo: %w", err)
	}

	return c.dispatch(ctx, todo, rec, deuxgo.OpUpdate, deuxgo.UpdatePayload{Text: text})
}

// ToggleDone sets a todo's done flag.
func (c *Coordinator) ToggleDone(ctx context.Context, ref deuxgo.TaskRef, done bool) error {
	todo, err := c.lookup(ctx, ref)
	if err != nil {
		return err
	}

	rec := todo.TodoRecord
	rec.Done = done
	rec.SyncStatus = deuxgo.SyncStatusPending
	if _, err := c.store.SaveTodo(ctx, todo.ServerID, todo.LocalID, rec); err != nil {
		return fmt.Errorf("save todo: %w", err)
	}

	return c.dispatch(ctx, todo, rec, deuxgo.OpToggleDone, deuxgo.TogglePayload{Done: done})
}

// RepositionTodo moves a todo to a date and position.
func (c *Coordinator) RepositionTodo(ctx context.Context, ref deuxgo.TaskRef, date string, position int) error {
	todo, err := c.lookup(ctx, ref)
	if err != nil {
		return err
	}

	rec := todo.TodoRecord
	rec.Date = date
	rec.SyncStatus = deuxgo.SyncStatusPending
	if _, err := c.store.SaveTodo(ctx, todo.ServerID, todo.LocalID, rec); err != nil {
		return fmt.Errorf("save todo: %w", err)
	}

	return c.dispatch(ctx, todo, rec, deuxgo.OpReposition, deuxgo.RepositionPayload{Date: date, Position: position})
}

// DeleteTodo removes a todo locally and remotely.
func (c *Coordinator) DeleteTodo(ctx context.Context, ref deuxgo.TaskRef) error {
	todo, err := c.lookup(ctx, ref)
	if err != nil {
		return err
	}

	if todo.ServerID != 0 {
		err = c.store.DeleteByServerID(ctx, todo.ServerID)
	} else {
		err = c.store.DeleteByLocalID(ctx, todo.LocalID)
	}
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	if c.monitor.IsOnline() && todo.ServerID != 0 {
		res, err := c.remote.Execute(ctx, deuxgo.OpDelete, todo.ServerID, deuxgo.DeletePayload{})
		if err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
		if !res.Success {
			return fmt.Errorf("delete todo: server returned %d", res.StatusCode)
		}
		return nil
	}

	op := deuxgo.OpRecord{Type: deuxgo.OpDelete, TodoID: todo.ServerID, Payload: deuxgo.DeletePayload{}}
	if todo.ServerID == 0 {
		op.LocalTodoID = todo.LocalID
	}
	if _, err := c.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("queue delete: %w", err)
	}
	return nil
}

// dispatch finishes a non-create mutation: one direct remote call when the
// network is up and the todo has a server identity, a queued operation
// otherwise. A todo still in local-only identity always queues, so its
// operations replay after the CREATE that resolves its id.
func (c *Coordinator) dispatch(ctx context.Context, todo deuxgo.ExistingTodo, rec deuxgo.TodoRecord, t deuxgo.OpType, payload deuxgo.OpPayload) error {
	if c.monitor.IsOnline() && todo.ServerID != 0 {
		res, err := c.remote.Execute(ctx, t, todo.ServerID, payload)
		if err != nil {
			return fmt.Errorf("%s todo: %w", t, err)
		}
		if !res.Success {
			return fmt.Errorf("%s todo: server returned %d", t, res.StatusCode)
		}
		rec.SyncStatus = deuxgo.SyncStatusSynced
		if _, err := c.store.SaveTodo(ctx, todo.ServerID, todo.LocalID, rec); err != nil {
			return fmt.Errorf("mark todo synced: %w", err)
		}
		return nil
	}

	op := deuxgo.OpRecord{Type: t, TodoID: todo.ServerID, Payload: payload}
	if todo.ServerID == 0 {
		op.LocalTodoID = todo.LocalID
	}
	if _, err := c.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("queue %s: %w", t, err)
	}
	return nil
}

func (c *Coordinator) lookup(ctx context.Context, ref deuxgo.TaskRef) (deuxgo.ExistingTodo, error) {
	if serverID, ok := ref.ServerID(); ok {
		return c.store.GetByServerID(ctx, serverID)
	}
	if localID, ok := ref.LocalID(); ok {
		return c.store.GetByLocalID(ctx, localID)
	}
	return deuxgo.ExistingTodo{}, fmt.Errorf("empty task ref")
}

// ==================== REFRESH ====================

// Refresh pulls the remote todos for the date range and upserts them as
// synced rows.
func (c *Coordinator) Refresh(ctx context.Context, since, until string) error {
	if !c.monitor.IsOnline() {
		return deuxgo.ErrOffline
	}

	res, err := c.remote.ListTodos(ctx, since, until)
	if err != nil {
		return fmt.Errorf("list todos: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("list todos: server returned %d", res.StatusCode)
	}

	todos, err := deuxgo.ParseTodoList(res.Body)
	if err != nil {
		return err
	}
	for _, t := range todos {
		rec := deuxgo.TodoRecord{Text: t.Text, Done: t.Done, Date: t.Date, SyncStatus: deuxgo.SyncStatusSynced}
		if _, err := c.store.SaveTodo(ctx, t.ID, 0, rec); err != nil {
			return fmt.Errorf("save fetched todo %d: %w", t.ID, err)
		}
	}
	c.l.Info("refreshed todos from server", "count", len(todos), "since", since, "until", until)
	return nil
}

// ==================== QUEUE REPLAY ====================

// SyncPendingOperations replays the queued operations against the remote
// service. It returns immediately: a run already in progress makes the call
// a no-op, being offline reports an immediate failure to the listeners, and
// otherwise the replay proceeds on its own goroutine, delivering a single
// completion notification when it ends.
func (c *Coordinator) SyncPendingOperations() {
	c.mu.Lock()
	if c.state == stateRunning {
		c.mu.Unlock()
		c.l.Info("sync already in progress")
		return
	}
	c.state = stateRunning
	c.mu.Unlock()

	if !c.monitor.IsOnline() {
		c.l.Info("cannot sync - offline")
		c.finish(false, "offline")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.replay(context.Background())
	}()
}

func (c *Coordinator) replay(ctx context.Context) {
	ops, err := c.queue.Pending(ctx)
	if err != nil {
		c.l.Error("failed to load pending operations", "err", err)
		c.finish(false, err.Error())
		return
	}
	if len(ops) == 0 {
		c.l.Info("no pending operations to sync")
		c.finish(true, "")
		return
	}

	c.l.Info("sync started", "operations", len(ops))

	i := 0
	for i < len(ops) {
		op := ops[i]

		if op.RetryCount >= MaxRetryCount {
			c.l.Warn("operation exceeded retry limit, dropping", "op", op.ID, "type", op.Type, "retries", op.RetryCount)
			if err := c.queue.Remove(ctx, op.ID); err != nil {
				c.finish(false, err.Error())
				return
			}
			i++
			continue
		}

		ok, reassigned := c.executeOp(ctx, op)
		if !ok {
			if err := c.queue.IncrementRetry(ctx, op.ID); err != nil {
				c.finish(false, err.Error())
				return
			}
			if !c.monitor.IsOnline() {
				c.l.Warn("sync interrupted: connection lost", "remaining", len(ops)-i)
				c.finish(false, "connection lost")
				return
			}
			i++
			continue
		}

		if err := c.queue.Remove(ctx, op.ID); err != nil {
			c.finish(false, err.Error())
			return
		}

		if reassigned {
			// Queued operations now target the new server id; reload and
			// resume at the first operation after the one just completed.
			// Ids keep their order, positions may not.
			ops, err = c.queue.Pending(ctx)
			if err != nil {
				c.finish(false, err.Error())
				return
			}
			i = nextIndex(ops, op.ID)
			continue
		}
		i++
	}

	c.l.Info("sync completed")
	c.finish(true, "")
}

// executeOp runs one operation against the remote service. The second
// return value reports that queued operations were reassigned to a new
// server id and the list must be reloaded.
func (c *Coordinator) executeOp(ctx context.Context, op deuxgo.PendingOp) (ok, reassigned bool) {
	if op.Type == deuxgo.OpCreate {
		return c.executeCreate(ctx, op)
	}

	if op.TodoID == 0 {
		// The CREATE that resolves this todo's id has not completed; never
		// send the sentinel to the server.
		c.l.Error("operation has unresolved todo id", "op", op.ID, "type", op.Type)
		return false, false
	}

	res, err := c.remote.Execute(ctx, op.Type, op.TodoID, op.Payload)
	if err != nil {
		c.l.Error("operation failed", "op", op.ID, "type", op.Type, "err", err)
		return false, false
	}
	if !res.Success {
		c.l.Error("operation rejected", "op", op.ID, "type", op.Type, "status", res.StatusCode)
		return false, false
	}
	c.l.Info("operation completed", "op", op.ID, "type", op.Type, "todo_id", op.TodoID)
	return true, false
}

func (c *Coordinator) executeCreate(ctx context.Context, op deuxgo.PendingOp) (ok, reassigned bool) {
	res, err := c.remote.Execute(ctx, deuxgo.OpCreate, 0, op.Payload)
	if err != nil {
		c.l.Error("create failed", "op", op.ID, "err", err)
		return false, false
	}
	if !res.Success {
		c.l.Error("create rejected", "op", op.ID, "status", res.StatusCode)
		return false, false
	}

	if op.LocalTodoID == 0 {
		return true, false
	}

	serverID, err := deuxgo.ExtractTodoID(res.Body)
	if err != nil {
		// The todo exists remotely; retrying the CREATE would duplicate it.
		// Dependent operations keep their unresolved id and age out through
		// the retry ceiling.
		c.l.Error("create succeeded but response unparseable, todo stays local-only", "op", op.ID, "err", err)
		return true, false
	}

	local, lookupErr := c.store.GetByLocalID(ctx, op.LocalTodoID)
	if lookupErr != nil && !errors.Is(lookupErr, deuxgo.ErrNotFound) {
		c.l.Error("failed to load local todo for reconciliation", "op", op.ID, "err", lookupErr)
		return false, false
	}

	err = c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.queue.ReassignTodoID(ctx, op.LocalTodoID, serverID); err != nil {
			return err
		}
		if lookupErr != nil {
			// Row already deleted locally; a queued DELETE now targets the
			// server id.
			return nil
		}
		if err := c.store.DeleteByLocalID(ctx, op.LocalTodoID); err != nil {
			return err
		}
		rec := local.TodoRecord
		rec.SyncStatus = deuxgo.SyncStatusSynced
		_, err := c.store.SaveTodo(ctx, serverID, 0, rec)
		return err
	})
	if err != nil {
		c.l.Error("identifier reconciliation failed", "op", op.ID, "err", err)
		return false, false
	}

	c.l.Info("todo created with server id", "op", op.ID, "server_id", serverID, "local_id", op.LocalTodoID)
	return true, true
}

// finish leaves the Running state and delivers the completion notification.
func (c *Coordinator) finish(success bool, errMsg string) {
	c.mu.Lock()
	c.state = stateIdle
	listeners := make([]SyncListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(success, errMsg)
	}
}

// nextIndex returns the index of the first operation with an id greater
// than prev, or len(ops) when there is none.
func nextIndex(ops []deuxgo.PendingOp, prev int64) int {
	for i, op := range ops {
		if op.ID > prev {
			return i
		}
	}
	return len(ops)
}
