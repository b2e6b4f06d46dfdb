package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"deuxgo"
	"deuxgo/offline"
)

const dateFormat = "2006-01-02"

func dispatch(cmd string, args []string, coord *offline.Coordinator, store deuxgo.TodoStore) error {
	ctx := context.Background()

	switch cmd {
	case "list":
		return listCmd(ctx, args, coord)
	case "add":
		return addCmd(ctx, args, coord)
	case "edit":
		return editCmd(ctx, args, coord, store)
	case "done":
		return toggleCmd(ctx, args, coord, store, true)
	case "undone":
		return toggleCmd(ctx, args, coord, store, false)
	case "rm":
		return rmCmd(ctx, args, coord, store)
	case "move":
		return moveCmd(ctx, args, coord, store)
	case "sync":
		return syncCmd(coord)
	case "pending":
		return pendingCmd(ctx, coord)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Println(`usage: deuxgo <command> [args]

  list [-since DATE] [-until DATE]   show todos (local store, refreshed when online)
  add <text> [DATE]                  add a todo (today by default)
  edit <id> <text>                   change a todo's text
  done <id> / undone <id>            set the done flag
  rm <id>                            delete a todo
  move <id> <DATE> [position]        move a todo to a date
  sync                               replay queued operations now
  pending                            count queued operations`)
}

func listCmd(ctx context.Context, args []string, coord *offline.Coordinator) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	today := time.Now().Format(dateFormat)
	since := fs.String("since", today, "start date")
	until := fs.String("until", time.Now().AddDate(0, 0, 6).Format(dateFormat), "end date")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Best effort; the local store answers either way.
	if err := coord.Refresh(ctx, *since, *until); err != nil && !errors.Is(err, deuxgo.ErrOffline) {
		fmt.Println("warning: refresh failed:", err)
	}

	todos, err := coord.Todos(ctx, *since, *until)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Println("no todos")
		return nil
	}
	for _, t := range todos {
		printTodo(t)
	}
	return nil
}

func addCmd(ctx context.Context, args []string, coord *offline.Coordinator) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: add <text> [DATE]")
	}
	date := time.Now().Format(dateFormat)
	if len(args) > 1 {
		date = args[1]
	}

	todo, err := coord.CreateTodo(ctx, args[0], date)
	if err != nil {
		return err
	}
	printTodo(todo)
	return nil
}

func editCmd(ctx context.Context, args []string, coord *offline.Coordinator, store deuxgo.TodoStore) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: edit <id> <text>")
	}
	ref, err := resolveRef(ctx, store, args[0])
	if err != nil {
		return err
	}
	return coord.UpdateTodoText(ctx, ref, args[1])
}

func toggleCmd(ctx context.Context, args []string, coord *offline.Coordinator, store deuxgo.TodoStore, done bool) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: done|undone <id>")
	}
	ref, err := resolveRef(ctx, store, args[0])
	if err != nil {
		return err
	}
	return coord.ToggleDone(ctx, ref, done)
}

func rmCmd(ctx context.Context, args []string, coord *offline.Coordinator, store deuxgo.TodoStore) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rm <id>")
	}
	ref, err := resolveRef(ctx, store, args[0])
	if err != nil {
		return err
	}
	return coord.DeleteTodo(ctx, ref)
}

func moveCmd(ctx context.Context, args []string, coord *offline.Coordinator, store deuxgo.TodoStore) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: move <id> <DATE> [position]")
	}
	ref, err := resolveRef(ctx, store, args[0])
	if err != nil {
		return err
	}
	position := 0
	if len(args) > 2 {
		position, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid position: %s", args[2])
		}
	}
	return coord.RepositionTodo(ctx, ref, args[1], position)
}

func syncCmd(coord *offline.Coordinator) error {
	type outcome struct {
		success bool
		errMsg  string
	}
	results := make(chan outcome, 1)
	cancel := coord.AddSyncListener(func(success bool, errMsg string) {
		results <- outcome{success, errMsg}
	})
	defer cancel()

	coord.SyncPendingOperations()
	res := <-results
	if !res.success {
		return fmt.Errorf("sync failed: %s", res.errMsg)
	}
	fmt.Println("sync completed")
	return nil
}

func pendingCmd(ctx context.Context, coord *offline.Coordinator) error {
	count, err := coord.PendingOperationCount(ctx)
	if err != nil {
		return err
	}
	fmt.Println(count, "pending operations")
	return nil
}

// resolveRef turns a raw id argument into a TaskRef by asking the store
// which namespace it lives in.
func resolveRef(ctx context.Context, store deuxgo.TodoStore, arg string) (deuxgo.TaskRef, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return deuxgo.TaskRef{}, fmt.Errorf("invalid id: %s", arg)
	}
	todo, err := store.GetByAnyID(ctx, id)
	if err != nil {
		return deuxgo.TaskRef{}, fmt.Errorf("todo %d: %w", id, err)
	}
	return todo.Ref(), nil
}

func printTodo(t deuxgo.ExistingTodo) {
	mark := " "
	if t.Done {
		mark = "x"
	}
	pending := ""
	if t.SyncStatus == deuxgo.SyncStatusPending {
		pending = " (pending)"
	}
	id := t.ServerID
	if id == 0 {
		id = t.LocalID
	}
	fmt.Printf("[%s] %s  %s #%d%s\n", mark, t.Date, t.Text, id, pending)
}
