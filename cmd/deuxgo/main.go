package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Thiht/transactor/stdlib"

	"deuxgo"
	"deuxgo/charmlog"
	"deuxgo/migrations"
	"deuxgo/netmon"
	"deuxgo/offline"
	"deuxgo/sqlite"
	"deuxgo/teuxdeux"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := deuxgo.LoadConfig()

	for _, p := range []string{cfg.DatabaseURL, cfg.LogPath} {
		if p != "" {
			_ = os.MkdirAll(filepath.Dir(p), 0o744)
		}
	}

	var logWriter *os.File
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		defer f.Close() //nolint:errcheck
		logWriter = f
	}
	logger := charmlog.NewLogger(charmlog.Options{
		Writer: logWriter,
		Level:  cfg.LogLevel,
	})

	db, err := sqlite.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer db.Close() //nolint:errcheck
	if err := db.Migrate(migrations.FS); err != nil {
		fmt.Fprintln(os.Stderr, "error: migrate:", err)
		return 1
	}

	trans, dbGetter := stdlib.NewTransactor(db.Conn(), stdlib.NestedTransactionsSavepoints)
	store := sqlite.NewTodoStore(dbGetter, logger)
	queue := sqlite.NewOpQueue(dbGetter, logger)

	monitor := netmon.New(netmon.DialProbe(cfg.ProbeAddr, 5*time.Second), cfg.PollInterval, logger)
	remote := teuxdeux.NewClient(cfg.BaseURL, cfg.AuthToken, cfg.WorkspaceID, &http.Client{Timeout: 30 * time.Second}, logger)

	coord := offline.New(store, queue, remote, monitor, trans, logger)

	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	if err := dispatch(cmd, args, coord, store); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
