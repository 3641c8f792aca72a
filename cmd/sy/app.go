package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zulandar/streamyard/internal/config"
	"github.com/zulandar/streamyard/internal/db"
	"github.com/zulandar/streamyard/internal/handler"
	"github.com/zulandar/streamyard/internal/lifecycle"
	"github.com/zulandar/streamyard/internal/scanner"
	"github.com/zulandar/streamyard/internal/store"
	"github.com/zulandar/streamyard/internal/syncer"
)

// app holds the wired component graph shared by every command.
type app struct {
	cfg      *config.Config
	store    *store.Store
	handlers *handler.Handlers
}

// newApp loads configuration, opens the database, and wires the components.
// Configuration validation failures here are the process's only fatal
// startup errors.
func newApp() (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return nil, err
	}

	st := store.New(gdb)
	lm := lifecycle.New(st)
	sc := scanner.New(st, scanner.Opts{})
	imp := syncer.New(st, cfg.StreamsDir)
	handlers := handler.New(st, lm, sc, imp, handler.VersionInfo{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	})

	return &app{cfg: cfg, store: st, handlers: handlers}, nil
}

// printEnvelope renders an envelope for human consumption and returns a
// non-nil error on failure so cobra sets the exit code.
func printEnvelope(w io.Writer, env handler.Envelope) error {
	if !env.OK {
		return fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	data, err := json.MarshalIndent(env.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}
