package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/streamyard/internal/dashboard"
	"github.com/zulandar/streamyard/internal/handler"
	"github.com/zulandar/streamyard/internal/mcpserver"
	"github.com/zulandar/streamyard/internal/singleton"
	"github.com/zulandar/streamyard/internal/summary"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the stream tracking tool server over stdio",
		Long:  "Starts the MCP tool server. On startup: bootstraps from definition files if the store is empty, scans worktree history in the background, coordinates the per-project dashboard, and runs the summary worker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap from definition files when the store is empty. Failures here
	// are logged, never fatal: the server still accepts calls.
	if count, err := a.store.CountStreams(); err == nil && count == 0 {
		if result, err := a.handlers.SyncFromFiles(); err != nil {
			fmt.Fprintf(errOut, "initial sync: %v\n", err)
		} else if result.Synced > 0 {
			fmt.Fprintf(errOut, "Synced %d stream(s) from definition files\n", result.Synced)
		}
	}

	// One background scan pass; inserts are idempotent, so an abandoned
	// scan on shutdown is safe.
	go func() {
		result, err := a.handlers.ScanCommits(handler.ScanCommitsInput{})
		if err != nil {
			fmt.Fprintf(errOut, "initial scan: %v\n", err)
			return
		}
		if result.CommitsAdded > 0 || result.Errors > 0 {
			fmt.Fprintf(errOut, "Initial scan: %d stream(s), %d commit(s) added, %d error(s)\n",
				result.Scanned, result.CommitsAdded, result.Errors)
		}
	}()

	if a.cfg.DashboardEnabled {
		coord := singleton.New(a.cfg.LockFilePath)
		result, err := coord.TryAcquire(func() (int, error) {
			return dashboard.Start(ctx, dashboard.Opts{
				Store: a.store,
				Port:  a.cfg.DashboardPort,
				Out:   errOut,
			})
		})
		switch {
		case err != nil:
			fmt.Fprintf(errOut, "dashboard coordination: %v\n", err)
		case result.Hosting:
			defer coord.Release()
			fmt.Fprintf(errOut, "Hosting dashboard on port %d\n", result.Port)
		default:
			fmt.Fprintf(errOut, "Dashboard already hosted by pid %d on port %d\n", result.PID, result.Port)
		}
	}

	worker := summary.New(a.store, summary.Opts{
		Interval: a.cfg.SummaryInterval,
		CronExpr: a.cfg.SummaryCron,
		Out:      errOut,
	})
	go worker.Run(ctx)

	return mcpserver.New(a.handlers, Version).Run(ctx)
}
