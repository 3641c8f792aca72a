package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/streamyard/internal/dashboard"
	"github.com/zulandar/streamyard/internal/singleton"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Host the project dashboard (or report the existing host)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			coord := singleton.New(a.cfg.LockFilePath)
			result, err := coord.TryAcquire(func() (int, error) {
				return dashboard.Start(ctx, dashboard.Opts{
					Store: a.store,
					Port:  a.cfg.DashboardPort,
					Out:   out,
				})
			})
			if err != nil {
				return err
			}
			if !result.Hosting {
				fmt.Fprintf(out, "Dashboard already hosted by pid %d on port %d\n", result.PID, result.Port)
				return nil
			}
			defer coord.Release()

			<-ctx.Done()
			return nil
		},
	}
}
