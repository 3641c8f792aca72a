package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulandar/streamyard/internal/handler"
)

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream lifecycle commands",
	}

	cmd.AddCommand(newStreamCreateCmd())
	cmd.AddCommand(newStreamUpdateCmd())
	cmd.AddCommand(newStreamArchiveCmd())
	cmd.AddCommand(newStreamListCmd())
	return cmd
}

func newStreamCreateCmd() *cobra.Command {
	var input handler.CreateStreamInput

	cmd := &cobra.Command{
		Use:   "create <stream-id>",
		Short: "Create a new stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			input.StreamID = args[0]
			out, err := a.handlers.CreateStream(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created stream %s (%s, %s) in status %s\n",
				out.ID, out.Category, out.Priority, out.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.StreamNumber, "number", "", "sortable stream number label")
	cmd.Flags().StringVar(&input.Title, "title", "", "stream title")
	cmd.Flags().StringVar(&input.Category, "category", "", "frontend|backend|infrastructure|testing|documentation|refactoring")
	cmd.Flags().StringVar(&input.Priority, "priority", "medium", "critical|high|medium|low")
	cmd.Flags().StringVar(&input.WorktreePath, "worktree", "", "path to the stream's git worktree")
	cmd.Flags().StringVar(&input.Branch, "branch", "", "git branch bound to the stream")
	cmd.Flags().StringSliceVar(&input.EstimatedPhases, "phases", nil, "ordered phase names")
	return cmd
}

func newStreamUpdateCmd() *cobra.Command {
	var (
		status    string
		progress  int
		phase     int
		blockedBy string
	)

	cmd := &cobra.Command{
		Use:   "update <stream-id>",
		Short: "Update a stream's status, progress, phase, or blocker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			// Only flags the caller actually set become part of the update.
			input := handler.UpdateStreamInput{StreamID: args[0]}
			if cmd.Flags().Changed("status") {
				input.Status = &status
			}
			if cmd.Flags().Changed("progress") {
				input.Progress = &progress
			}
			if cmd.Flags().Changed("phase") {
				input.CurrentPhase = &phase
			}
			if cmd.Flags().Changed("blocked-by") {
				input.BlockedBy = &blockedBy
			}

			out, err := a.handlers.UpdateStream(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated stream %s: status=%s progress=%d%%\n",
				out.ID, out.Status, out.Progress)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress percentage 0-100")
	cmd.Flags().IntVar(&phase, "phase", 0, "index into the estimated phases")
	cmd.Flags().StringVar(&blockedBy, "blocked-by", "", "id of the blocking stream")
	return cmd
}

func newStreamArchiveCmd() *cobra.Command {
	var summary string

	cmd := &cobra.Command{
		Use:   "archive <stream-id>",
		Short: "Archive a stream (terminal)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			out, err := a.handlers.ArchiveStream(handler.ArchiveStreamInput{
				StreamID:          args[0],
				CompletionSummary: summary,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived stream %s\n", out.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&summary, "summary", "", "completion summary recorded on archival")
	return cmd
}

func newStreamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all streams in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			streams, err := a.store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(streams) == 0 {
				fmt.Fprintln(out, "No streams")
				return nil
			}
			for _, s := range streams {
				blocked := ""
				if s.BlockedBy != nil {
					blocked = " blocked-by=" + *s.BlockedBy
				}
				fmt.Fprintf(out, "%-20s %-8s %-14s %-10s %3d%%%s  %s\n",
					s.ID, s.Number, s.Category, s.Status, s.Progress, blocked, s.Title)
			}
			return nil
		},
	}
}
