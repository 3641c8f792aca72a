package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zulandar/streamyard/internal/handler"
)

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit ingestion commands",
	}
	cmd.AddCommand(newCommitAddCmd())
	return cmd
}

func newCommitAddCmd() *cobra.Command {
	var input handler.AddCommitInput

	cmd := &cobra.Command{
		Use:   "add <stream-id> <hash>",
		Short: "Record a commit for a stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			input.StreamID = args[0]
			input.CommitHash = args[1]
			raw, _ := json.Marshal(input)
			return printEnvelope(cmd.OutOrStdout(), a.handlers.Dispatch("add_commit", raw))
		},
	}

	cmd.Flags().StringVar(&input.Message, "message", "", "commit message")
	cmd.Flags().StringVar(&input.Author, "author", "", "commit author")
	cmd.Flags().IntVar(&input.FilesChanged, "files-changed", 0, "number of files changed")
	cmd.Flags().StringVar(&input.Timestamp, "timestamp", "", "RFC3339 commit time (defaults to now)")
	return cmd
}

func newScanCmd() *cobra.Command {
	var streamID string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan worktree git history into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			raw, _ := json.Marshal(handler.ScanCommitsInput{StreamID: streamID})
			return printEnvelope(cmd.OutOrStdout(), a.handlers.Dispatch("scan_commits", raw))
		},
	}

	cmd.Flags().StringVar(&streamID, "stream", "", "limit the scan to one stream")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import stream definitions from the streams directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return printEnvelope(cmd.OutOrStdout(), a.handlers.Dispatch("sync_from_files", nil))
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate stream and commit counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return printEnvelope(cmd.OutOrStdout(), a.handlers.Dispatch("get_stats", nil))
		},
	}
}
