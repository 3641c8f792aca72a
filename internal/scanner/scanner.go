// Package scanner walks each stream's worktree history and ingests new
// commits into the store. Every insert is individually idempotent, so a
// scan can be re-run or abandoned at any point.
package scanner

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
)

// DefaultMaxCommits is the per-stream commit count ceiling.
const DefaultMaxCommits = 50

// DefaultWindow is the per-stream lookback window.
const DefaultWindow = 7 * 24 * time.Hour

// Result is the aggregate outcome of a scan. Per-stream failures are
// counted, never fatal.
type Result struct {
	Scanned      int `json:"scanned"`
	CommitsAdded int `json:"commitsAdded"`
	Errors       int `json:"errors"`
}

// Opts configures a Scanner. Zero values take the defaults above.
type Opts struct {
	MaxCommits int
	Window     time.Duration
	Parser     Parser
}

// Scanner ingests git history for streams.
type Scanner struct {
	store      *store.Store
	parser     Parser
	maxCommits int
	window     time.Duration
}

// New creates a Scanner over the store.
func New(st *store.Store, opts Opts) *Scanner {
	if opts.MaxCommits <= 0 {
		opts.MaxCommits = DefaultMaxCommits
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Parser == nil {
		opts.Parser = NewParser()
	}
	return &Scanner{
		store:      st,
		parser:     opts.Parser,
		maxCommits: opts.MaxCommits,
		window:     opts.Window,
	}
}

// ScanStream scans a single stream's worktree. Returns store.ErrNotFound
// if the stream does not exist.
func (s *Scanner) ScanStream(streamID string) (Result, error) {
	stream, err := s.store.Get(streamID)
	if err != nil {
		return Result{}, err
	}
	result := Result{Scanned: 1}
	added, err := s.scanWorktree(stream)
	if err != nil {
		result.Errors = 1
		return result, nil
	}
	result.CommitsAdded = added
	return result, nil
}

// ScanAll scans every non-archived stream with a worktree path. Streams are
// processed independently; a failing worktree is counted and skipped.
func (s *Scanner) ScanAll() (Result, error) {
	streams, err := s.store.List()
	if err != nil {
		return Result{}, err
	}
	var result Result
	for i := range streams {
		stream := &streams[i]
		if stream.Status == "archived" || stream.WorktreePath == "" {
			continue
		}
		result.Scanned++
		added, err := s.scanWorktree(stream)
		if err != nil {
			result.Errors++
			continue
		}
		result.CommitsAdded += added
	}
	return result, nil
}

// scanWorktree reads the worktree's history newest-first, bounded by the
// commit count ceiling and the lookback window, and inserts what the store
// does not already have.
func (s *Scanner) scanWorktree(stream *models.Stream) (int, error) {
	if _, err := os.Stat(stream.WorktreePath); err != nil {
		return 0, fmt.Errorf("scanner: worktree for %s: %w", stream.ID, err)
	}

	since := time.Now().Add(-s.window).Format(time.RFC3339)
	cmd := exec.Command("git", "log",
		fmt.Sprintf("--max-count=%d", s.maxCommits),
		"--since="+since,
		"--pretty=format:"+logFormat,
		"--shortstat")
	cmd.Dir = stream.WorktreePath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("scanner: git log for %s: %s", stream.ID, strings.TrimSpace(string(out)))
	}

	entries, err := s.parser.Parse(string(out))
	if err != nil {
		return 0, err
	}

	added := 0
	for _, entry := range entries {
		inserted, err := s.store.InsertCommit(&models.Commit{
			StreamID:     stream.ID,
			Hash:         entry.Hash,
			Message:      entry.Message,
			Author:       entry.Author,
			FilesChanged: entry.FilesChanged,
			Timestamp:    entry.Timestamp,
		})
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}
