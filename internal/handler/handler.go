// Package handler maps named tool operations onto the domain components.
// Each operation has a typed entry point; Dispatch wraps them in the
// uniform success/error envelope that protocol adapters and the CLI share.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/streamyard/internal/lifecycle"
	"github.com/zulandar/streamyard/internal/scanner"
	"github.com/zulandar/streamyard/internal/store"
	"github.com/zulandar/streamyard/internal/syncer"
)

// Failure codes used alongside lifecycle validation codes.
const (
	CodeNotFound    = "not_found"
	CodeDuplicateID = "duplicate_id"
	CodeBadRequest  = "bad_request"
	CodeUnknownOp   = "unknown_operation"
	CodeInternal    = "internal"
)

// Envelope is the uniform result of every dispatched operation.
type Envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *Failure    `json:"error,omitempty"`
}

// Failure tags an operation error with a stable code.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VersionInfo reports build identity.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Handlers wires every operation to its component.
type Handlers struct {
	store     *store.Store
	lifecycle *lifecycle.Manager
	scanner   *scanner.Scanner
	importer  *syncer.Importer
	version   VersionInfo
}

// New creates the handler set.
func New(st *store.Store, lm *lifecycle.Manager, sc *scanner.Scanner, imp *syncer.Importer, version VersionInfo) *Handlers {
	return &Handlers{
		store:     st,
		lifecycle: lm,
		scanner:   sc,
		importer:  imp,
		version:   version,
	}
}

// --- Operation inputs ---

// CreateStreamInput carries the create_stream fields.
type CreateStreamInput struct {
	StreamID        string   `json:"streamId"`
	StreamNumber    string   `json:"streamNumber"`
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	Priority        string   `json:"priority"`
	WorktreePath    string   `json:"worktreePath"`
	Branch          string   `json:"branch"`
	EstimatedPhases []string `json:"estimatedPhases,omitempty"`
}

// UpdateStreamInput carries the update_stream fields; absent fields stay nil.
type UpdateStreamInput struct {
	StreamID     string  `json:"streamId"`
	Status       *string `json:"status,omitempty"`
	Progress     *int    `json:"progress,omitempty"`
	CurrentPhase *int    `json:"currentPhase,omitempty"`
	BlockedBy    *string `json:"blockedBy,omitempty"`
}

// AddCommitInput carries the add_commit fields.
type AddCommitInput struct {
	StreamID     string `json:"streamId"`
	CommitHash   string `json:"commitHash"`
	Message      string `json:"message"`
	Author       string `json:"author"`
	FilesChanged int    `json:"filesChanged"`
	Timestamp    string `json:"timestamp,omitempty"` // RFC3339, defaults to now
}

// ArchiveStreamInput carries the archive_stream fields.
type ArchiveStreamInput struct {
	StreamID          string `json:"streamId"`
	CompletionSummary string `json:"completionSummary,omitempty"`
}

// ScanCommitsInput optionally limits the scan to one stream.
type ScanCommitsInput struct {
	StreamID string `json:"streamId,omitempty"`
}

// --- Operation outputs ---

// AddCommitResult reports a commit insertion; Added is false when the
// (stream, hash) pair was already present.
type AddCommitResult struct {
	StreamID string `json:"streamId"`
	Hash     string `json:"hash"`
	Added    bool   `json:"added"`
}

// StatsResult aggregates stream and commit counts.
type StatsResult struct {
	TotalStreams  int64            `json:"totalStreams"`
	ActiveStreams int64            `json:"activeStreams"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByCategory    map[string]int64 `json:"byCategory"`
	TotalCommits  int64            `json:"totalCommits"`
}

// SyncResult reports how many definition files were applied.
type SyncResult struct {
	Synced int `json:"synced"`
}

// --- Operations ---

// CreateStream creates a new stream in status "initializing".
func (h *Handlers) CreateStream(input CreateStreamInput) (StreamPayload, error) {
	stream, err := h.lifecycle.Create(lifecycle.CreateOpts{
		ID:              input.StreamID,
		Number:          input.StreamNumber,
		Title:           input.Title,
		Category:        input.Category,
		Priority:        input.Priority,
		WorktreePath:    input.WorktreePath,
		Branch:          input.Branch,
		EstimatedPhases: input.EstimatedPhases,
	})
	if err != nil {
		return StreamPayload{}, err
	}
	return streamPayload(stream), nil
}

// UpdateStream applies a partial lifecycle update.
func (h *Handlers) UpdateStream(input UpdateStreamInput) (StreamPayload, error) {
	stream, err := h.lifecycle.Update(input.StreamID, lifecycle.UpdateOpts{
		Status:       input.Status,
		Progress:     input.Progress,
		CurrentPhase: input.CurrentPhase,
		BlockedBy:    input.BlockedBy,
	})
	if err != nil {
		return StreamPayload{}, err
	}
	return streamPayload(stream), nil
}

// AddCommit records a commit; re-adding an existing (stream, hash) pair is
// reported as deduplicated, not an error.
func (h *Handlers) AddCommit(input AddCommitInput) (AddCommitResult, error) {
	var ts time.Time
	if input.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			return AddCommitResult{}, &lifecycle.ValidationError{
				Code:    CodeBadRequest,
				Message: fmt.Sprintf("timestamp %q is not RFC3339", input.Timestamp),
			}
		}
		ts = parsed
	}
	commit, added, err := h.lifecycle.AddCommit(input.StreamID, input.CommitHash, input.Message, input.Author, input.FilesChanged, ts)
	if err != nil {
		return AddCommitResult{}, err
	}
	return AddCommitResult{StreamID: commit.StreamID, Hash: commit.Hash, Added: added}, nil
}

// ArchiveStream forces a stream into its terminal status.
func (h *Handlers) ArchiveStream(input ArchiveStreamInput) (StreamPayload, error) {
	stream, err := h.lifecycle.Archive(input.StreamID, input.CompletionSummary)
	if err != nil {
		return StreamPayload{}, err
	}
	return streamPayload(stream), nil
}

// GetStats reports aggregate stream and commit counts.
func (h *Handlers) GetStats() (StatsResult, error) {
	byStatus, err := h.store.CountByStatus()
	if err != nil {
		return StatsResult{}, err
	}
	byCategory, err := h.store.CountByCategory()
	if err != nil {
		return StatsResult{}, err
	}
	commits, err := h.store.CountCommits()
	if err != nil {
		return StatsResult{}, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	return StatsResult{
		TotalStreams:  total,
		ActiveStreams: byStatus["active"],
		ByStatus:      byStatus,
		ByCategory:    byCategory,
		TotalCommits:  commits,
	}, nil
}

// GetVersion reports build identity.
func (h *Handlers) GetVersion() VersionInfo {
	return h.version
}

// SyncFromFiles runs the file importer.
func (h *Handlers) SyncFromFiles() (SyncResult, error) {
	synced, err := h.importer.Sync()
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Synced: synced}, nil
}

// ScanCommits runs the commit scanner, for one stream or all of them.
func (h *Handlers) ScanCommits(input ScanCommitsInput) (scanner.Result, error) {
	if input.StreamID != "" {
		return h.scanner.ScanStream(input.StreamID)
	}
	return h.scanner.ScanAll()
}

// --- Dispatch ---

// Operations returns the names Dispatch accepts.
func (h *Handlers) Operations() []string {
	return []string{
		"create_stream", "update_stream", "add_commit", "archive_stream",
		"get_stats", "get_version", "sync_from_files", "scan_commits",
	}
}

// Dispatch routes an operation by name and wraps its outcome in an
// envelope. Any panic from a handler is converted into an internal failure
// rather than propagated.
func (h *Handlers) Dispatch(op string, raw json.RawMessage) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = failed(CodeInternal, fmt.Sprintf("%s: %v", op, r))
		}
	}()

	switch op {
	case "create_stream":
		return run(raw, h.CreateStream)
	case "update_stream":
		return run(raw, h.UpdateStream)
	case "add_commit":
		return run(raw, h.AddCommit)
	case "archive_stream":
		return run(raw, h.ArchiveStream)
	case "get_stats":
		return envelope(h.GetStats())
	case "get_version":
		return Envelope{OK: true, Result: h.GetVersion()}
	case "sync_from_files":
		return envelope(h.SyncFromFiles())
	case "scan_commits":
		return run(raw, h.ScanCommits)
	default:
		return failed(CodeUnknownOp, fmt.Sprintf("unknown operation %q", op))
	}
}

func run[In, Out any](raw json.RawMessage, fn func(In) (Out, error)) Envelope {
	var input In
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			return failed(CodeBadRequest, fmt.Sprintf("decode input: %v", err))
		}
	}
	return envelope(fn(input))
}

func envelope(result interface{}, err error) Envelope {
	if err != nil {
		return Envelope{OK: false, Error: Classify(err)}
	}
	return Envelope{OK: true, Result: result}
}

func failed(code, message string) Envelope {
	return Envelope{OK: false, Error: &Failure{Code: code, Message: message}}
}

// Classify maps component errors onto tagged failures. Protocol adapters
// use it to build their own error envelopes.
func Classify(err error) *Failure {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		return &Failure{Code: verr.Code, Message: verr.Message}
	case errors.Is(err, store.ErrNotFound):
		return &Failure{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, store.ErrDuplicateID):
		return &Failure{Code: CodeDuplicateID, Message: err.Error()}
	default:
		return &Failure{Code: CodeInternal, Message: err.Error()}
	}
}
