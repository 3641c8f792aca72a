// Package lifecycle enforces the stream state machine and field invariants
// on top of the store.
package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
)

// Validation error codes returned to callers.
const (
	CodeMissingField       = "missing_field"
	CodeInvalidCategory    = "invalid_category"
	CodeInvalidPriority    = "invalid_priority"
	CodeInvalidStatus      = "invalid_status"
	CodeInvalidTransition  = "invalid_transition"
	CodeProgressOutOfRange = "progress_out_of_range"
	CodeInvalidPhase       = "invalid_phase"
	CodeUnknownBlocker     = "unknown_blocker"
	CodeBlockerArchived    = "blocker_archived"
	CodeBlockerCycle       = "blocker_cycle"
	CodeMissingBlocker     = "missing_blocker"
	CodeStreamArchived     = "stream_archived"
)

// ValidationError identifies the specific invariant an update violated.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lifecycle: %s", e.Message)
}

func invalid(code, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidTransitions maps each status to its valid next statuses.
// Every non-archived status may additionally move to "archived" (forced
// archival); that case is handled in isValidTransition.
var ValidTransitions = map[string][]string{
	"initializing": {"active"},
	"active":       {"blocked", "paused", "completed"},
	"blocked":      {"active"},
	"paused":       {"active"},
	"completed":    {},
}

// Manager applies lifecycle rules before touching the store.
type Manager struct {
	store *store.Store
}

// New creates a lifecycle manager.
func New(st *store.Store) *Manager {
	return &Manager{store: st}
}

// CreateOpts holds parameters for creating a new stream.
type CreateOpts struct {
	ID              string
	Number          string
	Title           string
	Category        string
	Priority        string
	WorktreePath    string
	Branch          string
	EstimatedPhases []string
}

// UpdateOpts is the subset of mutable fields an update may carry.
// Nil pointers mean "not provided".
type UpdateOpts struct {
	Status       *string
	Progress     *int
	CurrentPhase *int
	BlockedBy    *string
}

// Create validates and inserts a new stream in status "initializing".
func (m *Manager) Create(opts CreateOpts) (*models.Stream, error) {
	switch {
	case opts.ID == "":
		return nil, invalid(CodeMissingField, "streamId is required")
	case opts.Number == "":
		return nil, invalid(CodeMissingField, "streamNumber is required")
	case opts.Title == "":
		return nil, invalid(CodeMissingField, "title is required")
	case opts.WorktreePath == "":
		return nil, invalid(CodeMissingField, "worktreePath is required")
	case opts.Branch == "":
		return nil, invalid(CodeMissingField, "branch is required")
	}
	if !slices.Contains(models.Categories, opts.Category) {
		return nil, invalid(CodeInvalidCategory, "category %q is not one of %v", opts.Category, models.Categories)
	}
	if !slices.Contains(models.Priorities, opts.Priority) {
		return nil, invalid(CodeInvalidPriority, "priority %q is not one of %v", opts.Priority, models.Priorities)
	}

	phases, err := marshalPhases(opts.EstimatedPhases)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: marshal phases for %s: %w", opts.ID, err)
	}

	stream := &models.Stream{
		ID:              opts.ID,
		Number:          opts.Number,
		Title:           opts.Title,
		Category:        opts.Category,
		Priority:        opts.Priority,
		Status:          "initializing",
		Progress:        0,
		EstimatedPhases: phases,
		WorktreePath:    opts.WorktreePath,
		Branch:          opts.Branch,
	}
	if err := m.store.Create(stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// Update validates the provided fields against the current record and
// applies them. Leaving "blocked" auto-clears blockedBy unless the same
// update explicitly sets a new blocker.
func (m *Manager) Update(id string, opts UpdateOpts) (*models.Stream, error) {
	if id == "" {
		return nil, invalid(CodeMissingField, "streamId is required")
	}
	current, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if current.Status == "archived" {
		return nil, invalid(CodeStreamArchived, "stream %s is archived and can no longer be updated", id)
	}

	fields := store.Fields{}

	if opts.Status != nil {
		next := *opts.Status
		if !slices.Contains(models.Statuses, next) {
			return nil, invalid(CodeInvalidStatus, "status %q is not one of %v", next, models.Statuses)
		}
		if !isValidTransition(current.Status, next) {
			return nil, invalid(CodeInvalidTransition, "cannot transition %s from %q to %q", id, current.Status, next)
		}
		fields.Status = opts.Status
	}

	if opts.Progress != nil {
		if *opts.Progress < 0 || *opts.Progress > 100 {
			return nil, invalid(CodeProgressOutOfRange, "progress %d is outside [0,100]", *opts.Progress)
		}
		fields.Progress = opts.Progress
	}

	if opts.CurrentPhase != nil {
		phases, err := unmarshalPhases(current.EstimatedPhases)
		if err != nil {
			return nil, fmt.Errorf("lifecycle: phases for %s: %w", id, err)
		}
		if *opts.CurrentPhase < 0 || *opts.CurrentPhase >= len(phases) {
			return nil, invalid(CodeInvalidPhase, "currentPhase %d is not a valid index into %d estimated phases", *opts.CurrentPhase, len(phases))
		}
		fields.CurrentPhase = opts.CurrentPhase
	}

	if opts.BlockedBy != nil {
		if err := m.validateBlocker(id, *opts.BlockedBy); err != nil {
			return nil, err
		}
		fields.BlockedBy = opts.BlockedBy
	}

	// status = blocked requires a blocker, either set now or already present.
	effectiveStatus := current.Status
	if opts.Status != nil {
		effectiveStatus = *opts.Status
	}
	if effectiveStatus == "blocked" && opts.BlockedBy == nil && current.BlockedBy == nil {
		return nil, invalid(CodeMissingBlocker, "status %q requires blockedBy", "blocked")
	}
	if opts.Status != nil && *opts.Status != "blocked" && opts.BlockedBy == nil && current.BlockedBy != nil {
		fields.ClearBlockedBy = true
	}

	return m.store.Update(id, fields)
}

// Archive forces a stream into the terminal "archived" status, recording an
// optional completion summary. Permitted from every non-archived status.
func (m *Manager) Archive(id, completionSummary string) (*models.Stream, error) {
	if id == "" {
		return nil, invalid(CodeMissingField, "streamId is required")
	}
	current, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if current.Status == "archived" {
		return nil, invalid(CodeStreamArchived, "stream %s is already archived", id)
	}

	status := "archived"
	fields := store.Fields{
		Status:         &status,
		ClearBlockedBy: current.BlockedBy != nil,
	}
	if completionSummary != "" {
		fields.CompletionSummary = &completionSummary
	}
	return m.store.Update(id, fields)
}

// AddCommit records an explicitly-reported commit for a stream. Returns the
// commit and whether it was newly inserted (false means the (stream, hash)
// pair was already present).
func (m *Manager) AddCommit(streamID, hash, message, author string, filesChanged int, timestamp time.Time) (*models.Commit, bool, error) {
	switch {
	case streamID == "":
		return nil, false, invalid(CodeMissingField, "streamId is required")
	case hash == "":
		return nil, false, invalid(CodeMissingField, "commitHash is required")
	}
	if _, err := m.store.Get(streamID); err != nil {
		return nil, false, err
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	commit := &models.Commit{
		StreamID:     streamID,
		Hash:         hash,
		Message:      message,
		Author:       author,
		FilesChanged: filesChanged,
		Timestamp:    timestamp,
	}
	added, err := m.store.InsertCommit(commit)
	if err != nil {
		return nil, false, err
	}
	return commit, added, nil
}

// isValidTransition reports whether moving from one status to another is
// legal. A no-op transition to the same status is always accepted.
func isValidTransition(from, to string) bool {
	if from == to {
		return true
	}
	if to == "archived" {
		return from != "archived"
	}
	return slices.Contains(ValidTransitions[from], to)
}

// validateBlocker checks that the blocker exists, is not archived, and does
// not create a cycle back to the stream being blocked.
func (m *Manager) validateBlocker(id, blockerID string) error {
	if blockerID == id {
		return invalid(CodeBlockerCycle, "stream %s cannot be blocked by itself", id)
	}
	seen := map[string]bool{id: true}
	next := blockerID
	for next != "" {
		blocker, err := m.store.Get(next)
		if errors.Is(err, store.ErrNotFound) {
			return invalid(CodeUnknownBlocker, "blocker %s does not exist", next)
		}
		if err != nil {
			return err
		}
		if next == blockerID && blocker.Status == "archived" {
			return invalid(CodeBlockerArchived, "blocker %s is archived", next)
		}
		if seen[next] {
			return invalid(CodeBlockerCycle, "blocking %s on %s would create a cycle", id, blockerID)
		}
		seen[next] = true
		if blocker.BlockedBy == nil {
			break
		}
		next = *blocker.BlockedBy
	}
	return nil
}

func marshalPhases(phases []string) (string, error) {
	if len(phases) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(phases)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalPhases(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var phases []string
	if err := json.Unmarshal([]byte(raw), &phases); err != nil {
		return nil, err
	}
	return phases, nil
}
