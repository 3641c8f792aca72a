// Package store is the durable table of streams and their commits, backed
// by the per-project sqlite database. All mutation paths go through here.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a stream id does not exist.
var ErrNotFound = errors.New("stream not found")

// ErrDuplicateID is returned when creating a stream whose id already exists.
var ErrDuplicateID = errors.New("stream id already exists")

// Store wraps the database connection. Writers are serialized through mu so
// lifecycle updates, scanner inserts, and importer upserts can fire
// concurrently within one process; readers go straight to sqlite.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// New creates a Store on top of an open GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Fields is a partial update: nil pointers mean "not provided".
// ClearBlockedBy distinguishes "set blocked_by to null" from "leave alone".
type Fields struct {
	Status            *string
	Progress          *int
	CurrentPhase      *int
	BlockedBy         *string
	ClearBlockedBy    bool
	CompletionSummary *string
}

// Create inserts a new stream, failing with ErrDuplicateID if the id exists.
func (s *Store) Create(stream *models.Stream) error {
	if stream.ID == "" {
		return fmt.Errorf("store: stream id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.Model(&models.Stream{}).Where("id = ?", stream.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("store: check stream %s: %w", stream.ID, err)
	}
	if count > 0 {
		return fmt.Errorf("store: create stream %s: %w", stream.ID, ErrDuplicateID)
	}
	if err := s.db.Create(stream).Error; err != nil {
		return fmt.Errorf("store: create stream %s: %w", stream.ID, err)
	}
	return nil
}

// Get returns the stream with the given id, or ErrNotFound.
func (s *Store) Get(id string) (*models.Stream, error) {
	var stream models.Stream
	err := s.db.Where("id = ?", id).First(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store: get stream %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get stream %s: %w", id, err)
	}
	return &stream, nil
}

// List returns all streams in creation order.
func (s *Store) List() ([]models.Stream, error) {
	var streams []models.Stream
	if err := s.db.Order("created_at, id").Find(&streams).Error; err != nil {
		return nil, fmt.Errorf("store: list streams: %w", err)
	}
	return streams, nil
}

// ListByStatus returns all streams with the given status, in creation order.
func (s *Store) ListByStatus(status string) ([]models.Stream, error) {
	var streams []models.Stream
	if err := s.db.Where("status = ?", status).Order("created_at, id").Find(&streams).Error; err != nil {
		return nil, fmt.Errorf("store: list streams by status %q: %w", status, err)
	}
	return streams, nil
}

// Update applies the provided fields to the stream and returns the updated
// record. Validation happens in the lifecycle manager; the store only
// persists.
func (s *Store) Update(id string, fields Fields) (*models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := map[string]interface{}{}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.Progress != nil {
		updates["progress"] = *fields.Progress
	}
	if fields.CurrentPhase != nil {
		updates["current_phase"] = *fields.CurrentPhase
	}
	if fields.BlockedBy != nil {
		updates["blocked_by"] = *fields.BlockedBy
	} else if fields.ClearBlockedBy {
		updates["blocked_by"] = nil
	}
	if fields.CompletionSummary != nil {
		updates["completion_summary"] = *fields.CompletionSummary
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("store: update stream %s: no fields provided", id)
	}
	updates["updated_at"] = time.Now()

	result := s.db.Model(&models.Stream{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("store: update stream %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("store: update stream %s: %w", id, ErrNotFound)
	}

	var stream models.Stream
	if err := s.db.Where("id = ?", id).First(&stream).Error; err != nil {
		return nil, fmt.Errorf("store: reload stream %s: %w", id, err)
	}
	return &stream, nil
}

// UpdateSummary writes the derived summary for a stream. This is the summary
// worker's only mutation path and deliberately bypasses lifecycle validation.
func (s *Store) UpdateSummary(id, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result := s.db.Model(&models.Stream{}).Where("id = ?", id).Updates(map[string]interface{}{
		"summary":            summary,
		"summary_updated_at": now,
	})
	if result.Error != nil {
		return fmt.Errorf("store: update summary for %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: update summary for %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertCommit inserts a commit, silently skipping it when the
// (streamID, hash) pair already exists. Returns true if a row was added.
// This is the dedup point for the scanner and the add-commit operation.
func (s *Store) InsertCommit(commit *models.Commit) (bool, error) {
	if commit.StreamID == "" || commit.Hash == "" {
		return false, fmt.Errorf("store: commit streamID and hash are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream_id"}, {Name: "hash"}},
		DoNothing: true,
	}).Create(commit)
	if result.Error != nil {
		return false, fmt.Errorf("store: insert commit %s/%s: %w", commit.StreamID, commit.Hash, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListCommits returns all commits for a stream, newest first.
func (s *Store) ListCommits(streamID string) ([]models.Commit, error) {
	var commits []models.Commit
	if err := s.db.Where("stream_id = ?", streamID).Order("timestamp desc").Find(&commits).Error; err != nil {
		return nil, fmt.Errorf("store: list commits for %s: %w", streamID, err)
	}
	return commits, nil
}

// RecentCommits returns the n newest commits for a stream.
func (s *Store) RecentCommits(streamID string, n int) ([]models.Commit, error) {
	if n <= 0 {
		return nil, nil
	}
	var commits []models.Commit
	if err := s.db.Where("stream_id = ?", streamID).Order("timestamp desc").Limit(n).Find(&commits).Error; err != nil {
		return nil, fmt.Errorf("store: recent commits for %s: %w", streamID, err)
	}
	return commits, nil
}

// CountStreams returns the total number of streams.
func (s *Store) CountStreams() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Stream{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count streams: %w", err)
	}
	return count, nil
}

// CountCommits returns the total number of stored commits.
func (s *Store) CountCommits() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Commit{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count commits: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of streams per status.
func (s *Store) CountByStatus() (map[string]int64, error) {
	return s.groupCount("status")
}

// CountByCategory returns the number of streams per category.
func (s *Store) CountByCategory() (map[string]int64, error) {
	return s.groupCount("category")
}

func (s *Store) groupCount(column string) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	err := s.db.Model(&models.Stream{}).
		Select(column + " as key, count(*) as count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: count streams by %s: %w", column, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}
