package dashboard

import (
	"encoding/json"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
)

// StreamView is the JSON shape served for a stream.
type StreamView struct {
	ID                string     `json:"id"`
	Number            string     `json:"number"`
	Title             string     `json:"title"`
	Category          string     `json:"category"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	Progress          int        `json:"progress"`
	CurrentPhase      *int       `json:"currentPhase"`
	EstimatedPhases   []string   `json:"estimatedPhases"`
	WorktreePath      string     `json:"worktreePath"`
	Branch            string     `json:"branch"`
	BlockedBy         *string    `json:"blockedBy,omitempty"`
	CompletionSummary string     `json:"completionSummary,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	SummaryUpdatedAt  *time.Time `json:"summaryUpdatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// CommitView is the JSON shape served for a commit.
type CommitView struct {
	StreamID     string    `json:"streamId"`
	Hash         string    `json:"hash"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	FilesChanged int       `json:"filesChanged"`
	Timestamp    time.Time `json:"timestamp"`
}

// Stats is the aggregate view served at /api/stats.
type Stats struct {
	TotalStreams  int64            `json:"totalStreams"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByCategory    map[string]int64 `json:"byCategory"`
	ActiveStreams int64            `json:"activeStreams"`
	TotalCommits  int64            `json:"totalCommits"`
}

func streamView(s *models.Stream) StreamView {
	var phases []string
	if s.EstimatedPhases != "" {
		json.Unmarshal([]byte(s.EstimatedPhases), &phases)
	}
	return StreamView{
		ID:                s.ID,
		Number:            s.Number,
		Title:             s.Title,
		Category:          s.Category,
		Priority:          s.Priority,
		Status:            s.Status,
		Progress:          s.Progress,
		CurrentPhase:      s.CurrentPhase,
		EstimatedPhases:   phases,
		WorktreePath:      s.WorktreePath,
		Branch:            s.Branch,
		BlockedBy:         s.BlockedBy,
		CompletionSummary: s.CompletionSummary,
		Summary:           s.Summary,
		SummaryUpdatedAt:  s.SummaryUpdatedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func listStreams(st *store.Store, status string) ([]StreamView, error) {
	var (
		streams []models.Stream
		err     error
	)
	if status != "" {
		streams, err = st.ListByStatus(status)
	} else {
		streams, err = st.List()
	}
	if err != nil {
		return nil, err
	}
	views := make([]StreamView, len(streams))
	for i := range streams {
		views[i] = streamView(&streams[i])
	}
	return views, nil
}

func commitViews(commits []models.Commit) []CommitView {
	views := make([]CommitView, len(commits))
	for i, c := range commits {
		views[i] = CommitView{
			StreamID:     c.StreamID,
			Hash:         c.Hash,
			Message:      c.Message,
			Author:       c.Author,
			FilesChanged: c.FilesChanged,
			Timestamp:    c.Timestamp,
		}
	}
	return views
}

func collectStats(st *store.Store) (*Stats, error) {
	byStatus, err := st.CountByStatus()
	if err != nil {
		return nil, err
	}
	byCategory, err := st.CountByCategory()
	if err != nil {
		return nil, err
	}
	totalCommits, err := st.CountCommits()
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &Stats{
		TotalStreams:  total,
		ByStatus:      byStatus,
		ByCategory:    byCategory,
		ActiveStreams: byStatus["active"],
		TotalCommits:  totalCommits,
	}, nil
}
