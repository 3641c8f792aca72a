package handler

import (
	"encoding/json"
	"time"

	"github.com/zulandar/streamyard/internal/models"
)

// StreamPayload is the stream shape returned by stream operations.
type StreamPayload struct {
	ID                string   `json:"id"`
	Number            string   `json:"number"`
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	Priority          string   `json:"priority"`
	Status            string   `json:"status"`
	Progress          int      `json:"progress"`
	CurrentPhase      *int     `json:"currentPhase"`
	EstimatedPhases   []string `json:"estimatedPhases"`
	WorktreePath      string   `json:"worktreePath"`
	Branch            string   `json:"branch"`
	BlockedBy         *string  `json:"blockedBy,omitempty"`
	CompletionSummary string   `json:"completionSummary,omitempty"`
	Summary           string   `json:"summary,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

func streamPayload(s *models.Stream) StreamPayload {
	var phases []string
	if s.EstimatedPhases != "" {
		json.Unmarshal([]byte(s.EstimatedPhases), &phases)
	}
	return StreamPayload{
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
		CreatedAt:         s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         s.UpdatedAt.Format(time.RFC3339),
	}
}
