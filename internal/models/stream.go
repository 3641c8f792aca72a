package models

import "time"

// Stream is a unit of parallel development work bound to one git
// worktree/branch.
type Stream struct {
	ID                string `gorm:"primaryKey;size:64"`
	Number            string `gorm:"size:16;index"`
	Title             string `gorm:"not null"`
	Category          string `gorm:"size:16;index"`
	Priority          string `gorm:"size:16;default:medium"`
	Status            string `gorm:"size:16;default:initializing;index"`
	Progress          int    `gorm:"default:0"`
	CurrentPhase      *int
	EstimatedPhases   string  `gorm:"type:json"`
	WorktreePath      string  `gorm:"size:512"`
	Branch            string  `gorm:"size:128"`
	BlockedBy         *string `gorm:"size:64"`
	CompletionSummary string  `gorm:"type:text"`
	Summary           string  `gorm:"type:text"`
	SummaryUpdatedAt  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Blocker *Stream  `gorm:"foreignKey:BlockedBy"`
	Commits []Commit `gorm:"foreignKey:StreamID"`
}

// Categories a stream may belong to.
var Categories = []string{"frontend", "backend", "infrastructure", "testing", "documentation", "refactoring"}

// Priorities a stream may carry.
var Priorities = []string{"critical", "high", "medium", "low"}

// Statuses a stream moves through.
var Statuses = []string{"initializing", "active", "blocked", "paused", "completed", "archived"}
