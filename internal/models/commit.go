package models

import "time"

// Commit is a VCS commit ingested from a stream's worktree. Commits are
// immutable once stored; (StreamID, Hash) is unique.
type Commit struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	StreamID     string `gorm:"size:64;uniqueIndex:idx_stream_hash;not null"`
	Hash         string `gorm:"size:40;uniqueIndex:idx_stream_hash;not null"`
	Message      string `gorm:"type:text"`
	Author       string `gorm:"size:128"`
	FilesChanged int    `gorm:"default:0"`
	Timestamp    time.Time
	CreatedAt    time.Time

	Stream Stream `gorm:"foreignKey:StreamID"`
}
