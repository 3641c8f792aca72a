package summary

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/streamyard/internal/models"
)

// Summarize derives a one-paragraph status line for a stream from its
// progress, phase, and recent commit activity.
func Summarize(stream *models.Stream, commits []models.Commit) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%d%% complete", stream.Progress))

	if phase := currentPhaseName(stream); phase != "" {
		parts = append(parts, "phase: "+phase)
	}

	if len(commits) == 0 {
		parts = append(parts, "no recent commits")
	} else {
		authors := map[string]bool{}
		files := 0
		for _, c := range commits {
			authors[c.Author] = true
			files += c.FilesChanged
		}
		parts = append(parts, fmt.Sprintf("%d recent commits by %d author(s), %d files touched",
			len(commits), len(authors), files))

		latest := commits[0]
		age := time.Since(latest.Timestamp).Truncate(time.Minute)
		parts = append(parts, fmt.Sprintf("latest: %q (%s ago)", latest.Message, age))
	}

	if stream.BlockedBy != nil {
		parts = append(parts, "blocked by "+*stream.BlockedBy)
	}

	return strings.Join(parts, "; ")
}

// currentPhaseName resolves the stream's phase index against its estimated
// phase list, returning "" when unset or unresolvable.
func currentPhaseName(stream *models.Stream) string {
	if stream.CurrentPhase == nil || stream.EstimatedPhases == "" {
		return ""
	}
	var phases []string
	if err := json.Unmarshal([]byte(stream.EstimatedPhases), &phases); err != nil {
		return ""
	}
	idx := *stream.CurrentPhase
	if idx < 0 || idx >= len(phases) {
		return ""
	}
	return fmt.Sprintf("%s (%d/%d)", phases[idx], idx+1, len(phases))
}
