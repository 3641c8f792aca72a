package scanner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one commit extracted from raw git log output.
type Entry struct {
	Hash         string
	Author       string
	Message      string
	FilesChanged int
	Timestamp    time.Time
}

// Parser turns raw VCS log output into entries. The extraction format is
// pluggable: swapping the log format means swapping the parser, nothing else.
type Parser interface {
	Parse(output string) ([]Entry, error)
}

// logFormat is the --pretty format matching unitSeparatorParser: a record
// separator before each commit, then hash/author/ISO date/subject split on
// the unit separator.
const logFormat = "%x1e%H%x1f%an%x1f%aI%x1f%s"

var filesChangedRe = regexp.MustCompile(`(\d+) files? changed`)

// unitSeparatorParser parses logFormat output with --shortstat stats.
type unitSeparatorParser struct{}

// NewParser returns the default parser for git log output.
func NewParser() Parser {
	return unitSeparatorParser{}
}

func (unitSeparatorParser) Parse(output string) ([]Entry, error) {
	var entries []Entry
	for _, record := range strings.Split(output, "\x1e") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		header, stats, _ := strings.Cut(record, "\n")
		parts := strings.Split(header, "\x1f")
		if len(parts) != 4 {
			return nil, fmt.Errorf("scanner: malformed log record %q", header)
		}
		ts, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			return nil, fmt.Errorf("scanner: parse commit date %q: %w", parts[2], err)
		}
		entry := Entry{
			Hash:      parts[0],
			Author:    parts[1],
			Timestamp: ts,
			Message:   parts[3],
		}
		if m := filesChangedRe.FindStringSubmatch(stats); m != nil {
			n, _ := strconv.Atoi(m[1])
			entry.FilesChanged = n
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
