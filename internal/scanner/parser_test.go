package scanner

import (
	"testing"
	"time"
)

const sampleLog = "\x1e" +
	"aaa111\x1falice\x1f2026-08-30T10:00:00+00:00\x1fadd login endpoint\n" +
	" 3 files changed, 120 insertions(+), 4 deletions(-)\n" +
	"\x1e" +
	"bbb222\x1fbob\x1f2026-08-29T09:30:00+00:00\x1ffix session expiry\n" +
	" 1 file changed, 2 insertions(+)\n" +
	"\x1e" +
	"ccc333\x1falice\x1f2026-08-28T08:00:00+00:00\x1fmerge branch cleanup\n"

func TestParse_FullOutput(t *testing.T) {
	entries, err := NewParser().Parse(sampleLog)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	first := entries[0]
	if first.Hash != "aaa111" {
		t.Errorf("Hash = %q", first.Hash)
	}
	if first.Author != "alice" {
		t.Errorf("Author = %q", first.Author)
	}
	if first.Message != "add login endpoint" {
		t.Errorf("Message = %q", first.Message)
	}
	if first.FilesChanged != 3 {
		t.Errorf("FilesChanged = %d, want 3", first.FilesChanged)
	}
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, want)
	}

	// Singular "1 file changed" still parses.
	if entries[1].FilesChanged != 1 {
		t.Errorf("entries[1].FilesChanged = %d, want 1", entries[1].FilesChanged)
	}
	// A commit with no stat block (e.g. a merge) defaults to zero.
	if entries[2].FilesChanged != 0 {
		t.Errorf("entries[2].FilesChanged = %d, want 0", entries[2].FilesChanged)
	}
}

func TestParse_Empty(t *testing.T) {
	entries, err := NewParser().Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestParse_MalformedRecord(t *testing.T) {
	_, err := NewParser().Parse("\x1enot-a-valid-record")
	if err == nil {
		t.Fatal("expected error for malformed record")
	}
}

func TestParse_BadDate(t *testing.T) {
	_, err := NewParser().Parse("\x1eaaa\x1falice\x1fyesterday\x1fmsg")
	if err == nil {
		t.Fatal("expected error for unparseable date")
	}
}
