package scanner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openScannerTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Stream{}, &models.Commit{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return store.New(db)
}

// initTestRepo creates a git repo with n commits. Commit i is backdated by
// ages[i] so window tests can span days.
func initTestRepo(t *testing.T, ages []time.Duration) string {
	t.Helper()
	dir := t.TempDir()

	run := func(env []string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), env...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run(nil, "init")
	run(nil, "config", "user.email", "test@example.com")
	run(nil, "config", "user.name", "Test Author")

	for i, age := range ages {
		path := filepath.Join(dir, fmt.Sprintf("file%d.txt", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("change %d\n", i)), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
		run(nil, "add", ".")
		when := time.Now().Add(-age).Format(time.RFC3339)
		run([]string{"GIT_AUTHOR_DATE=" + when, "GIT_COMMITTER_DATE=" + when},
			"commit", "-m", fmt.Sprintf("commit %d", i))
	}
	return dir
}

func createScannedStream(t *testing.T, st *store.Store, id, worktree string) {
	t.Helper()
	err := st.Create(&models.Stream{
		ID:              id,
		Number:          "001",
		Title:           "Stream " + id,
		Category:        "backend",
		Priority:        "high",
		Status:          "active",
		EstimatedPhases: "[]",
		WorktreePath:    worktree,
		Branch:          "main",
	})
	if err != nil {
		t.Fatalf("create stream: %v", err)
	}
}

func TestScanStream_IngestsCommits(t *testing.T) {
	st := openScannerTestStore(t)
	repo := initTestRepo(t, []time.Duration{3 * time.Hour, 2 * time.Hour, time.Hour})
	createScannedStream(t, st, "s1", repo)

	sc := New(st, Opts{})
	result, err := sc.ScanStream("s1")
	if err != nil {
		t.Fatalf("ScanStream: %v", err)
	}
	if result.Scanned != 1 || result.Errors != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.CommitsAdded != 3 {
		t.Errorf("CommitsAdded = %d, want 3", result.CommitsAdded)
	}

	commits, err := st.ListCommits("s1")
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("stored commits = %d, want 3", len(commits))
	}
	if commits[0].Message != "commit 2" {
		t.Errorf("newest commit message = %q, want %q", commits[0].Message, "commit 2")
	}
	if commits[0].Author != "Test Author" {
		t.Errorf("author = %q", commits[0].Author)
	}
	if commits[0].FilesChanged != 1 {
		t.Errorf("filesChanged = %d, want 1", commits[0].FilesChanged)
	}
}

func TestScanStream_Idempotent(t *testing.T) {
	st := openScannerTestStore(t)
	repo := initTestRepo(t, []time.Duration{time.Hour})
	createScannedStream(t, st, "s1", repo)

	sc := New(st, Opts{})
	if _, err := sc.ScanStream("s1"); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	result, err := sc.ScanStream("s1")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if result.CommitsAdded != 0 {
		t.Errorf("second scan CommitsAdded = %d, want 0", result.CommitsAdded)
	}

	count, err := st.CountCommits()
	if err != nil {
		t.Fatalf("CountCommits: %v", err)
	}
	if count != 1 {
		t.Errorf("CountCommits = %d, want 1", count)
	}
}

func TestScanStream_HonorsCountCeiling(t *testing.T) {
	st := openScannerTestStore(t)
	ages := make([]time.Duration, 10)
	for i := range ages {
		ages[i] = time.Duration(10-i) * time.Minute
	}
	repo := initTestRepo(t, ages)
	createScannedStream(t, st, "s1", repo)

	sc := New(st, Opts{MaxCommits: 4})
	result, err := sc.ScanStream("s1")
	if err != nil {
		t.Fatalf("ScanStream: %v", err)
	}
	if result.CommitsAdded != 4 {
		t.Errorf("CommitsAdded = %d, want 4", result.CommitsAdded)
	}
}

func TestScanStream_HonorsWindow(t *testing.T) {
	st := openScannerTestStore(t)
	// Two commits inside a 7-day window, two well outside it.
	repo := initTestRepo(t, []time.Duration{
		30 * 24 * time.Hour,
		10 * 24 * time.Hour,
		2 * 24 * time.Hour,
		time.Hour,
	})
	createScannedStream(t, st, "s1", repo)

	sc := New(st, Opts{Window: 7 * 24 * time.Hour})
	result, err := sc.ScanStream("s1")
	if err != nil {
		t.Fatalf("ScanStream: %v", err)
	}
	if result.CommitsAdded != 2 {
		t.Errorf("CommitsAdded = %d, want 2", result.CommitsAdded)
	}

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	commits, _ := st.ListCommits("s1")
	for _, c := range commits {
		if c.Timestamp.Before(cutoff) {
			t.Errorf("commit %s is older than the window (%v)", c.Hash, c.Timestamp)
		}
	}
}

func TestScanStream_NotFound(t *testing.T) {
	st := openScannerTestStore(t)

	sc := New(st, Opts{})
	_, err := sc.ScanStream("missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestScanStream_MissingWorktreeCounted(t *testing.T) {
	st := openScannerTestStore(t)
	createScannedStream(t, st, "s1", "/nonexistent/worktree/path")

	sc := New(st, Opts{})
	result, err := sc.ScanStream("s1")
	if err != nil {
		t.Fatalf("ScanStream: %v", err)
	}
	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}
	if result.CommitsAdded != 0 {
		t.Errorf("CommitsAdded = %d, want 0", result.CommitsAdded)
	}
}

func TestScanAll_IsolatesFailures(t *testing.T) {
	st := openScannerTestStore(t)
	repo := initTestRepo(t, []time.Duration{time.Hour})
	createScannedStream(t, st, "good", repo)
	createScannedStream(t, st, "bad", "/nonexistent/worktree/path")

	// Archived streams are skipped entirely.
	archived := "archived"
	createScannedStream(t, st, "done", repo)
	if _, err := st.Update("done", store.Fields{Status: &archived}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	sc := New(st, Opts{})
	result, err := sc.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if result.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", result.Scanned)
	}
	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}
	if result.CommitsAdded != 1 {
		t.Errorf("CommitsAdded = %d, want 1", result.CommitsAdded)
	}
}
