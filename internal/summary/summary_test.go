package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSummaryTestStore(t *testing.T) *store.Store {
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

func TestSummarize_NoCommits(t *testing.T) {
	stream := &models.Stream{Progress: 10}

	got := Summarize(stream, nil)
	if !strings.Contains(got, "10% complete") {
		t.Errorf("summary %q missing progress", got)
	}
	if !strings.Contains(got, "no recent commits") {
		t.Errorf("summary %q missing commit note", got)
	}
}

func TestSummarize_WithActivity(t *testing.T) {
	phase := 1
	blocker := "infra"
	stream := &models.Stream{
		Progress:        60,
		CurrentPhase:    &phase,
		EstimatedPhases: `["design","implement","test"]`,
		BlockedBy:       &blocker,
	}
	commits := []models.Commit{
		{Author: "alice", Message: "wire handlers", FilesChanged: 3, Timestamp: time.Now().Add(-30 * time.Minute)},
		{Author: "bob", Message: "add store", FilesChanged: 2, Timestamp: time.Now().Add(-2 * time.Hour)},
		{Author: "alice", Message: "scaffold", FilesChanged: 5, Timestamp: time.Now().Add(-3 * time.Hour)},
	}

	got := Summarize(stream, commits)
	for _, want := range []string{
		"60% complete",
		"phase: implement (2/3)",
		"3 recent commits by 2 author(s), 10 files touched",
		`latest: "wire handlers"`,
		"blocked by infra",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}

func TestSummarize_BadPhaseDataIgnored(t *testing.T) {
	phase := 5
	stream := &models.Stream{Progress: 20, CurrentPhase: &phase, EstimatedPhases: `["only"]`}
	if got := Summarize(stream, nil); strings.Contains(got, "phase:") {
		t.Errorf("summary %q names a phase for an out-of-range index", got)
	}

	stream.EstimatedPhases = "not json"
	if got := Summarize(stream, nil); strings.Contains(got, "phase:") {
		t.Errorf("summary %q names a phase for unparseable data", got)
	}
}

func TestTick_UpdatesActiveStreamsOnly(t *testing.T) {
	st := openSummaryTestStore(t)
	for id, status := range map[string]string{"a": "active", "p": "paused"} {
		err := st.Create(&models.Stream{
			ID: id, Title: id, Category: "backend", Priority: "high",
			Status: status, Progress: 30, EstimatedPhases: "[]",
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := st.InsertCommit(&models.Commit{
		StreamID: "a", Hash: "h1", Author: "alice", Message: "work", Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("insert commit: %v", err)
	}

	w := New(st, Opts{})
	if err := w.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	active, _ := st.Get("a")
	if active.Summary == "" {
		t.Error("active stream summary not written")
	}
	if !strings.Contains(active.Summary, "1 recent commits") {
		t.Errorf("Summary = %q", active.Summary)
	}
	if active.SummaryUpdatedAt == nil {
		t.Error("SummaryUpdatedAt not set")
	}

	paused, _ := st.Get("p")
	if paused.Summary != "" {
		t.Errorf("paused stream summary = %q, want untouched", paused.Summary)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := openSummaryTestStore(t)
	w := New(st, Opts{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNextWait_CronAndFallback(t *testing.T) {
	w := New(nil, Opts{Interval: time.Minute, CronExpr: "*/5 * * * *"})
	if d := w.nextWait(); d <= 0 || d > 5*time.Minute {
		t.Errorf("cron nextWait = %v, want within (0, 5m]", d)
	}

	w = New(nil, Opts{Interval: time.Minute, CronExpr: "not a schedule"})
	if d := w.nextWait(); d != time.Minute {
		t.Errorf("fallback nextWait = %v, want 1m", d)
	}
}
