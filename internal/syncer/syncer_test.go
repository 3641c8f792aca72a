package syncer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSyncTestStore(t *testing.T) *store.Store {
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

func writeDefinition(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSync_CreatesStreams(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "auth.yaml", `
id: auth
number: "001"
title: Auth rework
category: backend
priority: high
status: active
progress: 40
estimated_phases: [design, implement, test]
worktree_path: /tmp/wt/auth
branch: stream/auth
`)
	writeDefinition(t, dir, "ui.yml", `
id: ui
number: "002"
title: Dashboard UI
category: frontend
priority: low
`)

	synced, err := New(st, dir).Sync()
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if synced != 2 {
		t.Errorf("synced = %d, want 2", synced)
	}

	auth, err := st.Get("auth")
	if err != nil {
		t.Fatalf("Get auth: %v", err)
	}
	if auth.Status != "active" || auth.Progress != 40 {
		t.Errorf("auth = status %q progress %d", auth.Status, auth.Progress)
	}
	if auth.EstimatedPhases != `["design","implement","test"]` {
		t.Errorf("EstimatedPhases = %q", auth.EstimatedPhases)
	}

	ui, err := st.Get("ui")
	if err != nil {
		t.Fatalf("Get ui: %v", err)
	}
	if ui.Status != "initializing" {
		t.Errorf("ui defaulted status = %q, want initializing", ui.Status)
	}
}

func TestSync_Idempotent(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "auth.yaml", `
id: auth
title: Auth rework
category: backend
status: active
progress: 40
`)

	imp := New(st, dir)
	if _, err := imp.Sync(); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	synced, err := imp.Sync()
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if synced != 1 {
		t.Errorf("second sync synced = %d, want 1", synced)
	}

	count, err := st.CountStreams()
	if err != nil {
		t.Fatalf("CountStreams: %v", err)
	}
	if count != 1 {
		t.Errorf("CountStreams = %d, want 1", count)
	}
}

func TestSync_UpdatesExisting(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "auth.yaml", `
id: auth
title: Auth rework
category: backend
status: active
progress: 40
`)

	imp := New(st, dir)
	if _, err := imp.Sync(); err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	writeDefinition(t, dir, "auth.yaml", `
id: auth
title: Auth rework
category: backend
status: paused
progress: 75
`)
	if _, err := imp.Sync(); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	stream, err := st.Get("auth")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stream.Status != "paused" || stream.Progress != 75 {
		t.Errorf("stream = status %q progress %d, want paused/75", stream.Status, stream.Progress)
	}
}

func TestSync_IDFromFileName(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "payments.yaml", `
title: Payments
category: backend
`)

	if _, err := New(st, dir).Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := st.Get("payments"); err != nil {
		t.Errorf("Get payments: %v", err)
	}
}

func TestSync_SkipsBadFiles(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "good.yaml", `
id: good
category: backend
`)
	writeDefinition(t, dir, "broken.yaml", "{{not yaml")
	writeDefinition(t, dir, "badenum.yaml", `
id: badenum
category: mainframe
`)
	writeDefinition(t, dir, "notes.txt", "not a definition")

	synced, err := New(st, dir).Sync()
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}
	if _, err := st.Get("good"); err != nil {
		t.Errorf("Get good: %v", err)
	}
	if _, err := st.Get("badenum"); err == nil {
		t.Error("badenum was synced despite invalid category")
	}
}

func TestSync_ProgressClamped(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "over.yaml", `
id: over
category: backend
progress: 250
`)

	if _, err := New(st, dir).Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	stream, err := st.Get("over")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stream.Progress != 100 {
		t.Errorf("Progress = %d, want clamped to 100", stream.Progress)
	}
}

func TestSync_BlockedRequiresBlocker(t *testing.T) {
	st := openSyncTestStore(t)
	dir := t.TempDir()
	writeDefinition(t, dir, "stuck.yaml", `
id: stuck
category: backend
status: blocked
`)

	synced, err := New(st, dir).Sync()
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if synced != 0 {
		t.Errorf("synced = %d, want 0", synced)
	}
}

func TestSync_MissingDir(t *testing.T) {
	st := openSyncTestStore(t)

	synced, err := New(st, filepath.Join(t.TempDir(), "nope")).Sync()
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if synced != 0 {
		t.Errorf("synced = %d, want 0", synced)
	}
}
