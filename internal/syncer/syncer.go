// Package syncer bootstraps the store from on-disk stream definition files.
// Re-running a sync is always safe: existing streams are updated in place,
// never duplicated.
package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zulandar/streamyard/internal/models"
	"github.com/zulandar/streamyard/internal/store"
	"gopkg.in/yaml.v3"
)

// Definition is one stream definition file.
type Definition struct {
	ID              string   `yaml:"id"`
	Number          string   `yaml:"number"`
	Title           string   `yaml:"title"`
	Category        string   `yaml:"category"`
	Priority        string   `yaml:"priority"`
	Status          string   `yaml:"status"`
	Progress        int      `yaml:"progress"`
	CurrentPhase    *int     `yaml:"current_phase"`
	EstimatedPhases []string `yaml:"estimated_phases"`
	WorktreePath    string   `yaml:"worktree_path"`
	Branch          string   `yaml:"branch"`
	BlockedBy       string   `yaml:"blocked_by"`
}

// Importer reads a directory of yaml stream definitions into the store.
type Importer struct {
	store *store.Store
	dir   string
}

// New creates an Importer for the given definitions directory.
func New(st *store.Store, dir string) *Importer {
	return &Importer{store: st, dir: dir}
}

// Sync upserts one stream per parseable definition file and returns the
// number synced. Files that fail to parse or validate are skipped; a
// missing directory means there is nothing to sync.
func (i *Importer) Sync() (int, error) {
	entries, err := os.ReadDir(i.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("syncer: read %s: %w", i.dir, err)
	}

	synced := 0
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(i.dir, entry.Name())
		if err := i.syncFile(path, entry.Name()); err != nil {
			continue
		}
		synced++
	}
	return synced, nil
}

// syncFile parses one definition and creates or updates its stream. The
// importer deliberately bypasses the lifecycle transition table: definition
// files are the bootstrap source of truth, and re-applying an unchanged
// file must never fail.
func (i *Importer) syncFile(path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("syncer: read %s: %w", path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("syncer: parse %s: %w", path, err)
	}
	def.applyDefaults(name)
	if err := def.validate(); err != nil {
		return err
	}

	_, err = i.store.Get(def.ID)
	if errors.Is(err, store.ErrNotFound) {
		return i.create(&def)
	}
	if err != nil {
		return err
	}
	return i.update(&def)
}

func (i *Importer) create(def *Definition) error {
	phases := "[]"
	if len(def.EstimatedPhases) > 0 {
		data, err := json.Marshal(def.EstimatedPhases)
		if err != nil {
			return fmt.Errorf("syncer: %s: marshal phases: %w", def.ID, err)
		}
		phases = string(data)
	}
	stream := &models.Stream{
		ID:              def.ID,
		Number:          def.Number,
		Title:           def.Title,
		Category:        def.Category,
		Priority:        def.Priority,
		Status:          def.Status,
		Progress:        def.Progress,
		CurrentPhase:    def.CurrentPhase,
		EstimatedPhases: phases,
		WorktreePath:    def.WorktreePath,
		Branch:          def.Branch,
	}
	if def.BlockedBy != "" {
		stream.BlockedBy = &def.BlockedBy
	}
	return i.store.Create(stream)
}

func (i *Importer) update(def *Definition) error {
	fields := store.Fields{
		Status:   &def.Status,
		Progress: &def.Progress,
	}
	if def.CurrentPhase != nil {
		fields.CurrentPhase = def.CurrentPhase
	}
	if def.BlockedBy != "" {
		fields.BlockedBy = &def.BlockedBy
	} else {
		fields.ClearBlockedBy = true
	}
	_, err := i.store.Update(def.ID, fields)
	return err
}

// applyDefaults fills in derived and default values. The id falls back to
// the file name without its extension.
func (d *Definition) applyDefaults(fileName string) {
	if d.ID == "" {
		d.ID = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if d.Title == "" {
		d.Title = d.ID
	}
	if d.Priority == "" {
		d.Priority = "medium"
	}
	if d.Status == "" {
		d.Status = "initializing"
	}
	if d.Progress < 0 {
		d.Progress = 0
	}
	if d.Progress > 100 {
		d.Progress = 100
	}
}

// validate checks enum fields; a definition that fails here is skipped.
func (d *Definition) validate() error {
	if !slices.Contains(models.Categories, d.Category) {
		return fmt.Errorf("syncer: %s: category %q is invalid", d.ID, d.Category)
	}
	if !slices.Contains(models.Priorities, d.Priority) {
		return fmt.Errorf("syncer: %s: priority %q is invalid", d.ID, d.Priority)
	}
	if !slices.Contains(models.Statuses, d.Status) {
		return fmt.Errorf("syncer: %s: status %q is invalid", d.ID, d.Status)
	}
	if d.Status == "blocked" && d.BlockedBy == "" {
		return fmt.Errorf("syncer: %s: blocked status requires blocked_by", d.ID)
	}
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
