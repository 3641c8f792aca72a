// Package singleton ensures at most one dashboard host per project across
// independently-launched processes. It is a discovery/mutual-exclusion
// mechanism built on an atomic file create, not a consensus protocol: if
// the host dies, the next caller reclaims the lock on its own attempt.
package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Record is the lock file contents identifying the current dashboard host.
type Record struct {
	PID        int    `json:"pid"`
	Port       int    `json:"port"`
	InstanceID string `json:"instance_id"`
	StartedAt  string `json:"started_at"`
}

// Result reports the outcome of TryAcquire: either this process is hosting
// on Port, or an existing host was discovered at Port.
type Result struct {
	Hosting bool
	Port    int
	PID     int
}

// StartFunc binds the dashboard server and returns the bound port.
type StartFunc func() (int, error)

// Coordinator mediates lock-file ownership for one process.
type Coordinator struct {
	lockPath   string
	instanceID string

	// alive reports whether a pid belongs to a running process.
	// Overridable in tests.
	alive func(pid int) bool
}

// New creates a Coordinator for the given lock file path.
func New(lockPath string) *Coordinator {
	return &Coordinator{
		lockPath:   lockPath,
		instanceID: uuid.NewString(),
		alive:      isProcessRunning,
	}
}

// TryAcquire attempts to become the dashboard host. The first process to
// atomically create the lock file wins and runs start; a loser reads the
// recorded host and, if its pid is live, reports it as discovered. A lock
// naming a dead pid is stale and gets reclaimed.
func (c *Coordinator) TryAcquire(start StartFunc) (Result, error) {
	if c.lockPath == "" {
		return Result{}, fmt.Errorf("singleton: lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(c.lockPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("singleton: create lock dir: %w", err)
	}

	won, err := c.createExclusive()
	if err != nil {
		return Result{}, err
	}
	if won {
		return c.host(start)
	}

	record, err := c.readRecord()
	if err != nil {
		// Corrupt lock file: treat as stale.
		return c.reclaim(start)
	}
	if c.alive(record.PID) {
		return Result{Hosting: false, Port: record.Port, PID: record.PID}, nil
	}
	return c.reclaim(start)
}

// Release removes the lock file if this process owns it. Safe to call even
// when the lock was never acquired or was reclaimed by someone else.
func (c *Coordinator) Release() error {
	record, err := c.readRecord()
	if err != nil {
		return nil
	}
	if record.InstanceID != c.instanceID {
		return nil
	}
	if err := os.Remove(c.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("singleton: remove lock: %w", err)
	}
	return nil
}

// createExclusive attempts the winning atomic create. Returns false when the
// file already exists.
func (c *Coordinator) createExclusive() (bool, error) {
	f, err := os.OpenFile(c.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("singleton: create lock: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(c.record(0)); err != nil {
		os.Remove(c.lockPath)
		return false, fmt.Errorf("singleton: write lock: %w", err)
	}
	return true, nil
}

// host starts the server and records the bound port. On start failure the
// lock is released so another process can take over.
func (c *Coordinator) host(start StartFunc) (Result, error) {
	port, err := start()
	if err != nil {
		os.Remove(c.lockPath)
		return Result{}, fmt.Errorf("singleton: start dashboard: %w", err)
	}
	if err := c.writeRecord(c.record(port)); err != nil {
		return Result{}, err
	}
	return Result{Hosting: true, Port: port, PID: os.Getpid()}, nil
}

// reclaim overwrites a stale lock and becomes the host.
func (c *Coordinator) reclaim(start StartFunc) (Result, error) {
	if err := c.writeRecord(c.record(0)); err != nil {
		return Result{}, err
	}
	return c.host(start)
}

func (c *Coordinator) record(port int) Record {
	return Record{
		PID:        os.Getpid(),
		Port:       port,
		InstanceID: c.instanceID,
		StartedAt:  time.Now().Format(time.RFC3339),
	}
}

func (c *Coordinator) readRecord() (Record, error) {
	data, err := os.ReadFile(c.lockPath)
	if err != nil {
		return Record{}, fmt.Errorf("singleton: read lock: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("singleton: parse lock: %w", err)
	}
	return record, nil
}

// writeRecord replaces the lock contents atomically via rename, so a
// concurrent reader never observes a partial record.
func (c *Coordinator) writeRecord(record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("singleton: marshal lock: %w", err)
	}
	tmp := c.lockPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("singleton: write lock: %w", err)
	}
	if err := os.Rename(tmp, c.lockPath); err != nil {
		return fmt.Errorf("singleton: replace lock: %w", err)
	}
	return nil
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
