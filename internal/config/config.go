// Package config provides the environment-derived runtime configuration.
// It is read exactly once at startup and passed into every component
// constructor; no component reads ambient environment state directly.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for one streamyard process.
type Config struct {
	ProjectRoot      string
	WorktreeRoot     string
	DatabasePath     string
	LockFilePath     string
	StreamsDir       string
	DashboardPort    int // 0 means ephemeral
	DashboardEnabled bool
	SummaryInterval  time.Duration
	SummaryCron      string
}

// FromEnv reads configuration from STREAMYARD_* environment variables and
// returns a validated Config. Validation failures here are the only fatal
// startup errors.
func FromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STREAMYARD")
	v.AutomaticEnv()

	v.SetDefault("dashboard_enabled", true)
	v.SetDefault("summary_interval", "10s")

	cfg := &Config{
		ProjectRoot:      v.GetString("project_root"),
		WorktreeRoot:     v.GetString("worktree_root"),
		DatabasePath:     v.GetString("db_path"),
		LockFilePath:     v.GetString("lock_path"),
		StreamsDir:       v.GetString("streams_dir"),
		DashboardPort:    v.GetInt("dashboard_port"),
		DashboardEnabled: v.GetBool("dashboard_enabled"),
		SummaryInterval:  v.GetDuration("summary_interval"),
		SummaryCron:      v.GetString("summary_cron"),
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in values derived from the project root.
func (c *Config) applyDefaults() {
	if c.ProjectRoot == "" {
		return
	}
	if c.WorktreeRoot == "" {
		c.WorktreeRoot = filepath.Join(c.ProjectRoot, "worktrees")
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.ProjectRoot, ".streamyard", "streams.db")
	}
	if c.LockFilePath == "" {
		c.LockFilePath = filepath.Join(c.ProjectRoot, ".streamyard", "dashboard.lock")
	}
	if c.StreamsDir == "" {
		c.StreamsDir = filepath.Join(c.ProjectRoot, "streams")
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = 10 * time.Second
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.ProjectRoot == "" {
		errs = append(errs, "STREAMYARD_PROJECT_ROOT is required")
	}
	if c.DatabasePath == "" {
		errs = append(errs, "database path is required")
	}
	if c.LockFilePath == "" {
		errs = append(errs, "lock file path is required")
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard port %d is invalid", c.DashboardPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
