// Package config loads the configuration store's retention-core settings
// and the ambient logging configuration it shares with the rest of the
// process.
package config

import (
	"path/filepath"
	"time"

	coretypes "github.com/projecteru2/core/types"

	"github.com/projecteru2/gcstore/utils"
)

// Config holds the gcstore process configuration.
type Config struct {
	// RootDir is the base directory for the JSON-backed repositories.
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// MaxVersions caps root-version count, per-app version count, and
	// per-pod version count.
	MaxVersions int `json:"max_versions" mapstructure:"max_versions"`
	// ScanBatchSize bounds how many pinning roots are hydrated and
	// processed together during a scan. Defaults to gc.DefaultScanBatchSize.
	ScanBatchSize int `json:"scan_batch_size" mapstructure:"scan_batch_size"`
	// CleaningInterval is the Resting-state delay. Zero disables Resting
	// and drives the coordinator straight into ReadyForGc.
	CleaningInterval time.Duration `json:"cleaning_interval" mapstructure:"cleaning_interval"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:          "/var/lib/gcstore",
		MaxVersions:      10,
		CleaningInterval: 5 * time.Minute, //nolint:mnd
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// EnsureDirs creates all directories required by the JSON repository
// backends rooted under RootDir.
func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(
		c.AppsDir(),
		c.PodsDir(),
		c.GroupsDir(),
		c.DeploymentsDir(),
	)
}

func (c *Config) AppsDir() string        { return filepath.Join(c.RootDir, "apps") }
func (c *Config) PodsDir() string        { return filepath.Join(c.RootDir, "pods") }
func (c *Config) GroupsDir() string      { return filepath.Join(c.RootDir, "groups") }
func (c *Config) DeploymentsDir() string { return filepath.Join(c.RootDir, "plans") }

// AppsIndexFile and AppsIndexLock are the app repository's index store paths.
func (c *Config) AppsIndexFile() string { return filepath.Join(c.AppsDir(), "apps.json") }
func (c *Config) AppsIndexLock() string { return filepath.Join(c.AppsDir(), "apps.lock") }

func (c *Config) PodsIndexFile() string { return filepath.Join(c.PodsDir(), "pods.json") }
func (c *Config) PodsIndexLock() string { return filepath.Join(c.PodsDir(), "pods.lock") }

func (c *Config) GroupsIndexFile() string { return filepath.Join(c.GroupsDir(), "roots.json") }
func (c *Config) GroupsIndexLock() string { return filepath.Join(c.GroupsDir(), "roots.lock") }

func (c *Config) DeploymentsIndexFile() string { return filepath.Join(c.DeploymentsDir(), "plans.json") }
func (c *Config) DeploymentsIndexLock() string { return filepath.Join(c.DeploymentsDir(), "plans.lock") }
