// Package config provides YAML-based configuration loading for Redloop.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Redloop configuration, loaded from redloop.yaml.
type Config struct {
	Project     string            `yaml:"project"`
	Root        string            `yaml:"root"`
	DB          DBConfig          `yaml:"db"`
	Snapshots   SnapshotConfig    `yaml:"snapshots"`
	Notify      NotifyConfig      `yaml:"notify"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DBConfig selects the persistence backend: a local SQLite file or a shared
// MySQL-compatible server.
type DBConfig struct {
	Driver   string `yaml:"driver"` // sqlite or mysql
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// SnapshotConfig controls workspace snapshot capture and retention.
type SnapshotConfig struct {
	RetentionDays int      `yaml:"retention_days"`
	TestDirs      []string `yaml:"test_dirs"`
	SourceDirs    []string `yaml:"source_dirs"`
	CacheSize     int      `yaml:"cache_size"`
}

// NotifyConfig holds chat-platform credentials for escalation notices.
// Empty tokens disable the corresponding adapter.
type NotifyConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// DashboardConfig holds dashboard server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// MaintenanceConfig holds schedules for background sweeps. Cron expressions
// use standard 5 fields (minute, hour, dom, month, dow).
type MaintenanceConfig struct {
	QueryExpiryDays      int    `yaml:"query_expiry_days"`
	ExpireQueriesCron    string `yaml:"expire_queries_cron"`
	CleanupSnapshotsCron string `yaml:"cleanup_snapshots_cron"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = ".redloop/redloop.db"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" && c.Project != "" {
		c.DB.Database = "redloop_" + c.Project
	}
	if c.Snapshots.RetentionDays == 0 {
		c.Snapshots.RetentionDays = 14
	}
	if len(c.Snapshots.TestDirs) == 0 {
		c.Snapshots.TestDirs = []string{"test", "tests", "__tests__", "spec"}
	}
	if len(c.Snapshots.SourceDirs) == 0 {
		c.Snapshots.SourceDirs = []string{"src", "lib", "app", "internal"}
	}
	if c.Snapshots.CacheSize == 0 {
		c.Snapshots.CacheSize = 256
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Maintenance.QueryExpiryDays == 0 {
		c.Maintenance.QueryExpiryDays = 7
	}
	if c.Maintenance.ExpireQueriesCron == "" {
		c.Maintenance.ExpireQueriesCron = "0 3 * * *"
	}
	if c.Maintenance.CleanupSnapshotsCron == "" {
		c.Maintenance.CleanupSnapshotsCron = "30 3 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var problems []string

	if c.Project == "" {
		problems = append(problems, "project is required")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			problems = append(problems, "db.path is required for the sqlite driver")
		}
	case "mysql":
		if c.DB.Database == "" {
			problems = append(problems, "db.database is required for the mysql driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("db.driver %q is not supported (sqlite, mysql)", c.DB.Driver))
	}
	if c.Snapshots.RetentionDays < 0 {
		problems = append(problems, "snapshots.retention_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}
