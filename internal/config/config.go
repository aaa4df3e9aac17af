package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Selection SelectionConfig `yaml:"selection"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Retention RetentionConfig `yaml:"retention"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type OutputConfig struct {
	Root           string `yaml:"root"`   // empty = user's desktop
	Folder         string `yaml:"folder"` // e.g. "Output"
	CheckFreeSpace bool   `yaml:"checkFreeSpace"`
}

type SelectionConfig struct {
	StateFile string `yaml:"stateFile"`
}

type ArchiveConfig struct {
	Symlinks string `yaml:"symlinks"` // "follow", "skip"
	Level    int    `yaml:"level"`    // flate level, 0 = library default
}

type InboxConfig struct {
	Path        string      `yaml:"path"`
	NamePattern string      `yaml:"namePattern"` // time layout, e.g. drop-2006-01-02T15-04-05
	AutoBuild   bool        `yaml:"autoBuild"`
	Watch       WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Mode            string        `yaml:"mode"`           // "auto", "poll", "fsnotify"
	PollInterval    time.Duration `yaml:"pollInterval"`   // e.g. 5s
	DebounceWindow  time.Duration `yaml:"debounceWindow"` // e.g. 500ms
	StabilityWindow time.Duration `yaml:"stabilityWindow"`
}

type ScheduleConfig struct {
	Cron        string `yaml:"cron"`
	NamePattern string `yaml:"namePattern"`
}

type RetentionConfig struct {
	LastCount int `yaml:"lastCount"` // 0 keeps everything
}

type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Output.Folder == "" {
		c.Output.Folder = "Output"
	}
	if c.Selection.StateFile == "" {
		c.Selection.StateFile = filepath.Join(xdg.StateHome, "dropzip", "selection.yaml")
	}
	if c.Archive.Symlinks == "" {
		c.Archive.Symlinks = "follow"
	}
	if c.Inbox.NamePattern == "" {
		c.Inbox.NamePattern = "drop-2006-01-02T15-04-05"
	}
	if c.Inbox.Watch.Mode == "" {
		c.Inbox.Watch.Mode = "auto"
	}
	if c.Inbox.Watch.PollInterval <= 0 {
		c.Inbox.Watch.PollInterval = 5 * time.Second
	}
	if c.Inbox.Watch.DebounceWindow <= 0 {
		c.Inbox.Watch.DebounceWindow = 500 * time.Millisecond
	}
	if c.Inbox.Watch.StabilityWindow <= 0 {
		c.Inbox.Watch.StabilityWindow = time.Second
	}
	if c.Schedule.NamePattern == "" {
		c.Schedule.NamePattern = "scheduled-2006-01-02T15-04-05"
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(xdg.DataHome, "dropzip", "history.db")
	}
}
