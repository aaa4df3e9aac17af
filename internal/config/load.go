package config

import (
	"os"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/raoulx24/dropzip/internal/apperr"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads a YAML config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file",
			goerr.V("path", path),
			goerr.T(apperr.TagConfig))
	}

	// expand $(ENV_VAR) placeholders
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal config yaml",
			goerr.V("path", path),
			goerr.T(apperr.TagConfig))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated fields and the cron expression.
func (c *Config) Validate() error {
	switch c.Archive.Symlinks {
	case "follow", "skip":
	default:
		return goerr.New("invalid archive.symlinks",
			goerr.V("value", c.Archive.Symlinks),
			goerr.T(apperr.TagConfig))
	}

	if c.Archive.Level < -2 || c.Archive.Level > 9 {
		return goerr.New("archive.level must be between -2 and 9",
			goerr.V("value", c.Archive.Level),
			goerr.T(apperr.TagConfig))
	}

	switch c.Inbox.Watch.Mode {
	case "auto", "poll", "fsnotify":
	default:
		return goerr.New("invalid inbox.watch.mode",
			goerr.V("value", c.Inbox.Watch.Mode),
			goerr.T(apperr.TagConfig))
	}

	if c.Retention.LastCount < 0 {
		return goerr.New("retention.lastCount must not be negative",
			goerr.V("value", c.Retention.LastCount),
			goerr.T(apperr.TagConfig))
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return goerr.Wrap(err, "invalid schedule.cron",
				goerr.V("value", c.Schedule.Cron),
				goerr.T(apperr.TagConfig))
		}
	}

	return nil
}
