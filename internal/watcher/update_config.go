package watcher

import (
	"github.com/raoulx24/dropzip/internal/config"
)

// UpdateConfig applies the hot-reloadable inbox settings: name pattern,
// autoBuild and the stability window. The inbox path and the watch strategy
// (mode, poll interval, debounce) are fixed once Start runs and need a restart.
func (w *Watcher) UpdateConfig(cfg config.InboxConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Path != w.dir || cfg.Watch.Mode != w.mode ||
		cfg.Watch.PollInterval != w.interval || cfg.Watch.DebounceWindow != w.debounce {
		w.log.Warn("inbox path and watch strategy changes need a restart",
			"path", w.dir, "newPath", cfg.Path,
			"mode", w.mode, "newMode", cfg.Watch.Mode)
	}

	w.stability = cfg.Watch.StabilityWindow
	w.namePattern = cfg.NamePattern
	w.autoBuild = cfg.AutoBuild
}
