package watcher

import (
	"time"

	"github.com/HendryAvila/specgate/internal/workspace"
)

// Config tunes the watcher.
type Config struct {
	DebounceWindow time.Duration
	MaxBatchSize   int
	// IgnorePatterns are doublestar globs matched against slash paths
	// relative to the specs directory, on top of the project excludes.
	IgnorePatterns []string
	WatchHidden    bool
	Validate       workspace.ValidateOptions
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow: 300 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{
			"**/node_modules/**",
			"**/*~",
			"**/*.swp",
		},
		WatchHidden: false,
	}
}
