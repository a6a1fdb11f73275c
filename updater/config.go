package updater

import "time"

const (
	// DefaultRepoSlug is the GitHub repository releases are fetched from
	DefaultRepoSlug = "autotrack/autotrack"

	DefaultCheckInterval = 1 * time.Hour

	// Startup delay before first check (allow service to stabilize)
	StartupDelay = 30 * time.Second
)

// Config holds the updater configuration
type Config struct {
	// Slug is "owner/repo"
	Slug           string
	CheckInterval  time.Duration
	CurrentVersion string
}

// DefaultConfig returns a default configuration
func DefaultConfig(version string) *Config {
	return &Config{
		Slug:           DefaultRepoSlug,
		CheckInterval:  DefaultCheckInterval,
		CurrentVersion: version,
	}
}
