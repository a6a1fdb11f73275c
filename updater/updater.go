// Package updater replaces the running binary with the latest GitHub release.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

// ErrDevelopmentBuild is returned when the running binary carries no release version
var ErrDevelopmentBuild = errors.New("development build cannot be updated")

// Updater handles checking for and applying updates
type Updater struct {
	config *Config
	logger *slog.Logger
}

func New(config *Config, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCheckInterval
	}
	return &Updater{
		config: config,
		logger: logger.With("component", "updater"),
	}
}

func (u *Updater) selfUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}
	return updater, nil
}

// CheckForUpdate checks if a newer version is available
func (u *Updater) CheckForUpdate(ctx context.Context) (*selfupdate.Release, bool, error) {
	current, err := normalizeVersion(u.config.CurrentVersion)
	if err != nil {
		return nil, false, err
	}
	u.logger.Debug("checking for updates", "current", current, "repo", u.config.Slug)

	updater, err := u.selfUpdater()
	if err != nil {
		return nil, false, err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(u.config.Slug))
	if err != nil {
		return nil, false, fmt.Errorf("failed to detect latest version: %w", err)
	}
	if !found {
		u.logger.Info("no release found", "os", runtime.GOOS, "arch", runtime.GOARCH)
		return nil, false, nil
	}

	if latest.LessOrEqual(current) {
		u.logger.Debug("up to date", "current", current)
		return latest, false, nil
	}

	u.logger.Info("new version available", "latest", latest.Version(), "current", current)
	return latest, true, nil
}

// Update downloads and applies the update
func (u *Updater) Update(ctx context.Context, release *selfupdate.Release) error {
	u.logger.Info("downloading update", "version", release.Version())

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	updater, err := u.selfUpdater()
	if err != nil {
		return err
	}
	if err := updater.UpdateTo(ctx, release, exe); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	u.logger.Info("updated", "version", release.Version())
	return nil
}

// CheckAndUpdate checks for updates and applies if available
func (u *Updater) CheckAndUpdate(ctx context.Context) (bool, error) {
	release, needsUpdate, err := u.CheckForUpdate(ctx)
	if err != nil || !needsUpdate {
		return false, err
	}
	if err := u.Update(ctx, release); err != nil {
		return false, err
	}
	return true, nil
}

// StartPeriodicCheck applies updates every CheckInterval and calls onUpdated after each applied one
func (u *Updater) StartPeriodicCheck(ctx context.Context, onUpdated func()) {
	go func() {
		select {
		case <-time.After(StartupDelay):
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(u.config.CheckInterval)
		defer ticker.Stop()

		for {
			updated, err := u.CheckAndUpdate(ctx)
			switch {
			case errors.Is(err, ErrDevelopmentBuild):
				u.logger.Info("periodic update check disabled", "version", u.config.CurrentVersion)
				return
			case err != nil:
				u.logger.Warn("update check failed", "error", err)
			case updated && onUpdated != nil:
				onUpdated()
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				u.logger.Debug("periodic update check stopped")
				return
			}
		}
	}()
}

// normalizeVersion prefixes a "v" for comparison and rejects non-release builds
func normalizeVersion(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" || version == "dev" {
		return "", ErrDevelopmentBuild
	}
	if version[0] != 'v' {
		version = "v" + version
	}
	return version, nil
}
