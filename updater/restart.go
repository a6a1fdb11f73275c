package updater

import (
	"log/slog"
	"time"
)

// Restarter restarts the installed OS service
type Restarter interface {
	Restart() error
}

// RestartService restarts the service after delay so the current request can complete.
// The returned channel is closed once the restart was attempted.
func RestartService(svc Restarter, delay time.Duration, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("scheduling service restart", "delay", delay)

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(delay)
		if err := svc.Restart(); err != nil {
			logger.Warn("failed to restart service", "error", err)
		}
	}()
	return done
}
