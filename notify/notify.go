// Package notify delivers cycle reports to external channels.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/autotrack/domain"
)

// Notifier delivers one cycle report
type Notifier interface {
	Notify(ctx context.Context, report *domain.CycleReport) error
}

// Multi fans a report out to every notifier. All of them are tried; the
// returned error joins the individual failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, report *domain.CycleReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes the report summary to a logger
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, report *domain.CycleReport) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "cycle report",
		"cycle", report.ID,
		"genre", report.Genre,
		"generated", report.TotalGenerated,
		"expected", report.ExpectedTracks(),
		"accounts", report.AccountsUsed,
		"uploaded", report.TotalUploads(),
		"monetized", report.TotalMonetized(),
	)
	for _, res := range report.Results {
		logger.InfoContext(ctx, "account result",
			"platform", res.Platform,
			"account", res.Account,
			"uploads", res.UploadCount,
			"monetized", res.MonetizationCount,
		)
	}
	for _, f := range report.Failures {
		logger.WarnContext(ctx, "worker failed", "stage", f.Stage, "account", f.Account, "error", f.Error)
	}
	return nil
}
