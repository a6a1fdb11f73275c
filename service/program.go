// Package service runs the daily cycle as a long-lived OS service.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kardianos/service"

	"github.com/autotrack/domain"
	"github.com/autotrack/updater"
)

// CycleRunner runs one cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*domain.CycleReport, error)
}

// GRPCServer serves health checks and is told when a cycle starts and ends
type GRPCServer interface {
	Listen(port string) error
	SetCycleRunning(running bool)
	Stop()
}

// Server is a status surface started alongside the scheduler
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Program implements service.Interface: it runs one cycle per day at RunAt
type Program struct {
	Runner CycleRunner
	// RunAt is the local "HH:MM" start time
	RunAt string
	// RunOnStart also runs a cycle right after start
	RunOnStart bool
	Logger     *slog.Logger

	HTTP     Server
	GRPC     GRPCServer
	GRPCPort string
	Updater  *updater.Updater

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	svc    service.Service
}

// Start is called when the service starts
func (p *Program) Start(s service.Service) error {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if _, err := parseRunAt(p.RunAt); err != nil {
		return err
	}
	p.svc = s
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.startServers()
	if p.Updater != nil {
		p.startAutoUpdate()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(p.ctx)
	}()
	return nil
}

// Stop is called when the service stops
func (p *Program) Stop(s service.Service) error {
	p.Logger.Info("service stopping")
	p.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if p.HTTP != nil {
		if err := p.HTTP.Shutdown(shutdownCtx); err != nil {
			p.Logger.Warn("failed to stop HTTP server", "error", err)
		}
	}
	if p.GRPC != nil {
		p.GRPC.Stop()
	}

	p.wg.Wait()
	p.Logger.Info("service stopped")
	return nil
}

func (p *Program) startServers() {
	if p.HTTP != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.HTTP.Start(); err != nil {
				p.Logger.Error("HTTP server stopped", "error", err)
			}
		}()
	}
	if p.GRPC != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.GRPC.Listen(p.GRPCPort); err != nil {
				p.Logger.Error("gRPC server stopped", "error", err)
			}
		}()
	}
}

// startAutoUpdate applies releases periodically and restarts the service after one is applied
func (p *Program) startAutoUpdate() {
	p.Updater.StartPeriodicCheck(p.ctx, func() {
		if p.svc == nil || service.Interactive() {
			p.Logger.Info("update applied, restart to use it")
			return
		}
		p.Logger.Info("update applied, restarting service")
		updater.RestartService(p.svc, 2*time.Second, p.Logger)
	})
}

// loop waits for each scheduled start and runs the cycle until ctx is done
func (p *Program) loop(ctx context.Context) {
	now, wait := p.clock()

	if p.RunOnStart {
		p.runCycle(ctx)
	}

	for {
		next, err := NextRun(now(), p.RunAt)
		if err != nil {
			p.Logger.Error("invalid schedule", "error", err)
			return
		}
		p.Logger.Info("next cycle scheduled", "at", next.Format(time.DateTime))

		if !wait(ctx, next.Sub(now())) {
			return
		}
		p.runCycle(ctx)
	}
}

func (p *Program) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("cycle panic recovered", "panic", r)
		}
	}()

	if p.GRPC != nil {
		p.GRPC.SetCycleRunning(true)
		defer p.GRPC.SetCycleRunning(false)
	}

	report, err := p.Runner.RunCycle(ctx)
	if err != nil {
		p.Logger.Error("cycle failed", "error", err)
		return
	}
	p.Logger.Info("cycle done", "cycle", report.ID, "uploaded", report.TotalUploads())
}

func (p *Program) clock() (func() time.Time, func(context.Context, time.Duration) bool) {
	now, wait := p.now, p.wait
	if now == nil {
		now = time.Now
	}
	if wait == nil {
		wait = sleep
	}
	return now, wait
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// NextRun returns the first local time at runAt ("HH:MM") strictly after now
func NextRun(now time.Time, runAt string) (time.Time, error) {
	at, err := parseRunAt(runAt)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour(), at.Minute(), 0, 0, now.Location())
	}
	return next, nil
}

func parseRunAt(runAt string) (time.Time, error) {
	at, err := time.Parse("15:04", runAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run time %q: expected HH:MM", runAt)
	}
	return at, nil
}
