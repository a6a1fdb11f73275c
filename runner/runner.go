// Package runner drives one daily cycle: pick the genre, generate tracks slice
// by slice, publish them, clean up and report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/autotrack/domain"
	"github.com/autotrack/prompts"
	"github.com/autotrack/results"
	"github.com/autotrack/scheduler"
	"github.com/autotrack/staging"
)

const (
	StageGenerate = "generate"
	StagePublish  = "publish"
)

// finishTimeout bounds report delivery and persistence after the cycle
const finishTimeout = time.Minute

// ErrNoPrompts is returned when the prompt file holds no usable genre
var ErrNoPrompts = errors.New("no prompts available")

// Generator produces tracks for one account into its staging directory
type Generator interface {
	Generate(ctx context.Context, acct domain.Account, prompts []domain.Prompt, dir *staging.Dir) ([]domain.GeneratedItem, error)
}

// Publisher uploads and monetizes tracks with one account
type Publisher interface {
	Publish(ctx context.Context, acct domain.Account, items []domain.GeneratedItem) (domain.AccountResult, error)
}

// Notifier delivers the cycle report
type Notifier interface {
	Notify(ctx context.Context, report *domain.CycleReport) error
}

// HistoryStore keeps reports across runs
type HistoryStore interface {
	SaveCycle(ctx context.Context, report *domain.CycleReport) error
}

// Recorder observes finished cycles, e.g. for metrics
type Recorder interface {
	ObserveCycle(report *domain.CycleReport)
}

// Config holds the cycle parameters
type Config struct {
	Concurrency       int
	PromptsPerAccount int
	TracksPerAccount  int
	LaunchStagger     time.Duration
	WorkDir           string
	PromptsFile       string
	// GenerationAccounts and PublishAccounts are the two credential pools
	GenerationAccounts []domain.Account
	PublishAccounts    []domain.Account
}

// Deps are the collaborators of a Runner. Notifier, History and Recorder are optional.
type Deps struct {
	Generator Generator
	Publisher Publisher
	Notifier  Notifier
	History   HistoryStore
	Recorder  Recorder
	Sampler   *prompts.Sampler
}

// Runner runs daily cycles
type Runner struct {
	deps   Deps
	config Config
	logger *slog.Logger
	now    func() time.Time
	latest atomic.Pointer[domain.CycleReport]
	// running is 1 while a cycle is in progress
	running atomic.Int32
}

func New(deps Deps, config Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sampler == nil {
		deps.Sampler = prompts.NewSampler(nil)
	}
	return &Runner{
		deps:   deps,
		config: config,
		logger: logger.With("component", "runner"),
		now:    time.Now,
	}
}

// Latest returns the report of the last finished cycle, or nil
func (r *Runner) Latest() *domain.CycleReport {
	return r.latest.Load()
}

// Running reports whether a cycle is in progress
func (r *Runner) Running() bool {
	return r.running.Load() == 1
}

// RunCycle runs one full cycle. Worker failures end up in the report; only a
// cycle that cannot start (no prompts, overlapping run) returns an error.
func (r *Runner) RunCycle(ctx context.Context) (*domain.CycleReport, error) {
	if !r.running.CompareAndSwap(0, 1) {
		return nil, fmt.Errorf("a cycle is already running")
	}
	defer r.running.Store(0)

	started := r.now()
	all, err := prompts.Load(r.config.PromptsFile)
	if err != nil {
		return nil, err
	}
	genres := prompts.Genres(all)
	if len(genres) == 0 {
		return nil, ErrNoPrompts
	}
	genre := prompts.SelectGenre(genres, prompts.DayNumber(started))
	pool := prompts.ForGenre(all, genre)

	gen := r.config.GenerationAccounts
	assigned := r.deps.Sampler.Assign(gen, pool, r.config.PromptsPerAccount)

	report := &domain.CycleReport{
		ID:                 uuid.NewString(),
		StartedAt:          started,
		Genre:              genre,
		AccountsUsed:       len(gen),
		ExpectedPerAccount: r.config.TracksPerAccount,
	}
	log := r.logger.With("cycle", report.ID, "genre", genre)
	log.Info("cycle started", "generation_accounts", len(gen), "publish_accounts", len(r.config.PublishAccounts))

	cycleDir := filepath.Join(r.config.WorkDir, report.ID)
	defer os.RemoveAll(cycleDir)

	var collected []domain.AccountResult
	for i, slice := range scheduler.Slices(gen, r.config.Concurrency) {
		if ctx.Err() != nil {
			log.Warn("cycle interrupted", "error", ctx.Err())
			break
		}

		produced, published := r.runSlice(ctx, report, cycleDir, i+1, slice, assigned, log)
		report.TotalGenerated += produced
		collected = append(collected, published...)
	}

	report.Results = results.Merge(collected)
	report.FinishedAt = r.now()
	r.latest.Store(report)

	log.Info("cycle finished",
		"generated", report.TotalGenerated,
		"expected", report.ExpectedTracks(),
		"uploaded", report.TotalUploads(),
		"monetized", report.TotalMonetized(),
		"failures", len(report.Failures),
	)
	r.finish(ctx, report, log)
	return report, nil
}

// runSlice generates with one slice of accounts, publishes the slice output
// and always removes the staged files before returning
func (r *Runner) runSlice(ctx context.Context, report *domain.CycleReport, cycleDir string, n int, slice []domain.Account, assigned map[string][]domain.Prompt, log *slog.Logger) (int, []domain.AccountResult) {
	log = log.With("slice", n)

	area, err := staging.NewArea(filepath.Join(cycleDir, fmt.Sprintf("slice-%02d", n)))
	if err != nil {
		log.Error("failed to prepare staging area", "error", err)
		for _, acct := range slice {
			report.Failures = append(report.Failures, failure(StageGenerate, acct, err))
		}
		return 0, nil
	}
	defer func() {
		if err := area.Cleanup(); err != nil {
			log.Warn("failed to clean staging area", "error", err)
		}
	}()

	generated := scheduler.RunStage(ctx, slice, r.config.Concurrency,
		func(ctx context.Context, acct domain.Account) ([]domain.GeneratedItem, error) {
			dir, err := area.Worker(workerName(acct))
			if err != nil {
				return nil, err
			}
			return r.deps.Generator.Generate(ctx, acct, assigned[acct.Key()], dir)
		},
		scheduler.WithStagger(r.config.LaunchStagger),
		scheduler.WithLogger(r.logger),
	)

	var items []domain.GeneratedItem
	for _, o := range generated {
		items = append(items, o.Value...)
		if o.Err != nil {
			report.Failures = append(report.Failures, failure(StageGenerate, o.Account, o.Err))
		}
	}
	produced := len(items)

	if produced == 0 {
		log.Warn("no tracks generated, skipping publish stage")
		return 0, nil
	}
	if len(r.config.PublishAccounts) == 0 {
		log.Warn("no publish accounts configured")
		return produced, nil
	}

	merged, err := area.Merge(items)
	if err != nil {
		log.Error("failed to merge staged tracks", "error", err)
		return produced, nil
	}

	published := scheduler.RunStage(ctx, r.config.PublishAccounts, r.config.Concurrency,
		func(ctx context.Context, acct domain.Account) (domain.AccountResult, error) {
			return r.deps.Publisher.Publish(ctx, acct, merged)
		},
		scheduler.WithStagger(r.config.LaunchStagger),
		scheduler.WithLogger(r.logger),
	)

	var out []domain.AccountResult
	for _, o := range published {
		res := o.Value
		res.Platform, res.Account = o.Account.Platform, o.Account.Username
		out = append(out, res)
		if o.Err != nil {
			report.Failures = append(report.Failures, failure(StagePublish, o.Account, o.Err))
		}
	}
	return produced, out
}

// finish persists, records and delivers the report; none of these can fail the cycle.
// A stopped cycle still reports what it collected, so ctx cancellation is ignored here.
func (r *Runner) finish(ctx context.Context, report *domain.CycleReport, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if r.deps.History != nil {
		if err := r.deps.History.SaveCycle(ctx, report); err != nil {
			log.Warn("failed to save cycle history", "error", err)
		}
	}
	if r.deps.Recorder != nil {
		r.deps.Recorder.ObserveCycle(report)
	}
	if r.deps.Notifier != nil {
		if err := r.deps.Notifier.Notify(ctx, report); err != nil {
			log.Warn("failed to send report", "error", err)
		}
	}
}

func failure(stage string, acct domain.Account, err error) domain.WorkerFailure {
	return domain.WorkerFailure{Stage: stage, Account: acct.Key(), Error: err.Error()}
}

func workerName(acct domain.Account) string {
	return string(acct.Platform) + "-" + strings.NewReplacer("@", "_at_", ".", "_").Replace(acct.Username)
}
