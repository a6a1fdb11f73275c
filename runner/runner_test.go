package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
	"github.com/autotrack/prompts"
	"github.com/autotrack/staging"
)

const promptFile = `### Ambient
1. drifting clouds
2. glacier hum
### Jazz
1. late night trio
2. brushed snare ballad
3. smoky sax
`

type fakeGenerator struct {
	mu        sync.Mutex
	perWorker int
	fail      map[string]bool
	dirs      []string
	prompts   map[string][]domain.Prompt
	// onCall runs before the worker produces anything
	onCall func(dir *staging.Dir)
}

func (g *fakeGenerator) Generate(ctx context.Context, acct domain.Account, ps []domain.Prompt, dir *staging.Dir) ([]domain.GeneratedItem, error) {
	g.mu.Lock()
	g.dirs = append(g.dirs, dir.Path())
	if g.prompts == nil {
		g.prompts = map[string][]domain.Prompt{}
	}
	g.prompts[acct.Username] = ps
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall(dir)
	}
	if g.fail[acct.Username] {
		return nil, errors.New("login exhausted")
	}

	var items []domain.GeneratedItem
	for i := 0; i < g.perWorker; i++ {
		title := fmt.Sprintf("Track %d", i+1)
		path := filepath.Join(dir.Path(), dir.UniqueName(title, ".mp3"))
		if err := os.WriteFile(path, []byte(acct.Username), 0o644); err != nil {
			return items, err
		}
		items = append(items, domain.GeneratedItem{Account: acct.Username, Title: title, Genre: ps[0].Genre, MediaPath: path})
	}
	return items, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	calls map[string]int
	seen  []int
}

func (p *fakePublisher) Publish(ctx context.Context, acct domain.Account, items []domain.GeneratedItem) (domain.AccountResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[acct.Username]++
	p.seen = append(p.seen, len(items))
	for _, it := range items {
		if _, err := os.Stat(it.MediaPath); err != nil {
			return domain.AccountResult{}, err
		}
	}
	return domain.AccountResult{Platform: acct.Platform, Account: acct.Username, UploadCount: len(items), MonetizationCount: 1}, nil
}

type captureNotifier struct {
	reports []*domain.CycleReport
	ctxErrs []error
	err     error
}

func (n *captureNotifier) Notify(ctx context.Context, r *domain.CycleReport) error {
	n.reports = append(n.reports, r)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

type captureHistory struct {
	saved  int
	ctxErr error
	err    error
}

func (h *captureHistory) SaveCycle(ctx context.Context, r *domain.CycleReport) error {
	h.saved++
	h.ctxErr = ctx.Err()
	return h.err
}

func accounts(p domain.Platform, n int) []domain.Account {
	out := make([]domain.Account, n)
	for i := range out {
		out[i] = domain.Account{Platform: p, Username: fmt.Sprintf("%s%d", p, i), Password: "pw"}
	}
	return out
}

func newTestRunner(t *testing.T, gen Generator, pub Publisher, n Notifier, genCount, pubCount int) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "prompts.txt")
	require.NoError(t, os.WriteFile(file, []byte(promptFile), 0o644))
	work := filepath.Join(dir, "work")

	r := New(Deps{
		Generator: gen,
		Publisher: pub,
		Notifier:  n,
		Sampler:   prompts.NewSampler(rand.NewSource(1)),
	}, Config{
		Concurrency:        6,
		PromptsPerAccount:  2,
		TracksPerAccount:   10,
		WorkDir:            work,
		PromptsFile:        file,
		GenerationAccounts: accounts(domain.PlatformSuno, genCount),
		PublishAccounts:    accounts(domain.PlatformSoundCloud, pubCount),
	}, nil)
	// 1970-01-02 is day 2: the second sorted genre
	r.now = func() time.Time { return time.Date(1970, 1, 2, 9, 0, 0, 0, time.Local) }
	return r, work
}

func TestRunCycle_SixAccountsOneSlice(t *testing.T) {
	gen := &fakeGenerator{perWorker: 1}
	pub := &fakePublisher{}
	notifier := &captureNotifier{}
	r, work := newTestRunner(t, gen, pub, notifier, 6, 6)

	report, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Jazz", report.Genre)
	assert.Equal(t, 6, report.TotalGenerated)
	assert.Equal(t, 60, report.ExpectedTracks())
	require.Len(t, report.Results, 6)
	for _, res := range report.Results {
		assert.Equal(t, 6, res.UploadCount)
		assert.Equal(t, 1, res.MonetizationCount)
	}
	assert.Equal(t, 36, report.TotalUploads())
	assert.Empty(t, report.Failures)

	slices := map[string]bool{}
	for _, d := range gen.dirs {
		slices[filepath.Base(filepath.Dir(d))] = true
	}
	assert.Equal(t, map[string]bool{"slice-01": true}, slices)

	for user, ps := range gen.prompts {
		assert.Len(t, ps, 2, user)
		for _, p := range ps {
			assert.Equal(t, "Jazz", p.Genre)
		}
	}

	require.Len(t, notifier.reports, 1)
	assert.Same(t, report, r.Latest())
	assert.NoDirExists(t, filepath.Join(work, report.ID))
}

func TestRunCycle_EightAccountsTwoSlices(t *testing.T) {
	gen := &fakeGenerator{perWorker: 1}
	var cleanedBeforeSecond bool
	var firstSliceDir string
	var once sync.Once
	var mu sync.Mutex
	gen.onCall = func(dir *staging.Dir) {
		mu.Lock()
		defer mu.Unlock()
		area := filepath.Dir(dir.Path())
		if filepath.Base(area) == "slice-01" {
			firstSliceDir = area
			return
		}
		once.Do(func() {
			_, err := os.Stat(firstSliceDir)
			cleanedBeforeSecond = os.IsNotExist(err)
		})
	}
	pub := &fakePublisher{}
	r, _ := newTestRunner(t, gen, pub, nil, 8, 8)

	report, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, cleanedBeforeSecond, "slice 1 files are removed before slice 2 starts")
	assert.Equal(t, 8, report.TotalGenerated)
	require.Len(t, report.Results, 8)
	for _, res := range report.Results {
		assert.Equal(t, 8, res.UploadCount, "6 tracks from slice 1 plus 2 from slice 2")
		assert.Equal(t, 2, res.MonetizationCount)
	}
	for _, n := range pub.calls {
		assert.Equal(t, 2, n)
	}
}

func TestRunCycle_EmptyGenerationSkipsPublish(t *testing.T) {
	gen := &fakeGenerator{perWorker: 0}
	pub := &fakePublisher{}
	r, _ := newTestRunner(t, gen, pub, nil, 8, 3)

	report, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Len(t, gen.dirs, 8, "both slices still ran")
	assert.Empty(t, pub.calls)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.TotalGenerated)
}

func TestRunCycle_FailuresAreReportedNotFatal(t *testing.T) {
	gen := &fakeGenerator{perWorker: 2, fail: map[string]bool{"suno1": true}}
	pub := &fakePublisher{}
	notifier := &captureNotifier{err: errors.New("telegram down")}
	history := &captureHistory{err: errors.New("disk full")}
	r, _ := newTestRunner(t, gen, pub, notifier, 3, 1)
	r.deps.History = history

	report, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalGenerated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageGenerate, report.Failures[0].Stage)
	assert.Equal(t, "suno/suno1", report.Failures[0].Account)
	assert.Equal(t, 1, history.saved)
	assert.Len(t, notifier.reports, 1)
	assert.Equal(t, []int{4}, pub.seen)
}

func TestRunCycle_StoppedCycleStillReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &fakeGenerator{perWorker: 2}
	var once sync.Once
	gen.onCall = func(*staging.Dir) { once.Do(cancel) }
	notifier := &captureNotifier{}
	history := &captureHistory{}
	r, _ := newTestRunner(t, gen, &fakePublisher{}, notifier, 8, 1)
	r.deps.History = history

	report, err := r.RunCycle(ctx)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Len(t, gen.dirs, 6, "the second slice never starts")
	assert.Equal(t, 12, report.TotalGenerated)

	require.Len(t, notifier.reports, 1)
	assert.Same(t, report, notifier.reports[0])
	assert.NoError(t, notifier.ctxErrs[0], "report is delivered on a live context")
	assert.Equal(t, 1, history.saved)
	assert.NoError(t, history.ctxErr)
}

func TestRunCycle_NoPrompts(t *testing.T) {
	r, _ := newTestRunner(t, &fakeGenerator{}, &fakePublisher{}, nil, 1, 1)
	require.NoError(t, os.WriteFile(r.config.PromptsFile, []byte("nothing here"), 0o644))

	_, err := r.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrNoPrompts)
	assert.Nil(t, r.Latest())
}

func TestWorkerName(t *testing.T) {
	acct := domain.Account{Platform: domain.PlatformSuno, Username: "jo.doe@mail.com"}
	assert.Equal(t, "suno-jo_doe_at_mail_com", workerName(acct))
}
