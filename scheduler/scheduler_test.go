package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
)

func pool(n int) []domain.Account {
	out := make([]domain.Account, n)
	for i := range out {
		out[i] = domain.Account{Platform: domain.PlatformSuno, Username: fmt.Sprintf("u%02d", i)}
	}
	return out
}

func TestSlices(t *testing.T) {
	for k := 0; k <= 20; k++ {
		for c := 1; c <= 8; c++ {
			accounts := pool(k)
			slices := Slices(accounts, c)

			assert.Len(t, slices, (k+c-1)/c, "K=%d C=%d", k, c)

			var flat []domain.Account
			for _, s := range slices {
				assert.LessOrEqual(t, len(s), c)
				assert.NotEmpty(t, s)
				flat = append(flat, s...)
			}
			if k == 0 {
				assert.Empty(t, flat)
			} else {
				assert.Equal(t, accounts, flat)
			}
		}
	}
}

func TestRunStage_CoversEveryAccountOnce(t *testing.T) {
	accounts := pool(13)
	outcomes := RunStage(context.Background(), accounts, 4, func(ctx context.Context, a domain.Account) (string, error) {
		return a.Username, nil
	})

	require.Len(t, outcomes, 13)
	seen := map[string]bool{}
	for i, o := range outcomes {
		assert.Equal(t, accounts[i], o.Account, "order follows the pool")
		assert.Equal(t, o.Account.Username, o.Value)
		assert.Equal(t, i/4+1, o.Slice)
		assert.False(t, seen[o.Value])
		seen[o.Value] = true
	}
}

func TestRunStage_BoundsConcurrencyWithBarrier(t *testing.T) {
	const c = 3
	var (
		running, peak int32
		mu            sync.Mutex
		finished      = map[int]int{}
		violations    int
	)

	RunStage(context.Background(), pool(8), c, func(ctx context.Context, a domain.Account) (int, error) {
		now := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return 0, nil
	}, BeforeSlice(func(slice int) {
		mu.Lock()
		defer mu.Unlock()
		if atomic.LoadInt32(&running) != 0 {
			violations++
		}
		finished[slice]++
	}))

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(c))
	assert.Equal(t, 0, violations, "a slice started while workers were still running")
	assert.Len(t, finished, 3)
}

func TestRunStage_FailuresAreIsolated(t *testing.T) {
	boom := errors.New("boom")
	outcomes := RunStage(context.Background(), pool(4), 4, func(ctx context.Context, a domain.Account) (int, error) {
		switch a.Username {
		case "u01":
			return 0, boom
		case "u02":
			panic("selector changed")
		}
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	})

	require.Len(t, outcomes, 4)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.ErrorContains(t, outcomes[2].Err, "selector changed")
	assert.NoError(t, outcomes[3].Err)
	assert.Equal(t, 1, outcomes[3].Value)
}

func TestRunStage_Stagger(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time

	RunStage(context.Background(), pool(3), 3, func(ctx context.Context, a domain.Account) (int, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return 0, nil
	}, WithStagger(20*time.Millisecond))

	require.Len(t, starts, 3)
	first, last := starts[0], starts[0]
	for _, s := range starts {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 35*time.Millisecond)
}

func TestRunStage_Empty(t *testing.T) {
	called := false
	out := RunStage(context.Background(), nil, 6, func(ctx context.Context, a domain.Account) (int, error) {
		called = true
		return 0, nil
	})
	assert.Empty(t, out)
	assert.False(t, called)
}
