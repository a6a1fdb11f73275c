package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func report(id string, day int, results ...domain.AccountResult) *domain.CycleReport {
	start := time.Date(2024, 5, day, 6, 0, 0, 0, time.UTC)
	return &domain.CycleReport{
		ID:                 id,
		StartedAt:          start,
		FinishedAt:         start.Add(2 * time.Hour),
		Genre:              "Lo-fi",
		TotalGenerated:     12,
		AccountsUsed:       2,
		ExpectedPerAccount: 10,
		Results:            results,
		Failures:           []domain.WorkerFailure{{Stage: "generate", Account: "suno/x", Error: "boom"}},
	}
}

func result(account string, uploads, monetized int) domain.AccountResult {
	return domain.AccountResult{Platform: domain.PlatformSoundCloud, Account: account, UploadCount: uploads, MonetizationCount: monetized}
}

func TestStore_SaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCycle(ctx, report("a", 1, result("one", 5, 4))))
	require.NoError(t, s.SaveCycle(ctx, report("b", 2, result("one", 3, 3), result("two", 6, 1))))
	require.NoError(t, s.SaveCycle(ctx, report("c", 3)))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "c", recent[0].ID)
	assert.Empty(t, recent[0].Results)
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, []domain.AccountResult{result("one", 3, 3), result("two", 6, 1)}, recent[1].Results)
	assert.Equal(t, 1, recent[1].FailureCount)
	assert.Equal(t, 20, recent[1].ExpectedTracks())
	assert.Equal(t, time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC).Unix(), recent[1].StartedAt.Unix())
}

func TestStore_SaveReplacesSameCycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCycle(ctx, report("a", 1, result("one", 5, 4), result("two", 1, 1))))
	require.NoError(t, s.SaveCycle(ctx, report("a", 1, result("one", 7, 7))))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, []domain.AccountResult{result("one", 7, 7)}, recent[0].Results)
}

func TestStore_AccountTotals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCycle(ctx, report("a", 1, result("one", 100, 100))))
	require.NoError(t, s.SaveCycle(ctx, report("b", 2, result("one", 3, 2), result("two", 6, 1))))
	require.NoError(t, s.SaveCycle(ctx, report("c", 3, result("two", 4, 4), result("one", 1, 0))))

	totals, err := s.AccountTotals(ctx, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountResult{result("one", 4, 2), result("two", 10, 5)}, totals)
}

func TestStore_EmptyHistory(t *testing.T) {
	s := openTestStore(t)

	recent, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	totals, err := s.AccountTotals(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveCycle(context.Background(), report("a", 1, result("one", 1, 1))))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	recent, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
