// Package results merges per-account counters collected from workers.
package results

import (
	"sort"

	"github.com/autotrack/domain"
)

// Merge groups results by account identity and sums their counters.
// The output holds one record per account, sorted by platform then username,
// and does not depend on the order of the input.
func Merge(in ...[]domain.AccountResult) []domain.AccountResult {
	totals := make(map[string]*domain.AccountResult)
	for _, batch := range in {
		for _, r := range batch {
			key := r.Key()
			t, ok := totals[key]
			if !ok {
				t = &domain.AccountResult{Platform: r.Platform, Account: r.Account}
				totals[key] = t
			}
			t.UploadCount += r.UploadCount
			t.MonetizationCount += r.MonetizationCount
		}
	}

	out := make([]domain.AccountResult, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Account < out[j].Account
	})
	return out
}
