// Package sessioncache persists login cookies per (platform, account) so
// later runs can skip the interactive login.
package sessioncache

import (
	"context"
	"strings"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
)

// Cache stores session tokens. A missing token is reported as ok=false, not an error.
type Cache interface {
	Load(ctx context.Context, acct domain.Account) (cookies []scrapers.Cookie, ok bool, err error)
	Save(ctx context.Context, acct domain.Account, cookies []scrapers.Cookie) error
	Delete(ctx context.Context, acct domain.Account) error
	Exists(ctx context.Context, acct domain.Account) (bool, error)
}

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "..", "_")

// tokenName turns a username into a storage-safe name
func tokenName(username string) string {
	return unsafeName.Replace(strings.TrimSpace(username))
}
