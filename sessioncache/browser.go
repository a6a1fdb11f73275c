package sessioncache

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
)

// SupportedBrowsers lists the browser names accepted by ImportFromBrowser
var SupportedBrowsers = []string{"chrome", "chromium", "edge", "firefox"}

// ImportOptions selects which local browser cookies seed a token
type ImportOptions struct {
	Browser string
	// Domain defaults to the platform root domain
	Domain string
}

// ImportFromBrowser copies the cookies of a locally logged-in browser into
// the cache, so the first run can skip the interactive login.
func ImportFromBrowser(ctx context.Context, cache Cache, acct domain.Account, opts ImportOptions) (int, error) {
	domainSuffix := opts.Domain
	if domainSuffix == "" {
		domainSuffix = acct.Platform.RootDomain()
	}
	domainSuffix = strings.TrimPrefix(domainSuffix, ".")

	found, err := kooky.ReadCookies(ctx, kooky.DomainHasSuffix(domainSuffix))
	if err != nil && len(found) == 0 {
		return 0, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	cookies := fromKooky(found, opts.Browser, time.Now())
	if len(cookies) == 0 {
		return 0, fmt.Errorf("no %s cookies found for %s", opts.Browser, domainSuffix)
	}

	if err := cache.Save(ctx, acct, cookies); err != nil {
		return 0, err
	}
	return len(cookies), nil
}

// fromKooky converts unexpired browser cookies, keeping only those of browser when set
func fromKooky(found []*kooky.Cookie, browser string, now time.Time) []scrapers.Cookie {
	browser = strings.ToLower(browser)

	var out []scrapers.Cookie
	for _, c := range found {
		if c == nil {
			continue
		}
		if browser != "" && c.Browser != nil && !strings.Contains(strings.ToLower(c.Browser.Browser()), browser) {
			continue
		}

		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}

		var expires float64
		if !c.Expires.IsZero() && c.Expires.Unix() > 0 {
			expires = float64(c.Expires.Unix())
		}

		out = append(out, scrapers.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
			SameSite: sameSite(c.SameSite),
		})
	}
	return out
}

func sameSite(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	}
	return ""
}
