package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autotrack/config"
	"github.com/autotrack/domain"
	"github.com/autotrack/sessioncache"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage cached login sessions",
	}
	cmd.AddCommand(newSessionImportCommand(a), newSessionClearCommand(a))
	return cmd
}

func newSessionImportCommand(a *app) *cobra.Command {
	var platform, account, browser, cookieDomain string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the cookies of a local browser profile into the session cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := lookupAccount(a.settings, platform, account)
			if err != nil {
				return err
			}

			cache, closeCache, err := openSessionCache(a.settings)
			if err != nil {
				return err
			}
			defer closeCache()

			n, err := sessioncache.ImportFromBrowser(cmd.Context(), cache, acct, sessioncache.ImportOptions{
				Browser: browser,
				Domain:  cookieDomain,
			})
			if err != nil {
				return err
			}
			a.logger.Info("session imported", "account", acct.Key(), "browser", browser, "cookies", n)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&platform, "platform", "", "suno or soundcloud")
	f.StringVar(&account, "account", "", "account username")
	f.StringVar(&browser, "browser", "chrome", "browser to read: "+strings.Join(sessioncache.SupportedBrowsers, ", "))
	f.StringVar(&cookieDomain, "domain", "", "cookie domain (default: the platform domain)")
	cmd.MarkFlagRequired("platform")
	cmd.MarkFlagRequired("account")
	return cmd
}

func newSessionClearCommand(a *app) *cobra.Command {
	var platform, account string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached session of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := lookupAccount(a.settings, platform, account)
			if err != nil {
				return err
			}

			cache, closeCache, err := openSessionCache(a.settings)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := cache.Delete(cmd.Context(), acct); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			a.logger.Info("session cleared", "account", acct.Key())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&platform, "platform", "", "suno or soundcloud")
	f.StringVar(&account, "account", "", "account username")
	cmd.MarkFlagRequired("platform")
	cmd.MarkFlagRequired("account")
	return cmd
}

// lookupAccount finds a configured account. Unknown usernames are allowed,
// a session only needs the identity.
func lookupAccount(s *config.Settings, platform, username string) (domain.Account, error) {
	var pool []domain.Account
	switch p := domain.Platform(strings.ToLower(platform)); p {
	case domain.PlatformSuno:
		pool = s.Suno.Accounts
	case domain.PlatformSoundCloud:
		pool = s.SoundCloud.Accounts
	default:
		return domain.Account{}, fmt.Errorf("unknown platform %q", platform)
	}

	want := domain.Account{Platform: domain.Platform(strings.ToLower(platform)), Username: strings.TrimSpace(username)}
	for _, acct := range pool {
		if acct.Same(want) {
			return acct, nil
		}
	}
	return want, nil
}
