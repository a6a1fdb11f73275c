// Package login signs workers in with a bounded number of attempts,
// reusing cached session cookies when they are still accepted.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
	"github.com/autotrack/sessioncache"
)

// ErrLoginExhausted is returned once every attempt has failed
var ErrLoginExhausted = errors.New("login attempts exhausted")

// Flow is the site-specific part of a login
type Flow interface {
	Platform() domain.Platform
	// ProbeURL is opened after restoring cached cookies
	ProbeURL() string
	// LoggedIn checks a cheap page indicator of an authenticated session
	LoggedIn(ctx context.Context, sess scrapers.Session) (bool, error)
	// Interactive enters the credentials and waits for the success signal
	Interactive(ctx context.Context, sess scrapers.Session, acct domain.Account) error
}

// Outcome describes how a login ended
type Outcome struct {
	Success   bool
	Attempts  int
	FromCache bool
}

// Loginer runs logins against an optional session cache
type Loginer struct {
	cache  sessioncache.Cache
	logger *slog.Logger
}

// New creates a Loginer. cache may be nil to always log in interactively.
func New(cache sessioncache.Cache, logger *slog.Logger) *Loginer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loginer{cache: cache, logger: logger.With("component", "login")}
}

// Login tries at most maxAttempts times. Every attempt first probes the cached
// session, dropping it when rejected, then falls back to the interactive flow.
// On exhaustion the session is closed and ErrLoginExhausted is returned.
func (l *Loginer) Login(ctx context.Context, sess scrapers.Session, flow Flow, acct domain.Account, maxAttempts int) (Outcome, error) {
	log := l.logger.With("platform", acct.Platform, "account", acct.Username)

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++

		if ok, err := l.restore(ctx, sess, flow, acct); err != nil {
			log.Warn("cached session probe failed", "attempt", attempt, "error", err)
		} else if ok {
			log.Info("logged in from cached session")
			return Outcome{Success: true, Attempts: attempt, FromCache: true}, nil
		}

		err := flow.Interactive(ctx, sess, acct)
		if err == nil {
			l.persist(ctx, sess, acct, log)
			log.Info("logged in", "attempt", attempt)
			return Outcome{Success: true, Attempts: attempt}, nil
		}

		lastErr = err
		log.Warn("login attempt failed", "attempt", attempt, "max", maxAttempts, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	sess.Close()
	if lastErr == nil {
		return Outcome{Attempts: attempt}, fmt.Errorf("%s: %w", acct, ErrLoginExhausted)
	}
	return Outcome{Attempts: attempt}, fmt.Errorf("%s: %w after %d attempts: %v", acct, ErrLoginExhausted, attempt, lastErr)
}

// restore applies a cached token and probes it. A rejected or unreadable token is deleted.
func (l *Loginer) restore(ctx context.Context, sess scrapers.Session, flow Flow, acct domain.Account) (bool, error) {
	if l.cache == nil {
		return false, nil
	}

	cookies, ok, err := l.cache.Load(ctx, acct)
	if err != nil {
		if delErr := l.cache.Delete(ctx, acct); delErr != nil {
			return false, errors.Join(err, delErr)
		}
		l.logger.Info("dropped unreadable session", "platform", acct.Platform, "account", acct.Username)
		return false, err
	}
	if !ok {
		return false, nil
	}

	probe := func() (bool, error) {
		if err := sess.SetCookies(ctx, scrapers.Rescope(cookies, flow.Platform().RootDomain())); err != nil {
			return false, err
		}
		if err := sess.Open(ctx, flow.ProbeURL()); err != nil {
			return false, err
		}
		return flow.LoggedIn(ctx, sess)
	}

	loggedIn, probeErr := probe()
	if probeErr == nil && loggedIn {
		return true, nil
	}

	if err := l.cache.Delete(ctx, acct); err != nil {
		return false, err
	}
	l.logger.Info("dropped stale session", "platform", acct.Platform, "account", acct.Username)
	return false, probeErr
}

// persist stores the cookies of a fresh login; failures only cost a future interactive login
func (l *Loginer) persist(ctx context.Context, sess scrapers.Session, acct domain.Account, log *slog.Logger) {
	if l.cache == nil {
		return
	}
	cookies, err := sess.Cookies(ctx)
	if err != nil {
		log.Warn("failed to read session cookies", "error", err)
		return
	}
	if err := l.cache.Save(ctx, acct, cookies); err != nil {
		log.Warn("failed to save session", "error", err)
	}
}
