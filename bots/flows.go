package bots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autotrack/domain"
	"github.com/autotrack/poll"
	"github.com/autotrack/scrapers"
)

// SunoFlow signs in to the music service through a Microsoft account
type SunoFlow struct {
	BaseURL   string
	Timeout   time.Duration
	Interval  time.Duration
	Selectors SunoSelectors
}

func (f *SunoFlow) Platform() domain.Platform { return domain.PlatformSuno }

func (f *SunoFlow) ProbeURL() string { return f.BaseURL + "create" }

// LoggedIn holds when the create page was not redirected to the sign-in page
func (f *SunoFlow) LoggedIn(ctx context.Context, sess scrapers.Session) (bool, error) {
	u, err := sess.URL(ctx)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(u, f.ProbeURL()), nil
}

func (f *SunoFlow) Interactive(ctx context.Context, sess scrapers.Session, acct domain.Account) error {
	sel := f.Selectors
	if err := sess.Open(ctx, f.BaseURL); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.SignUp); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.MicrosoftButton); err != nil {
		return err
	}

	if err := sess.Type(ctx, sel.MSUser, acct.Username); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.MSNext); err != nil {
		return err
	}
	if err := sess.Type(ctx, sel.MSPassword, acct.Password); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.MSNext); err != nil {
		return err
	}

	// "stay signed in?" only shows up for some accounts
	if ok, _ := sess.Exists(ctx, sel.MSAccept); ok {
		_ = sess.Click(ctx, sel.MSAccept)
	}

	if !poll.WaitUntil(ctx, urlHasPrefix(sess, f.BaseURL), f.Timeout, f.Interval) {
		return fmt.Errorf("sign-in did not return to %s within %s", f.BaseURL, f.Timeout)
	}
	return nil
}

// SoundCloudFlow signs in to the audio platform through a Google account
type SoundCloudFlow struct {
	BaseURL   string
	ArtistURL string
	// LoginLink is the OAuth redirect link; BaseURL+"signin" when empty
	LoginLink string
	Timeout   time.Duration
	Interval  time.Duration
	Selectors SoundCloudSelectors
}

func (f *SoundCloudFlow) Platform() domain.Platform { return domain.PlatformSoundCloud }

func (f *SoundCloudFlow) ProbeURL() string { return f.BaseURL + "upload" }

// LoggedIn holds when no sign-in button is on the page
func (f *SoundCloudFlow) LoggedIn(ctx context.Context, sess scrapers.Session) (bool, error) {
	loggedOut, err := sess.Exists(ctx, f.Selectors.LoginButton)
	if err != nil {
		return false, err
	}
	return !loggedOut, nil
}

func (f *SoundCloudFlow) Interactive(ctx context.Context, sess scrapers.Session, acct domain.Account) error {
	sel := f.Selectors
	link := f.LoginLink
	if link == "" {
		link = f.BaseURL + "signin"
	}

	if err := sess.Open(ctx, link); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.GoogleButton); err != nil {
		return err
	}

	if err := sess.Type(ctx, sel.GoogleUser, acct.Username); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.GoogleUserNext); err != nil {
		return err
	}
	if err := sess.Type(ctx, sel.GooglePassword, acct.Password); err != nil {
		return err
	}
	if err := sess.Click(ctx, sel.GooglePassNext); err != nil {
		return err
	}

	overview := f.ArtistURL + "overview"
	if !poll.WaitUntil(ctx, urlHasPrefix(sess, overview), f.Timeout, f.Interval) {
		return fmt.Errorf("sign-in did not reach %s within %s", overview, f.Timeout)
	}

	if ok, _ := sess.Exists(ctx, sel.AcceptCookies); ok {
		_ = sess.Click(ctx, sel.AcceptCookies)
	}
	return nil
}

func urlHasPrefix(sess scrapers.Session, prefix string) poll.Condition {
	return func(ctx context.Context) (bool, error) {
		u, err := sess.URL(ctx)
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(u, prefix), nil
	}
}
