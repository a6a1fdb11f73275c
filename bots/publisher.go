package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autotrack/domain"
	"github.com/autotrack/login"
	"github.com/autotrack/poll"
	"github.com/autotrack/scrapers"
	"github.com/autotrack/sessioncache"
)

// PublisherConfig tunes the publish worker
type PublisherConfig struct {
	BaseURL              string
	ArtistURL            string
	LoginLink            string
	MaxRetry             int
	Timeout              time.Duration
	PollInterval         time.Duration
	SyncWait             time.Duration
	UploadSettle         time.Duration
	PageSettle           time.Duration
	MaxMonetizationPages int
	MonetizationRetries  int
	Selectors            SoundCloudSelectors
}

// Publisher uploads staged tracks to the audio platform and monetizes them
type Publisher struct {
	factory scrapers.Factory
	login   *login.Loginer
	flow    login.Flow
	cache   sessioncache.Cache
	config  PublisherConfig
	scripts publishScripts
	logger  *slog.Logger
}

// NewPublisher wires a publish worker. cache may be nil.
func NewPublisher(factory scrapers.Factory, loginer *login.Loginer, cache sessioncache.Cache, config PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PageSettle == 0 {
		config.PageSettle = 7 * time.Second
	}
	if config.MonetizationRetries <= 0 {
		config.MonetizationRetries = 3
	}
	return &Publisher{
		factory: factory,
		login:   loginer,
		flow: &SoundCloudFlow{
			BaseURL:   config.BaseURL,
			ArtistURL: config.ArtistURL,
			LoginLink: config.LoginLink,
			Timeout:   config.Timeout,
			Interval:  config.PollInterval,
			Selectors: config.Selectors,
		},
		cache:   cache,
		config:  config,
		scripts: newPublishScripts(config.Selectors),
		logger:  logger.With("component", "publisher"),
	}
}

// Publish uploads items with acct, synchronises and monetizes the catalogue.
// Without items it returns a zero result and never opens a browser.
func (p *Publisher) Publish(ctx context.Context, acct domain.Account, items []domain.GeneratedItem) (domain.AccountResult, error) {
	result := domain.AccountResult{Platform: acct.Platform, Account: acct.Username}
	if len(items) == 0 {
		return result, nil
	}

	log := p.logger.With("platform", acct.Platform, "account", acct.Username)
	err := scrapers.WithSession(ctx, p.factory, func(sess scrapers.Session) error {
		if _, err := p.login.Login(ctx, sess, p.flow, acct, p.config.MaxRetry); err != nil {
			return err
		}

		uploaded, err := p.upload(ctx, sess, acct, items, log)
		if err != nil {
			return err
		}
		result.UploadCount = uploaded

		if !p.sync(ctx, sess, log) {
			log.Warn("synchronization failed, skipping monetization")
			return nil
		}

		monetized, err := p.monetize(ctx, sess, log)
		result.MonetizationCount = monetized
		if errors.Is(err, ErrAccessDenied) {
			log.Info("account is not allowed to monetize")
			return nil
		}
		return err
	})
	return result, err
}

func (p *Publisher) upload(ctx context.Context, sess scrapers.Session, acct domain.Account, items []domain.GeneratedItem, log *slog.Logger) (int, error) {
	sel := p.config.Selectors

	if err := sess.Open(ctx, p.config.BaseURL+"upload"); err != nil {
		return 0, err
	}
	_ = sess.Sleep(ctx, 2*time.Second)
	_ = sess.Eval(ctx, dismissPopupJS, nil)

	p.saveSessionOnce(ctx, sess, acct, log)

	if err := sess.Eval(ctx, p.scripts.noPlaylist, nil); err != nil {
		log.Warn("failed to disable playlist creation", "error", err)
	}

	files := make([]string, len(items))
	for i, item := range items {
		files[i] = item.MediaPath
	}
	if err := sess.SetFiles(ctx, sel.ChooseFiles, files); err != nil {
		return 0, fmt.Errorf("failed to select upload files: %w", err)
	}

	processing := p.config.Timeout * time.Duration(len(items))
	if !poll.WaitUntil(ctx, p.uploadsSettled(sess), processing, p.config.PollInterval) {
		log.Warn("uploads still processing", "waited", processing)
	}

	var titles []string
	if err := sess.Eval(ctx, p.scripts.entryTitles, &titles); err != nil {
		return 0, fmt.Errorf("failed to read upload entries: %w", err)
	}

	for i, title := range titles {
		item, ok := matchItem(items, title)
		if !ok {
			continue
		}
		if err := p.fillEntry(ctx, sess, i, item); err != nil {
			log.Warn("failed to fill upload entry", "title", title, "error", err)
		}
	}

	if err := sess.Eval(ctx, p.scripts.applyGenre(items[0].Genre), nil); err != nil {
		log.Warn("failed to apply genre", "genre", items[0].Genre, "error", err)
	}

	log.Info("tracks uploaded", "count", len(titles))
	_ = sess.Sleep(ctx, p.config.UploadSettle)
	return len(titles), nil
}

// saveSessionOnce stores cookies from the upload page unless a token is already cached
func (p *Publisher) saveSessionOnce(ctx context.Context, sess scrapers.Session, acct domain.Account, log *slog.Logger) {
	if p.cache == nil {
		return
	}
	if exists, err := p.cache.Exists(ctx, acct); err != nil || exists {
		return
	}
	cookies, err := sess.Cookies(ctx)
	if err != nil {
		log.Warn("failed to read cookies", "error", err)
		return
	}
	if err := p.cache.Save(ctx, acct, cookies); err != nil {
		log.Warn("failed to save session", "error", err)
	}
}

func (p *Publisher) uploadsSettled(sess scrapers.Session) poll.Condition {
	return func(ctx context.Context) (bool, error) {
		status, err := sess.Text(ctx, p.config.Selectors.UploadStatus)
		if err != nil {
			return false, err
		}
		status = strings.ToLower(status)
		return !strings.Contains(status, "processing") && !strings.Contains(status, "uploading"), nil
	}
}

func (p *Publisher) fillEntry(ctx context.Context, sess scrapers.Session, i int, item domain.GeneratedItem) error {
	var tagged bool
	if err := sess.Eval(ctx, p.scripts.tagEntry(i), &tagged); err != nil {
		return err
	}
	if !tagged {
		return fmt.Errorf("entry %d has no image or tag input", i)
	}

	if item.ImagePath != "" {
		if err := sess.SetFiles(ctx, attrSelector(entryImageAttr, i), []string{item.ImagePath}); err != nil {
			return err
		}
	}
	if tags := item.TagString(); tags != "" {
		if err := sess.Type(ctx, attrSelector(entryTagsAttr, i), tags); err != nil {
			return err
		}
	}
	return nil
}

// matchItem finds the item whose title equals title, ignoring case
func matchItem(items []domain.GeneratedItem, title string) (domain.GeneratedItem, bool) {
	title = strings.TrimSpace(title)
	for _, item := range items {
		if strings.EqualFold(item.Title, title) {
			return item, true
		}
	}
	return domain.GeneratedItem{}, false
}

// sync triggers the catalogue synchronisation and waits for it out of band
func (p *Publisher) sync(ctx context.Context, sess scrapers.Session, log *slog.Logger) bool {
	if err := sess.Open(ctx, p.config.ArtistURL+"monetization"); err != nil {
		log.Warn("failed to open monetization page", "error", err)
		return false
	}

	found := poll.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
		var ok bool
		err := sess.Eval(ctx, p.scripts.hasSync, &ok)
		return ok, err
	}, p.config.Timeout, p.config.PollInterval)
	if !found {
		return false
	}

	var clicked bool
	if err := sess.Eval(ctx, p.scripts.clickSync, &clicked); err != nil || !clicked {
		return false
	}

	log.Info("waiting for synchronization", "wait", p.config.SyncWait)
	return sess.Sleep(ctx, p.config.SyncWait) == nil
}

// monetize walks at most MaxMonetizationPages pages and submits the form of
// every monetizable track. It returns the number of submitted forms.
func (p *Publisher) monetize(ctx context.Context, sess scrapers.Session, log *slog.Logger) (int, error) {
	if err := sess.Open(ctx, p.config.ArtistURL+"monetization"); err != nil {
		return 0, err
	}
	if p.accessDenied(ctx, sess) {
		return 0, ErrAccessDenied
	}
	_ = sess.Sleep(ctx, 2*time.Second)

	count := 0
	for page := 1; page <= p.config.MaxMonetizationPages; page++ {
		var found int
		if err := sess.Eval(ctx, tagMonetizeButtonsJS, &found); err != nil {
			return count, fmt.Errorf("failed to list monetizable tracks: %w", err)
		}
		log.Info("monetizable tracks", "page", page, "found", found)

		for i := 0; i < found; i++ {
			if p.fillForm(ctx, sess, i, log) {
				count++
			}
			_ = sess.Sleep(ctx, 2*time.Second)
		}

		if page == p.config.MaxMonetizationPages {
			break
		}
		var next bool
		if err := sess.Eval(ctx, nextPageJS, &next); err != nil || !next {
			break
		}
		poll.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
			var ready bool
			err := sess.Eval(ctx, documentReadyJS, &ready)
			return ready, err
		}, p.config.Timeout, p.config.PollInterval)
		_ = sess.Sleep(ctx, p.config.PageSettle)
	}

	log.Info("tracks monetized", "count", count)
	return count, nil
}

func (p *Publisher) accessDenied(ctx context.Context, sess scrapers.Session) bool {
	sel := p.config.Selectors.AccessDenied
	if ok, err := sess.Exists(ctx, sel); err != nil || !ok {
		return false
	}
	text, err := sess.Text(ctx, sel)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), "don't have access")
}

// fillForm opens the form of the i-th monetizable track and submits it,
// retrying when the page script fails
func (p *Publisher) fillForm(ctx context.Context, sess scrapers.Session, i int, log *slog.Logger) bool {
	formSel := p.config.Selectors.MonetizationForm
	for attempt := 1; attempt <= p.config.MonetizationRetries; attempt++ {
		var clicked bool
		if err := sess.Eval(ctx, clickMonetizeJS(i), &clicked); err != nil || !clicked {
			log.Warn("monetize button vanished", "track", i+1)
			return false
		}

		opened := poll.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
			return sess.Exists(ctx, formSel)
		}, p.config.Timeout, p.config.PollInterval)
		if !opened {
			continue
		}
		_ = sess.Sleep(ctx, time.Second)

		if err := sess.Eval(ctx, p.scripts.fillForm, nil); err != nil {
			log.Debug("monetization form failed", "track", i+1, "attempt", attempt, "error", err)
			continue
		}
		return true
	}
	log.Warn("monetization retries exceeded", "track", i+1)
	return false
}
