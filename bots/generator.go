package bots

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/autotrack/domain"
	"github.com/autotrack/login"
	"github.com/autotrack/poll"
	"github.com/autotrack/scrapers"
	"github.com/autotrack/staging"
)

// GeneratorConfig tunes the generation worker
type GeneratorConfig struct {
	BaseURL             string
	CDNURL              string
	MaxRetry            int
	Timeout             time.Duration
	MaxGenerationTime   time.Duration
	PollInterval        time.Duration
	TracksPerGeneration int
	MinCredits          int
	Selectors           SunoSelectors
}

// Generator creates tracks on the music service and downloads them
type Generator struct {
	factory scrapers.Factory
	login   *login.Loginer
	flow    login.Flow
	fetcher *Fetcher
	config  GeneratorConfig
	logger  *slog.Logger
}

// NewGenerator wires a generation worker
func NewGenerator(factory scrapers.Factory, loginer *login.Loginer, fetcher *Fetcher, config GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TracksPerGeneration <= 0 {
		config.TracksPerGeneration = 2
	}
	return &Generator{
		factory: factory,
		login:   loginer,
		flow: &SunoFlow{
			BaseURL:   config.BaseURL,
			Timeout:   config.Timeout,
			Interval:  config.PollInterval,
			Selectors: config.Selectors,
		},
		fetcher: fetcher,
		config:  config,
		logger:  logger.With("component", "generator"),
	}
}

// Generate runs every prompt on one account and stages the resulting tracks in dir.
// Items produced before a failure are returned together with the error.
func (g *Generator) Generate(ctx context.Context, acct domain.Account, prompts []domain.Prompt, dir *staging.Dir) ([]domain.GeneratedItem, error) {
	log := g.logger.With("platform", acct.Platform, "account", acct.Username)

	var items []domain.GeneratedItem
	err := scrapers.WithSession(ctx, g.factory, func(sess scrapers.Session) error {
		if err := sess.SetWindowSize(ctx, 1920, 1080); err != nil {
			return err
		}
		if _, err := g.login.Login(ctx, sess, g.flow, acct, g.config.MaxRetry); err != nil {
			return err
		}

		createURL := g.config.BaseURL + "create"
		if err := sess.Open(ctx, createURL); err != nil {
			return err
		}

		for i, p := range prompts {
			credits, err := g.credits(ctx, sess)
			if err != nil {
				// the counter sometimes renders late; one reload before giving up
				if err := sess.Open(ctx, createURL); err != nil {
					return err
				}
				if credits, err = g.credits(ctx, sess); err != nil {
					return err
				}
			}
			if credits < g.config.MinCredits {
				log.Warn("not enough credits", "credits", credits, "min", g.config.MinCredits)
				return fmt.Errorf("%w: %d left", ErrNotEnoughCredits, credits)
			}

			produced := g.generate(ctx, sess, acct, p, dir, log.With("prompt", i+1))
			items = append(items, produced...)
		}
		return nil
	})

	log.Info("generation finished", "tracks", len(items), "prompts", len(prompts))
	return items, err
}

// generate submits one prompt and downloads every clip that becomes ready in time
func (g *Generator) generate(ctx context.Context, sess scrapers.Session, acct domain.Account, p domain.Prompt, dir *staging.Dir, log *slog.Logger) []domain.GeneratedItem {
	before, err := g.clips(ctx, sess)
	if err != nil {
		log.Warn("failed to read clip list", "error", err)
		return nil
	}
	known := make(map[string]bool, len(before))
	for _, c := range before {
		known[c.ID] = true
	}

	if err := sess.Type(ctx, g.config.Selectors.PromptInput, p.Text); err != nil {
		log.Warn("failed to enter prompt", "error", err)
		return nil
	}
	if err := sess.Click(ctx, g.config.Selectors.CreateButton); err != nil {
		log.Warn("failed to submit prompt", "error", err)
		return nil
	}

	var fresh []Clip
	poll.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
		clips, err := g.clips(ctx, sess)
		if err != nil {
			return false, err
		}
		fresh = newClips(clips, known)
		return len(fresh) >= g.config.TracksPerGeneration, nil
	}, g.config.Timeout, g.config.PollInterval)

	if len(fresh) == 0 {
		log.Warn("no tracks generated")
		return nil
	}
	if len(fresh) > g.config.TracksPerGeneration {
		fresh = fresh[:g.config.TracksPerGeneration]
	}

	var items []domain.GeneratedItem
	for _, clip := range fresh {
		ready, ok := g.waitReady(ctx, sess, clip.ID)
		if !ok {
			log.Warn("track not ready in time, skipping", "clip", clip.ID, "limit", g.config.MaxGenerationTime)
			continue
		}

		item, err := g.download(ctx, acct, p, ready, dir)
		if err != nil {
			log.Warn("failed to download track", "clip", clip.ID, "error", err)
			continue
		}
		log.Info("track downloaded", "title", item.Title)
		items = append(items, item)
	}
	return items
}

func (g *Generator) waitReady(ctx context.Context, sess scrapers.Session, id string) (Clip, bool) {
	var ready Clip
	ok := poll.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
		clips, err := g.clips(ctx, sess)
		if err != nil {
			return false, err
		}
		for _, c := range clips {
			if c.ID == id && c.Ready {
				ready = c
				return true, nil
			}
		}
		return false, nil
	}, g.config.MaxGenerationTime, g.config.PollInterval)
	return ready, ok
}

func (g *Generator) download(ctx context.Context, acct domain.Account, p domain.Prompt, clip Clip, dir *staging.Dir) (domain.GeneratedItem, error) {
	cdn := strings.TrimSuffix(g.config.CDNURL, "/")

	name := dir.UniqueName(clip.Title, ".mp3")
	mediaPath := filepath.Join(dir.Path(), name)
	if err := g.fetcher.Download(ctx, fmt.Sprintf("%s/%s.mp3", cdn, clip.ID), mediaPath); err != nil {
		return domain.GeneratedItem{}, err
	}

	title := strings.TrimSuffix(name, ".mp3")
	imagePath := filepath.Join(dir.ImagesDir(), title+".png")
	if err := g.fetcher.Download(ctx, fmt.Sprintf("%s/image_%s.png", cdn, clip.ID), imagePath); err != nil {
		g.logger.Warn("failed to download cover", "clip", clip.ID, "error", err)
		imagePath = ""
	}

	return domain.GeneratedItem{
		Account:   acct.Username,
		Title:     title,
		Genre:     p.Genre,
		Tags:      clip.Tags,
		MediaPath: mediaPath,
		ImagePath: imagePath,
	}, nil
}

func (g *Generator) clips(ctx context.Context, sess scrapers.Session) ([]Clip, error) {
	html, err := sess.HTML(ctx, g.config.Selectors.ClipList)
	if err != nil {
		return nil, err
	}
	return ParseClips(html, g.config.Selectors.Clip)
}

func (g *Generator) credits(ctx context.Context, sess scrapers.Session) (int, error) {
	text, err := sess.Text(ctx, g.config.Selectors.Credits)
	if err != nil {
		return 0, err
	}
	return parseCredits(text)
}
