package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/autotrack/bots"
	"github.com/autotrack/config"
	"github.com/autotrack/domain"
	"github.com/autotrack/history"
	"github.com/autotrack/login"
	"github.com/autotrack/metrics"
	"github.com/autotrack/notify"
	"github.com/autotrack/poll"
	"github.com/autotrack/runner"
	"github.com/autotrack/scrapers"
	"github.com/autotrack/sessioncache"
)

// stack is the wired pipeline plus what has to be released afterwards
type stack struct {
	runner  *runner.Runner
	history *history.Store
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSessionCache returns the configured session backend and its release func
func openSessionCache(s *config.Settings) (sessioncache.Cache, func(), error) {
	switch s.SessionCache.Backend {
	case config.SessionBackendValkey:
		cache, err := sessioncache.NewValkeyCache(sessioncache.ValkeyConfig{
			Address:   s.Valkey.Address,
			Password:  s.Valkey.Password,
			DB:        s.Valkey.DB,
			KeyPrefix: s.Valkey.KeyPrefix,
			TTL:       s.SessionCache.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return cache, cache.Close, nil
	default:
		return sessioncache.NewFileCache(s.CookieDir, s.SessionCache.TTL), func() {}, nil
	}
}

// buildNotifier fans out to the log and to every configured channel
func buildNotifier(s *config.Settings, logger *slog.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if s.Telegram.Token != "" && s.Telegram.ChatID != "" {
		notifiers = append(notifiers, notify.NewTelegram(notify.TelegramConfig{
			APIURL:  s.Telegram.APIURL,
			Token:   s.Telegram.Token,
			ChatID:  s.Telegram.ChatID,
			Retries: s.MaxRetry,
			Timeout: s.Timeout,
		}))
	}
	if s.WebSocketURL != "" {
		notifiers = append(notifiers, notify.NewWebSocket(s.WebSocketURL))
	}
	return notifiers
}

// buildStack wires the whole pipeline from settings
func buildStack(s *config.Settings, logger *slog.Logger) (*stack, error) {
	if err := s.Suno.RequireAccounts(domain.PlatformSuno); err != nil {
		return nil, err
	}
	if err := s.SoundCloud.RequireAccounts(domain.PlatformSoundCloud); err != nil {
		logger.Warn("publish stage disabled", "error", err)
	}

	st := &stack{}

	cache, closeCache, err := openSessionCache(s)
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache: %w", err)
	}
	st.closers = append(st.closers, closeCache)

	store, err := history.Open(s.DataDir)
	if err != nil {
		logger.Warn("cycle history disabled", "error", err)
	} else {
		st.history = store
		st.closers = append(st.closers, func() { store.Close() })
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		st.Close()
		return nil, err
	}

	factory := scrapers.NewChromeFactory(scrapers.ChromeConfig{
		Headless:     s.Headless,
		Timeout:      s.Timeout,
		WindowWidth:  1920,
		WindowHeight: 1080,
	}, logger)
	loginer := login.New(cache, logger)

	generator := bots.NewGenerator(factory, loginer, bots.NewFetcher(s.MaxRetry, s.Timeout, logger), bots.GeneratorConfig{
		BaseURL:             s.Suno.BaseURL,
		CDNURL:              s.Suno.CDNURL,
		MaxRetry:            s.MaxRetry,
		Timeout:             s.Timeout,
		MaxGenerationTime:   s.MaxGenerationTime,
		PollInterval:        poll.DefaultInterval,
		TracksPerGeneration: s.TracksPerGeneration,
		MinCredits:          s.MinCredits,
		Selectors:           bots.DefaultSunoSelectors(),
	}, logger)

	publisher := bots.NewPublisher(factory, loginer, cache, bots.PublisherConfig{
		BaseURL:              s.SoundCloud.BaseURL,
		ArtistURL:            s.SoundCloud.ArtistURL,
		LoginLink:            s.SoundCloud.LoginLink,
		MaxRetry:             s.MaxRetry,
		Timeout:              s.Timeout,
		PollInterval:         poll.DefaultInterval,
		SyncWait:             s.SyncWait,
		UploadSettle:         s.UploadSettle,
		MaxMonetizationPages: s.MaxMonetizationPages,
		MonetizationRetries:  s.MonetizationRetries,
		Selectors:            bots.DefaultSoundCloudSelectors(),
	}, logger)

	deps := runner.Deps{
		Generator: generator,
		Publisher: publisher,
		Notifier:  buildNotifier(s, logger),
		Recorder:  collector,
	}
	if st.history != nil {
		deps.History = st.history
	}

	st.runner = runner.New(deps, runner.Config{
		Concurrency:        s.ConcurrentProcess,
		PromptsPerAccount:  s.PromptsPerAccount,
		TracksPerAccount:   s.TracksPerAccount,
		LaunchStagger:      s.LaunchStagger,
		WorkDir:            s.WorkDir,
		PromptsFile:        s.PromptsFile,
		GenerationAccounts: s.Suno.Accounts,
		PublishAccounts:    s.SoundCloud.Accounts,
	}, logger)
	return st, nil
}
