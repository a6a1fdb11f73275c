package config

import (
	"time"

	"github.com/autotrack/domain"
)

const (
	DefaultConcurrentProcess    = 6
	DefaultMaxRetry             = 3
	DefaultTimeout              = 60 * time.Second
	DefaultMaxGenerationTime    = 120 * time.Second
	DefaultTracksPerAccount     = 10
	DefaultTracksPerGeneration  = 2
	DefaultPromptsPerAccount    = 5
	DefaultMinCredits           = 10
	DefaultMaxMonetizationPages = 3
	DefaultMonetizationRetries  = 3
	DefaultSyncWait             = 180 * time.Second
	DefaultUploadSettle         = 30 * time.Second
	DefaultLaunchStagger        = 2 * time.Second
	DefaultSessionTTL           = 30 * 24 * time.Hour
	DefaultUpdateInterval       = time.Hour
	DefaultRunAt                = "06:00"
	DefaultHTTPAddr             = ":8089"
	DefaultGRPCPort             = "50051"
	DefaultSunoBaseURL          = "https://app.suno.ai/"
	DefaultSunoCDNURL           = "https://cdn1.suno.ai/"
	DefaultSoundCloudBaseURL    = "https://soundcloud.com/"
	DefaultSoundCloudArtistURL  = "https://artists.soundcloud.com/"
	DefaultTelegramAPIURL       = "https://api.telegram.org"
	SessionBackendFile          = "file"
	SessionBackendValkey        = "valkey"
)

// Settings holds every option the pipeline recognises
type Settings struct {
	ConcurrentProcess    int
	MaxRetry             int
	Timeout              time.Duration
	MaxGenerationTime    time.Duration
	TracksPerAccount     int
	TracksPerGeneration  int
	PromptsPerAccount    int
	MinCredits           int
	MaxMonetizationPages int
	MonetizationRetries  int
	SyncWait             time.Duration
	UploadSettle         time.Duration
	LaunchStagger        time.Duration
	Headless             bool

	WorkDir     string
	CookieDir   string
	PromptsFile string
	DataDir     string

	LogLevel  string
	LogFormat string

	Suno       PlatformSettings
	SoundCloud PlatformSettings

	SessionCache SessionCacheSettings
	Valkey       ValkeySettings
	Telegram     TelegramSettings
	WebSocketURL string

	Service ServiceSettings
}

// PlatformSettings groups the endpoints and account pool of one site
type PlatformSettings struct {
	BaseURL   string
	ArtistURL string
	CDNURL    string
	LoginLink string
	Accounts  []domain.Account
}

type SessionCacheSettings struct {
	Backend string
	TTL     time.Duration
}

type ValkeySettings struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type TelegramSettings struct {
	Token  string
	ChatID string
	APIURL string
}

// ServiceSettings configures the long-running service mode
type ServiceSettings struct {
	RunAt          string
	HTTPAddr       string
	GRPCPort       string
	AutoUpdate     bool
	UpdateInterval time.Duration
	RepoSlug       string
}

// Default returns settings populated with the built-in defaults
func Default() *Settings {
	return &Settings{
		ConcurrentProcess:    DefaultConcurrentProcess,
		MaxRetry:             DefaultMaxRetry,
		Timeout:              DefaultTimeout,
		MaxGenerationTime:    DefaultMaxGenerationTime,
		TracksPerAccount:     DefaultTracksPerAccount,
		TracksPerGeneration:  DefaultTracksPerGeneration,
		PromptsPerAccount:    DefaultPromptsPerAccount,
		MinCredits:           DefaultMinCredits,
		MaxMonetizationPages: DefaultMaxMonetizationPages,
		MonetizationRetries:  DefaultMonetizationRetries,
		SyncWait:             DefaultSyncWait,
		UploadSettle:         DefaultUploadSettle,
		LaunchStagger:        DefaultLaunchStagger,
		Headless:             true,
		WorkDir:              "downloaded_files",
		CookieDir:            "cookies",
		PromptsFile:          "suno_prompts.txt",
		DataDir:              "data",
		LogLevel:             "info",
		LogFormat:            "text",
		Suno: PlatformSettings{
			BaseURL: DefaultSunoBaseURL,
			CDNURL:  DefaultSunoCDNURL,
		},
		SoundCloud: PlatformSettings{
			BaseURL:   DefaultSoundCloudBaseURL,
			ArtistURL: DefaultSoundCloudArtistURL,
		},
		SessionCache: SessionCacheSettings{
			Backend: SessionBackendFile,
			TTL:     DefaultSessionTTL,
		},
		Valkey: ValkeySettings{
			KeyPrefix: "autotrack",
		},
		Telegram: TelegramSettings{
			APIURL: DefaultTelegramAPIURL,
		},
		Service: ServiceSettings{
			RunAt:          DefaultRunAt,
			HTTPAddr:       DefaultHTTPAddr,
			GRPCPort:       DefaultGRPCPort,
			UpdateInterval: DefaultUpdateInterval,
			RepoSlug:       "autotrack/autotrack",
		},
	}
}
