package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/autotrack/domain"
)

// NewViper returns a viper instance bound to the environment and the defaults.
// Keys map to environment variables without prefix: "telegram.chat_id" <-> TELEGRAM_CHAT_ID.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("concurrent_process", d.ConcurrentProcess)
	v.SetDefault("max_retry", d.MaxRetry)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_time_for_suno_generation", d.MaxGenerationTime)
	v.SetDefault("no_of_tracks_per_account", d.TracksPerAccount)
	v.SetDefault("tracks_per_generation", d.TracksPerGeneration)
	v.SetDefault("prompts_per_account", d.PromptsPerAccount)
	v.SetDefault("min_credits", d.MinCredits)
	v.SetDefault("max_monetization_pages", d.MaxMonetizationPages)
	v.SetDefault("monetization_form_retries", d.MonetizationRetries)
	v.SetDefault("sync_wait", d.SyncWait)
	v.SetDefault("upload_settle", d.UploadSettle)
	v.SetDefault("launch_stagger", d.LaunchStagger)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("cookie_dir", d.CookieDir)
	v.SetDefault("prompts_file", d.PromptsFile)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetDefault("suno.base_url", d.Suno.BaseURL)
	v.SetDefault("suno.cdn_url", d.Suno.CDNURL)
	v.SetDefault("soundcloud.base_url", d.SoundCloud.BaseURL)
	v.SetDefault("soundcloud.artist_url", d.SoundCloud.ArtistURL)
	// The original deployment names this one SOUNDCLOUD_LINK
	v.SetDefault("soundcloud.link", "")

	v.SetDefault("session_cache.backend", d.SessionCache.Backend)
	v.SetDefault("session_cache.ttl", d.SessionCache.TTL)
	v.SetDefault("valkey.address", "")
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.db", 0)
	v.SetDefault("valkey.key_prefix", d.Valkey.KeyPrefix)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_url", d.Telegram.APIURL)
	v.SetDefault("notify.websocket_url", "")

	v.SetDefault("service.run_at", d.Service.RunAt)
	v.SetDefault("service.http_addr", d.Service.HTTPAddr)
	v.SetDefault("service.grpc_port", d.Service.GRPCPort)
	v.SetDefault("service.auto_update", d.Service.AutoUpdate)
	v.SetDefault("service.update_interval", d.Service.UpdateInterval)
	v.SetDefault("service.repo_slug", d.Service.RepoSlug)
}

// LoadDotEnv loads a .env file into the process environment when present
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ReadFile reads an optional config file into v
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		v.SetConfigName("autotrack")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil
			}
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load builds validated Settings from v
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		ConcurrentProcess:    v.GetInt("concurrent_process"),
		MaxRetry:             v.GetInt("max_retry"),
		Timeout:              seconds(v, "timeout"),
		MaxGenerationTime:    seconds(v, "max_time_for_suno_generation"),
		TracksPerAccount:     v.GetInt("no_of_tracks_per_account"),
		TracksPerGeneration:  v.GetInt("tracks_per_generation"),
		PromptsPerAccount:    v.GetInt("prompts_per_account"),
		MinCredits:           v.GetInt("min_credits"),
		MaxMonetizationPages: v.GetInt("max_monetization_pages"),
		MonetizationRetries:  v.GetInt("monetization_form_retries"),
		SyncWait:             seconds(v, "sync_wait"),
		UploadSettle:         seconds(v, "upload_settle"),
		LaunchStagger:        seconds(v, "launch_stagger"),
		Headless:             v.GetBool("headless"),
		WorkDir:              v.GetString("work_dir"),
		CookieDir:            v.GetString("cookie_dir"),
		PromptsFile:          v.GetString("prompts_file"),
		DataDir:              v.GetString("data_dir"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
		Suno: PlatformSettings{
			BaseURL: v.GetString("suno.base_url"),
			CDNURL:  v.GetString("suno.cdn_url"),
		},
		SoundCloud: PlatformSettings{
			BaseURL:   v.GetString("soundcloud.base_url"),
			ArtistURL: v.GetString("soundcloud.artist_url"),
			LoginLink: v.GetString("soundcloud.link"),
		},
		SessionCache: SessionCacheSettings{
			Backend: v.GetString("session_cache.backend"),
			TTL:     v.GetDuration("session_cache.ttl"),
		},
		Valkey: ValkeySettings{
			Address:   v.GetString("valkey.address"),
			Password:  v.GetString("valkey.password"),
			DB:        v.GetInt("valkey.db"),
			KeyPrefix: v.GetString("valkey.key_prefix"),
		},
		Telegram: TelegramSettings{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetString("telegram.chat_id"),
			APIURL: v.GetString("telegram.api_url"),
		},
		WebSocketURL: v.GetString("notify.websocket_url"),
		Service: ServiceSettings{
			RunAt:          v.GetString("service.run_at"),
			HTTPAddr:       v.GetString("service.http_addr"),
			GRPCPort:       v.GetString("service.grpc_port"),
			AutoUpdate:     v.GetBool("service.auto_update"),
			UpdateInterval: v.GetDuration("service.update_interval"),
			RepoSlug:       v.GetString("service.repo_slug"),
		},
	}

	var err error
	if s.Suno.Accounts, err = loadPool(v, domain.PlatformSuno); err != nil {
		return nil, err
	}
	if s.SoundCloud.Accounts, err = loadPool(v, domain.PlatformSoundCloud); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// seconds reads a duration; bare numbers are seconds as in the original settings
func seconds(v *viper.Viper, key string) time.Duration {
	switch raw := v.Get(key).(type) {
	case int:
		return time.Duration(raw) * time.Second
	case int64:
		return time.Duration(raw) * time.Second
	case float64:
		return time.Duration(raw * float64(time.Second))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return v.GetDuration(key)
}

// loadPool reads "<platform>.accounts" and "<platform>.usernames" + "<platform>.password"
func loadPool(v *viper.Viper, platform domain.Platform) ([]domain.Account, error) {
	prefix := string(platform)

	var accounts []domain.Account
	switch raw := v.Get(prefix + ".accounts").(type) {
	case nil:
	case string:
		parsed, err := ParseAccounts(platform, raw)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, parsed...)
	default:
		parsed, err := parseEntries(platform, v.GetStringSlice(prefix+".accounts"))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, parsed...)
	}

	usernames := stringList(v, prefix+".usernames")
	if len(usernames) > 0 {
		shared, err := AccountsWithSharedPassword(platform, usernames, v.GetString(prefix+".password"))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, shared...)
	}

	return dedupe(accounts), nil
}

func stringList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return strings.Split(raw, ",")
	}
	return v.GetStringSlice(key)
}
