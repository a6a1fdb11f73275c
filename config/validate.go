package config

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var runAtPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks the numeric bounds and the cross-field requirements
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.ConcurrentProcess, validation.Required, validation.Min(1)),
		validation.Field(&s.MaxRetry, validation.Required, validation.Min(1)),
		validation.Field(&s.Timeout, validation.Required),
		validation.Field(&s.MaxGenerationTime, validation.Required),
		validation.Field(&s.TracksPerAccount, validation.Min(0)),
		validation.Field(&s.TracksPerGeneration, validation.Required, validation.Min(1)),
		validation.Field(&s.PromptsPerAccount, validation.Required, validation.Min(1)),
		validation.Field(&s.MinCredits, validation.Min(0)),
		validation.Field(&s.MaxMonetizationPages, validation.Required, validation.Min(1)),
		validation.Field(&s.MonetizationRetries, validation.Required, validation.Min(1)),
		validation.Field(&s.WorkDir, validation.Required),
		validation.Field(&s.CookieDir, validation.Required),
		validation.Field(&s.LogFormat, validation.In("text", "json")),
		validation.Field(&s.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&s.SessionCache),
		validation.Field(&s.Valkey, validation.When(s.SessionCache.Backend == SessionBackendValkey,
			validation.By(func(interface{}) error { return s.Valkey.validate() }))),
		validation.Field(&s.Service),
	)
}

func (c SessionCacheSettings) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(SessionBackendFile, SessionBackendValkey)),
	)
}

// validate is only applied when valkey is the session backend
func (c ValkeySettings) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

func (c ServiceSettings) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RunAt, validation.Required, validation.Match(runAtPattern)),
		validation.Field(&c.HTTPAddr, validation.Required),
	)
}
