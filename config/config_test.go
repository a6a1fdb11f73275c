package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
)

func TestParseAccounts(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr bool
	}{
		{name: "empty", value: "  "},
		{name: "comma list", value: "a@x.com:p1, b@x.com:p2", want: []string{"a@x.com", "b@x.com"}},
		{name: "json list", value: `["a@x.com:p1","b@x.com:p:2"]`, want: []string{"a@x.com", "b@x.com"}},
		{name: "trailing comma", value: "a:p,", want: []string{"a"}},
		{name: "missing separator", value: "a:p,broken", wantErr: true},
		{name: "empty password", value: "a:", wantErr: true},
		{name: "bad json", value: `["a:p"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccounts(domain.PlatformSuno, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, acc := range got {
				assert.Equal(t, domain.PlatformSuno, acc.Platform)
				names = append(names, acc.Username)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestParseAccounts_PasswordMayContainColon(t *testing.T) {
	got, err := ParseAccounts(domain.PlatformSoundCloud, "user:pa:ss")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pa:ss", got[0].Password)
}

func TestAccountsWithSharedPassword(t *testing.T) {
	got, err := AccountsWithSharedPassword(domain.PlatformSuno, []string{"a", " ", "b"}, "shared")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "shared", got[1].Password)

	_, err = AccountsWithSharedPassword(domain.PlatformSuno, []string{"a"}, "")
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, DefaultConcurrentProcess, s.ConcurrentProcess)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, DefaultSyncWait, s.SyncWait)
	assert.Equal(t, SessionBackendFile, s.SessionCache.Backend)
	assert.Equal(t, DefaultRunAt, s.Service.RunAt)
	assert.True(t, s.Headless)
	assert.Empty(t, s.Suno.Accounts)
	assert.ErrorIs(t, s.Suno.RequireAccounts(domain.PlatformSuno), ErrNoAccounts)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CONCURRENT_PROCESS", "4")
	t.Setenv("TIMEOUT", "90")
	t.Setenv("MAX_TIME_FOR_SUNO_GENERATION", "3m")
	t.Setenv("SUNO_ACCOUNTS", "a:1,b:2")
	t.Setenv("SUNO_USERNAMES", "c,a")
	t.Setenv("SUNO_PASSWORD", "shared")
	t.Setenv("SOUNDCLOUD_ACCOUNTS", `["s:1"]`)
	t.Setenv("TELEGRAM_CHAT_ID", "-100")

	s, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 4, s.ConcurrentProcess)
	assert.Equal(t, 90*time.Second, s.Timeout)
	assert.Equal(t, 3*time.Minute, s.MaxGenerationTime)
	assert.Equal(t, "-100", s.Telegram.ChatID)

	require.Len(t, s.Suno.Accounts, 3, "duplicate identity a is dropped")
	assert.Equal(t, "1", s.Suno.Accounts[0].Password, "first occurrence wins")
	assert.Equal(t, "c", s.Suno.Accounts[2].Username)
	require.Len(t, s.SoundCloud.Accounts, 1)
	assert.NoError(t, s.SoundCloud.RequireAccounts(domain.PlatformSoundCloud))
}

func TestLoad_MalformedAccountFails(t *testing.T) {
	v := NewViper()
	v.Set("soundcloud.accounts", "nopassword")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autotrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
concurrent_process: 2
sync_wait: 45
soundcloud:
  accounts:
    - "one:pw"
    - "two:pw"
service:
  run_at: "21:30"
`), 0o644))

	v := NewViper()
	require.NoError(t, ReadFile(v, path))
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2, s.ConcurrentProcess)
	assert.Equal(t, 45*time.Second, s.SyncWait)
	assert.Equal(t, "21:30", s.Service.RunAt)
	assert.Len(t, s.SoundCloud.Accounts, 2)
}

func TestReadFile_MissingExplicitFile(t *testing.T) {
	assert.Error(t, ReadFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Settings) {}, ok: true},
		{name: "zero concurrency", mutate: func(s *Settings) { s.ConcurrentProcess = 0 }},
		{name: "bad log format", mutate: func(s *Settings) { s.LogFormat = "xml" }},
		{name: "bad backend", mutate: func(s *Settings) { s.SessionCache.Backend = "redis" }},
		{name: "valkey without address", mutate: func(s *Settings) { s.SessionCache.Backend = SessionBackendValkey }},
		{name: "valkey with address", mutate: func(s *Settings) {
			s.SessionCache.Backend = SessionBackendValkey
			s.Valkey.Address = "localhost:6379"
		}, ok: true},
		{name: "bad run_at", mutate: func(s *Settings) { s.Service.RunAt = "25:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
