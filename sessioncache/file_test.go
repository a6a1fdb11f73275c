package sessioncache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
)

var alice = domain.Account{Platform: domain.PlatformSuno, Username: "alice@example.com", Password: "x"}

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFileCache(t.TempDir(), 0)

	_, ok, err := c.Load(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok, "absent token means no cached session")

	cookies := []scrapers.Cookie{{Name: "__session", Value: "abc", Domain: ".suno.ai", Path: "/"}}
	require.NoError(t, c.Save(ctx, alice, cookies))

	got, ok, err := c.Load(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cookies, got)

	exists, err := c.Exists(ctx, alice)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, alice))
	require.NoError(t, c.Delete(ctx, alice), "deleting a missing token is not an error")

	_, ok, err = c.Load(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCache_LayoutPerPlatform(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir, 0)
	require.NoError(t, c.Save(context.Background(), alice, []scrapers.Cookie{{Name: "a"}}))

	_, err := os.Stat(filepath.Join(dir, "suno", "alice@example.com.json"))
	assert.NoError(t, err)
}

func TestFileCache_AccountsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	c := NewFileCache(t.TempDir(), 0)
	other := domain.Account{Platform: domain.PlatformSoundCloud, Username: alice.Username}

	require.NoError(t, c.Save(ctx, alice, []scrapers.Cookie{{Name: "suno"}}))
	require.NoError(t, c.Save(ctx, other, []scrapers.Cookie{{Name: "sc"}}))

	got, _, err := c.Load(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "sc", got[0].Name)
}

func TestFileCache_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewFileCache(t.TempDir(), time.Hour)
	require.NoError(t, c.Save(ctx, alice, []scrapers.Cookie{{Name: "a"}}))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok, err := c.Load(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCache_Corrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir, 0)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "suno"), 0o700))
	require.NoError(t, os.WriteFile(c.path(alice), []byte("{not json"), 0o600))

	_, ok, err := c.Load(context.Background(), alice)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTokenName(t *testing.T) {
	assert.Equal(t, "a_b", tokenName("a/b"))
	assert.NotContains(t, tokenName("../etc/passwd"), "/")
	assert.NotContains(t, tokenName("../etc/passwd"), "..")
}
