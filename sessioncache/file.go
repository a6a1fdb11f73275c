package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
)

// FileCache keeps one JSON file per account under <dir>/<platform>/.
// Concurrent workers never share an account, so no locking is done.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache returns a cache rooted at dir. A ttl of 0 never expires tokens.
func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *FileCache) path(acct domain.Account) string {
	return filepath.Join(c.dir, string(acct.Platform), tokenName(acct.Username)+".json")
}

func (c *FileCache) Load(ctx context.Context, acct domain.Account) ([]scrapers.Cookie, bool, error) {
	p := c.path(acct)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat session token: %w", err)
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session token: %w", err)
	}

	var cookies []scrapers.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, false, fmt.Errorf("failed to decode session token %s: %w", p, err)
	}
	if len(cookies) == 0 {
		return nil, false, nil
	}
	return cookies, true, nil
}

func (c *FileCache) Save(ctx context.Context, acct domain.Account, cookies []scrapers.Cookie) error {
	p := c.path(acct)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session token: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	return nil
}

func (c *FileCache) Delete(ctx context.Context, acct domain.Account) error {
	if err := os.Remove(c.path(acct)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

func (c *FileCache) Exists(ctx context.Context, acct domain.Account) (bool, error) {
	_, ok, err := c.Load(ctx, acct)
	return ok, err
}
