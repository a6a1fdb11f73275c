package sessioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/autotrack/domain"
	"github.com/autotrack/scrapers"
)

// DefaultConnectTimeout bounds the initial ping
const DefaultConnectTimeout = 5 * time.Second

// ValkeyConfig holds the connection settings of the shared cache
type ValkeyConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// ValkeyCache shares session tokens between hosts through Valkey.
// Keys look like "<prefix>:session:<platform>:<username>".
type ValkeyCache struct {
	client valkeylib.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyCache connects and pings the server. The caller must Close it.
func NewValkeyCache(cfg ValkeyConfig) (*ValkeyCache, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return newValkeyCache(client, cfg.KeyPrefix, cfg.TTL), nil
}

func newValkeyCache(client valkeylib.Client, prefix string, ttl time.Duration) *ValkeyCache {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix != "" {
		prefix += ":"
	}
	return &ValkeyCache{client: client, prefix: prefix + "session:", ttl: ttl}
}

func (c *ValkeyCache) key(acct domain.Account) string {
	return c.prefix + string(acct.Platform) + ":" + tokenName(acct.Username)
}

func (c *ValkeyCache) Load(ctx context.Context, acct domain.Account) ([]scrapers.Cookie, bool, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(acct)).Build()).AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get session token: %w", err)
	}

	var cookies []scrapers.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, false, fmt.Errorf("failed to decode session token: %w", err)
	}
	return cookies, len(cookies) > 0, nil
}

func (c *ValkeyCache) Save(ctx context.Context, acct domain.Account, cookies []scrapers.Cookie) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode session token: %w", err)
	}

	var cmd valkeylib.Completed
	if c.ttl > 0 {
		cmd = c.client.B().Set().Key(c.key(acct)).Value(string(data)).Ex(c.ttl).Build()
	} else {
		cmd = c.client.B().Set().Key(c.key(acct)).Value(string(data)).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

func (c *ValkeyCache) Delete(ctx context.Context, acct domain.Account) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.key(acct)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

func (c *ValkeyCache) Exists(ctx context.Context, acct domain.Account) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Exists().Key(c.key(acct)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check session token: %w", err)
	}
	return n > 0, nil
}

// Close closes the connection
func (c *ValkeyCache) Close() {
	c.client.Close()
}
