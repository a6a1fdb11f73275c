package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/autotrack/domain"
)

// ErrNoAccounts is returned when a platform pool is required but empty
var ErrNoAccounts = errors.New("no accounts configured")

// ParseAccounts parses a pool of "user:pass" entries.
// Accepted forms: user1:pass1,user2:pass2 or ["user1:pass1","user2:pass2"].
// A malformed entry fails the whole pool.
func ParseAccounts(platform domain.Platform, value string) ([]domain.Account, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var entries []string
	if strings.HasPrefix(value, "[") {
		if err := json.Unmarshal([]byte(value), &entries); err != nil {
			return nil, fmt.Errorf("%s accounts: invalid JSON list: %w", platform, err)
		}
	} else {
		entries = strings.Split(value, ",")
	}

	return parseEntries(platform, entries)
}

func parseEntries(platform domain.Platform, entries []string) ([]domain.Account, error) {
	var accounts []domain.Account
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		acc, err := parseAccountString(platform, entry)
		if err != nil {
			return nil, fmt.Errorf("%s accounts: entry %d: %w", platform, i+1, err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// parseAccountString parses a single account string "user:pass"
func parseAccountString(platform domain.Platform, s string) (domain.Account, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return domain.Account{}, fmt.Errorf("expected user:pass, got %q", s)
	}

	acc := domain.Account{
		Platform: platform,
		Username: strings.TrimSpace(parts[0]),
		Password: strings.TrimSpace(parts[1]),
	}
	return acc, validateAccount(acc)
}

// AccountsWithSharedPassword builds a pool from usernames that all use one password
func AccountsWithSharedPassword(platform domain.Platform, usernames []string, password string) ([]domain.Account, error) {
	var accounts []domain.Account
	for i, name := range usernames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		acc := domain.Account{Platform: platform, Username: name, Password: password}
		if err := validateAccount(acc); err != nil {
			return nil, fmt.Errorf("%s usernames: entry %d: %w", platform, i+1, err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func validateAccount(acc domain.Account) error {
	return validation.ValidateStruct(&acc,
		validation.Field(&acc.Username, validation.Required),
		validation.Field(&acc.Password, validation.Required),
	)
}

// dedupe drops repeated identities, keeping the first occurrence
func dedupe(accounts []domain.Account) []domain.Account {
	seen := make(map[string]bool, len(accounts))
	out := accounts[:0]
	for _, acc := range accounts {
		if seen[acc.Key()] {
			continue
		}
		seen[acc.Key()] = true
		out = append(out, acc)
	}
	return out
}

// RequireAccounts returns ErrNoAccounts when the pool is empty
func (p PlatformSettings) RequireAccounts(platform domain.Platform) error {
	if len(p.Accounts) == 0 {
		return fmt.Errorf("%s: %w", platform, ErrNoAccounts)
	}
	return nil
}
