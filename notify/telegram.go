package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/autotrack/domain"
)

// telegramLimit is the maximum length of one sendMessage text
const telegramLimit = 4096

// TelegramConfig configures the Telegram notifier
type TelegramConfig struct {
	APIURL  string
	Token   string
	ChatID  string
	Retries int
	Timeout time.Duration
}

// Telegram sends the formatted report through the Bot API
type Telegram struct {
	config TelegramConfig
	client *retryablehttp.Client
}

func NewTelegram(config TelegramConfig) *Telegram {
	if config.APIURL == "" {
		config.APIURL = "https://api.telegram.org"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = config.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = config.Timeout
	client.Logger = nil

	return &Telegram{config: config, client: client}
}

func (t *Telegram) Notify(ctx context.Context, report *domain.CycleReport) error {
	for _, chunk := range splitMessage(FormatReport(report), telegramLimit) {
		if err := t.Send(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Send posts one HTML message to the configured chat
func (t *Telegram) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.config.APIURL, "/"), t.config.Token)
	form := url.Values{
		"chat_id":    {t.config.ChatID},
		"parse_mode": {"HTML"},
		"text":       {text},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// the error carries the URL, which carries the token
		return fmt.Errorf("failed to send telegram message: %s", redact(err.Error(), t.config.Token))
	}
	defer resp.Body.Close()

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || !body.OK {
		if body.Description == "" {
			body.Description = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram rejected message: status %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
