package scrapers

import (
	"context"
	"fmt"
	"time"
)

// Session is the browser automation capability the workers drive.
// Each worker owns one Session for its lifetime; implementations need not
// be safe for concurrent use.
type Session interface {
	// Open navigates to url and waits for the document body
	Open(ctx context.Context, url string) error
	Click(ctx context.Context, sel string) error
	// Type sends text to the input matched by sel
	Type(ctx context.Context, sel, text string) error
	Text(ctx context.Context, sel string) (string, error)
	// Exists reports whether sel currently matches a node, without waiting
	Exists(ctx context.Context, sel string) (bool, error)
	// Eval runs script and decodes its result into out (nil discards it)
	Eval(ctx context.Context, script string, out any) error
	HTML(ctx context.Context, sel string) (string, error)
	URL(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// SetFiles attaches local files to a file input
	SetFiles(ctx context.Context, sel string, paths []string) error
	SetWindowSize(ctx context.Context, width, height int) error
	Sleep(ctx context.Context, d time.Duration) error
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Factory creates a fresh Session
type Factory func(ctx context.Context) (Session, error)

// WithSession runs fn on a new session and always releases it afterwards,
// including when fn fails or panics.
func WithSession(ctx context.Context, factory Factory, fn func(Session) error) error {
	sess, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to create browser session: %w", err)
	}
	defer sess.Close()

	return fn(sess)
}
