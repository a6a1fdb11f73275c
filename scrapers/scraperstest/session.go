// Package scraperstest provides a scripted scrapers.Session for tests.
package scraperstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/autotrack/scrapers"
)

// Session records every call and answers from optional hooks.
// Unset hooks succeed with zero values.
type Session struct {
	mu    sync.Mutex
	calls []string

	OpenFunc   func(url string) error
	ClickFunc  func(sel string) error
	TypeFunc   func(sel, text string) error
	TextFunc   func(sel string) (string, error)
	ExistsFunc func(sel string) (bool, error)
	EvalFunc   func(script string, out any) error
	HTMLFunc   func(sel string) (string, error)
	URLFunc    func() (string, error)
	FilesFunc  func(sel string, paths []string) error

	Jar    []scrapers.Cookie
	closed bool
}

var _ scrapers.Session = (*Session)(nil)

func (s *Session) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many recorded calls start with prefix
func (s *Session) Count(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Open(ctx context.Context, url string) error {
	s.record("open %s", url)
	if s.OpenFunc != nil {
		return s.OpenFunc(url)
	}
	return ctx.Err()
}

func (s *Session) Click(ctx context.Context, sel string) error {
	s.record("click %s", sel)
	if s.ClickFunc != nil {
		return s.ClickFunc(sel)
	}
	return nil
}

func (s *Session) Type(ctx context.Context, sel, text string) error {
	s.record("type %s", sel)
	if s.TypeFunc != nil {
		return s.TypeFunc(sel, text)
	}
	return nil
}

func (s *Session) Text(ctx context.Context, sel string) (string, error) {
	s.record("text %s", sel)
	if s.TextFunc != nil {
		return s.TextFunc(sel)
	}
	return "", nil
}

func (s *Session) Exists(ctx context.Context, sel string) (bool, error) {
	s.record("exists %s", sel)
	if s.ExistsFunc != nil {
		return s.ExistsFunc(sel)
	}
	return false, nil
}

func (s *Session) Eval(ctx context.Context, script string, out any) error {
	s.record("eval")
	if s.EvalFunc != nil {
		return s.EvalFunc(script, out)
	}
	return nil
}

func (s *Session) HTML(ctx context.Context, sel string) (string, error) {
	s.record("html %s", sel)
	if s.HTMLFunc != nil {
		return s.HTMLFunc(sel)
	}
	return "", nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.record("url")
	if s.URLFunc != nil {
		return s.URLFunc()
	}
	return "", nil
}

func (s *Session) Cookies(ctx context.Context) ([]scrapers.Cookie, error) {
	s.record("cookies")
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scrapers.Cookie(nil), s.Jar...), nil
}

func (s *Session) SetCookies(ctx context.Context, cookies []scrapers.Cookie) error {
	s.record("setcookies %d", len(cookies))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jar = append(s.Jar, cookies...)
	return nil
}

func (s *Session) SetFiles(ctx context.Context, sel string, paths []string) error {
	s.record("files %s %d", sel, len(paths))
	if s.FilesFunc != nil {
		return s.FilesFunc(sel, paths)
	}
	return nil
}

func (s *Session) SetWindowSize(ctx context.Context, width, height int) error {
	s.record("window %dx%d", width, height)
	return nil
}

// Sleep returns immediately unless ctx is done
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	s.record("sleep %s", d)
	return ctx.Err()
}

func (s *Session) Close() error {
	s.record("close")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Factory hands out sessions built by New and remembers them
type Factory struct {
	// New builds the n-th session (0-based). Nil returns an empty Session.
	New func(n int) *Session

	mu      sync.Mutex
	created []*Session
}

// Session implements scrapers.Factory
func (f *Factory) Session(ctx context.Context) (scrapers.Session, error) {
	f.mu.Lock()
	n := len(f.created)
	f.mu.Unlock()

	s := &Session{}
	if f.New != nil {
		s = f.New(n)
	}

	f.mu.Lock()
	f.created = append(f.created, s)
	f.mu.Unlock()
	return s, nil
}

// Created returns the sessions handed out so far
func (f *Factory) Created() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Session(nil), f.created...)
}
