package bots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
	"github.com/autotrack/login"
	"github.com/autotrack/scrapers/scraperstest"
	"github.com/autotrack/staging"
)

const sunoBase = "https://suno.test/"

func cdnServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ready.mp3":
			_, _ = w.Write([]byte("ID3audio"))
		case "/image_ready.png":
			_, _ = w.Write([]byte("png"))
		case "/nocover.mp3":
			_, _ = w.Write([]byte("ID3"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type sunoPage struct {
	credits []string
	created bool
	clips   string
}

func (p *sunoPage) session() *scraperstest.Session {
	sel := DefaultSunoSelectors()
	calls := 0
	return &scraperstest.Session{
		URLFunc: func() (string, error) { return sunoBase + "create", nil },
		TextFunc: func(s string) (string, error) {
			if s != sel.Credits {
				return "", nil
			}
			c := p.credits[min(calls, len(p.credits)-1)]
			calls++
			return c, nil
		},
		ClickFunc: func(s string) error {
			if s == sel.CreateButton {
				p.created = true
			}
			return nil
		},
		HTMLFunc: func(string) (string, error) {
			if !p.created {
				return "<div></div>", nil
			}
			return p.clips, nil
		},
	}
}

func newTestGenerator(t *testing.T, f *scraperstest.Factory, cdn string) *Generator {
	t.Helper()
	return NewGenerator(f.Session, login.New(nil, nil), NewFetcher(0, 5*time.Second, nil), GeneratorConfig{
		BaseURL:             sunoBase,
		CDNURL:              cdn + "/",
		MaxRetry:            2,
		Timeout:             100 * time.Millisecond,
		MaxGenerationTime:   60 * time.Millisecond,
		PollInterval:        5 * time.Millisecond,
		TracksPerGeneration: 2,
		MinCredits:          10,
		Selectors:           DefaultSunoSelectors(),
	}, nil)
}

func workerDir(t *testing.T) *staging.Dir {
	t.Helper()
	area, err := staging.NewArea(t.TempDir())
	require.NoError(t, err)
	d, err := area.Worker("suno-alice")
	require.NoError(t, err)
	return d
}

var alice = domain.Account{Platform: domain.PlatformSuno, Username: "alice", Password: "pw"}

func TestGenerate_SkipsClipsThatTimeOut(t *testing.T) {
	cdn := cdnServer(t)
	page := &sunoPage{
		credits: []string{"50 Credits"},
		clips: `<div data-clip-id="slow"><p class="chakra-text css-1fq6tx5">Slow</p><i class="chakra-spinner"></i></div>
<div data-clip-id="ready"><p class="chakra-text css-1fq6tx5">Blue Night</p><p class="chakra-text css-1icp0bk">lofi chill</p></div>`,
	}
	sess := page.session()
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return sess }}
	dir := workerDir(t)

	items, err := newTestGenerator(t, f, cdn.URL).Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Lo-fi", Text: "rainy night"}}, dir)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "alice", item.Account)
	assert.Equal(t, "Blue Night", item.Title)
	assert.Equal(t, "Lo-fi", item.Genre)
	assert.Equal(t, []string{"lofi", "chill"}, item.Tags)

	data, err := os.ReadFile(item.MediaPath)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(data))
	assert.FileExists(t, item.ImagePath)
	assert.True(t, strings.HasPrefix(item.MediaPath, dir.Path()))
	assert.True(t, sess.Closed())
}

func TestGenerate_MissingCoverKeepsTrack(t *testing.T) {
	cdn := cdnServer(t)
	page := &sunoPage{
		credits: []string{"50 Credits"},
		clips:   `<div data-clip-id="nocover"><p class="chakra-text css-1fq6tx5">Plain</p></div>`,
	}
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return page.session() }}

	items, err := newTestGenerator(t, f, cdn.URL).Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Jazz", Text: "x"}}, workerDir(t))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].ImagePath)
}

func TestGenerate_NotEnoughCredits(t *testing.T) {
	page := &sunoPage{credits: []string{"5 Credits"}}
	sess := page.session()
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return sess }}

	items, err := newTestGenerator(t, f, "http://unused").Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Jazz", Text: "x"}}, workerDir(t))
	require.ErrorIs(t, err, ErrNotEnoughCredits)
	assert.Empty(t, items)
	assert.Equal(t, 0, sess.Count("type "+DefaultSunoSelectors().PromptInput))
	assert.True(t, sess.Closed())
}

func TestGenerate_CreditsRunOutKeepsPartialOutput(t *testing.T) {
	cdn := cdnServer(t)
	page := &sunoPage{
		credits: []string{"20 Credits", "0 Credits"},
		clips:   `<div data-clip-id="ready"><p class="chakra-text css-1fq6tx5">Blue Night</p></div>`,
	}
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return page.session() }}

	items, err := newTestGenerator(t, f, cdn.URL).Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Jazz", Text: "one"}, {Genre: "Jazz", Text: "two"}}, workerDir(t))
	require.ErrorIs(t, err, ErrNotEnoughCredits)
	assert.Len(t, items, 1)
}

func TestGenerate_NothingGenerated(t *testing.T) {
	page := &sunoPage{credits: []string{"50 Credits"}, clips: "<div></div>"}
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return page.session() }}

	items, err := newTestGenerator(t, f, "http://unused").Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Jazz", Text: "x"}}, workerDir(t))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGenerate_LoginExhausted(t *testing.T) {
	sess := &scraperstest.Session{
		URLFunc: func() (string, error) { return "https://login.live.test/", nil },
	}
	f := &scraperstest.Factory{New: func(int) *scraperstest.Session { return sess }}

	_, err := newTestGenerator(t, f, "http://unused").Generate(context.Background(), alice,
		[]domain.Prompt{{Genre: "Jazz", Text: "x"}}, workerDir(t))
	require.ErrorIs(t, err, login.ErrLoginExhausted)
	assert.Equal(t, 2, sess.Count("type "+DefaultSunoSelectors().MSUser))
	assert.True(t, sess.Closed())
}
