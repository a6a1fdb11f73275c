package prompts

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotrack/domain"
)

const sample = `
### Lo-fi
1. rainy night beats
2. coffee shop piano

### Ambient
1. deep space drones
not a prompt
2.

### Jazz
10. smoky bar trio
`

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []domain.Prompt{
		{Genre: "Lo-fi", Text: "rainy night beats"},
		{Genre: "Lo-fi", Text: "coffee shop piano"},
		{Genre: "Ambient", Text: "deep space drones"},
		{Genre: "Jazz", Text: "smoky bar trio"},
	}, got)
}

func TestParse_PromptBeforeHeadingIgnored(t *testing.T) {
	got, err := Parse(strings.NewReader("1. orphan\n### Rock\n1. riff"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rock", got[0].Genre)
}

func TestGenres_SortedDistinct(t *testing.T) {
	got, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ambient", "Jazz", "Lo-fi"}, Genres(got))
}

func TestSelectGenre_FullRotation(t *testing.T) {
	for n := 1; n <= 7; n++ {
		genres := make([]string, n)
		for i := range genres {
			genres[i] = string(rune('a' + i))
		}

		seen := map[string]bool{}
		for day := 1; day <= n; day++ {
			g := SelectGenre(genres, day)
			assert.False(t, seen[g], "genre %q picked twice within %d days", g, n)
			seen[g] = true
		}
		assert.Len(t, seen, n)
		assert.Equal(t, SelectGenre(genres, 1), SelectGenre(genres, n+1))
	}
}

func TestSelectGenre_Deterministic(t *testing.T) {
	genres := []string{"a", "b", "c"}
	assert.Equal(t, SelectGenre(genres, 42), SelectGenre(genres, 42))
	assert.Equal(t, "", SelectGenre(nil, 3))
	assert.Equal(t, "c", SelectGenre(genres, 0))
}

func TestDayNumber(t *testing.T) {
	assert.Equal(t, 1, DayNumber(time.Date(1970, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 2, DayNumber(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)))

	// consecutive days across a month boundary advance by one
	loc := time.FixedZone("X", 5*3600)
	a := DayNumber(time.Date(2024, 1, 31, 12, 0, 0, 0, loc))
	b := DayNumber(time.Date(2024, 2, 1, 1, 0, 0, 0, loc))
	assert.Equal(t, a+1, b)
}

func TestSampler(t *testing.T) {
	pool := []domain.Prompt{
		{Genre: "g", Text: "1"}, {Genre: "g", Text: "2"}, {Genre: "g", Text: "3"},
		{Genre: "g", Text: "4"}, {Genre: "g", Text: "5"}, {Genre: "g", Text: "6"},
	}
	s := NewSampler(rand.NewSource(7))

	got := s.Sample(pool, 5)
	require.Len(t, got, 5)
	seen := map[string]bool{}
	for _, p := range got {
		assert.False(t, seen[p.Text])
		seen[p.Text] = true
	}

	assert.Len(t, s.Sample(pool, 10), len(pool))
	assert.Nil(t, s.Sample(pool, 0))
	assert.Nil(t, s.Sample(nil, 3))

	again := NewSampler(rand.NewSource(7)).Sample(pool, 5)
	assert.Equal(t, got, again)
}

func TestSampler_Assign(t *testing.T) {
	accounts := []domain.Account{
		{Platform: domain.PlatformSuno, Username: "a"},
		{Platform: domain.PlatformSuno, Username: "b"},
	}
	pool := []domain.Prompt{{Genre: "g", Text: "x"}, {Genre: "g", Text: "y"}}

	got := NewSampler(rand.NewSource(1)).Assign(accounts, pool, 1)
	assert.Len(t, got, 2)
	assert.Len(t, got["suno/a"], 1)
	assert.Len(t, got["suno/b"], 1)
}

func TestForGenre(t *testing.T) {
	all, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, ForGenre(all, "Lo-fi"), 2)
	assert.Empty(t, ForGenre(all, "Metal"))
}
