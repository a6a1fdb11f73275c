// Package prompts loads generation prompts and picks the genre of the day.
package prompts

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/autotrack/domain"
)

var numbered = regexp.MustCompile(`^\d+\.`)

// Parse reads a prompt file.
//
// Genre headings start with "###"; prompts are numbered lines ("1. text")
// belonging to the last heading seen. Anything else is ignored.
func Parse(r io.Reader) ([]domain.Prompt, error) {
	var (
		out   []domain.Prompt
		genre string
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "###"):
			genre = strings.TrimSpace(strings.TrimLeft(line, "#"))
		case numbered.MatchString(line):
			if genre == "" {
				continue
			}
			text := strings.TrimSpace(strings.SplitN(line, ".", 2)[1])
			if text == "" {
				continue
			}
			out = append(out, domain.Prompt{Genre: genre, Text: text})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	return out, nil
}

// Load parses the prompt file at path
func Load(path string) ([]domain.Prompt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompts file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Genres returns the sorted distinct genres
func Genres(all []domain.Prompt) []string {
	set := make(map[string]struct{})
	for _, p := range all {
		set[p.Genre] = struct{}{}
	}
	genres := make([]string, 0, len(set))
	for g := range set {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres
}

// DayNumber counts calendar days since 1970-01-01 in t's location, starting at 1
func DayNumber(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix()/86400) + 1
}

// SelectGenre picks the genre for a day number: sorted genres indexed by (day-1) mod n.
// Returns "" when there are no genres.
func SelectGenre(genres []string, day int) string {
	n := len(genres)
	if n == 0 {
		return ""
	}
	idx := (day - 1) % n
	if idx < 0 {
		idx += n
	}
	return genres[idx]
}

// ForGenre filters prompts down to one genre
func ForGenre(all []domain.Prompt, genre string) []domain.Prompt {
	var out []domain.Prompt
	for _, p := range all {
		if p.Genre == genre {
			out = append(out, p)
		}
	}
	return out
}

// Sampler hands each account its own random prompt subset
type Sampler struct {
	rnd *rand.Rand
}

// NewSampler returns a sampler; a nil source seeds from the clock
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Sampler{rnd: rand.New(src)}
}

// Sample picks n prompts without replacement, or all of them when fewer exist
func (s *Sampler) Sample(pool []domain.Prompt, n int) []domain.Prompt {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	idx := s.rnd.Perm(len(pool))[:n]
	out := make([]domain.Prompt, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}

// Assign samples n prompts for every account, keyed by account identity
func (s *Sampler) Assign(accounts []domain.Account, pool []domain.Prompt, n int) map[string][]domain.Prompt {
	out := make(map[string][]domain.Prompt, len(accounts))
	for _, acc := range accounts {
		out[acc.Key()] = s.Sample(pool, n)
	}
	return out
}
