package bots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clip is one generated track as listed on the create page
type Clip struct {
	ID    string
	Title string
	Tags  []string
	// Ready is false while the row still shows a progress spinner
	Ready bool
}

// ParseClips extracts the clips listed in html, in document order, without duplicates
func ParseClips(html string, sel ClipSelectors) ([]Clip, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse clip list: %w", err)
	}

	seen := make(map[string]bool)
	var clips []Clip
	doc.Find(sel.Row).Each(func(_ int, row *goquery.Selection) {
		id, ok := row.Attr(sel.IDAttr)
		id = strings.TrimSpace(id)
		if !ok || id == "" || seen[id] {
			return
		}
		seen[id] = true

		clips = append(clips, Clip{
			ID:    id,
			Title: strings.TrimSpace(row.Find(sel.Title).First().Text()),
			Tags:  strings.Fields(row.Find(sel.Tags).First().Text()),
			Ready: row.Find(sel.Pending).Length() == 0,
		})
	})
	return clips, nil
}

// newClips returns the clips whose id is not in known
func newClips(clips []Clip, known map[string]bool) []Clip {
	var out []Clip
	for _, c := range clips {
		if !known[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// parseCredits reads the leading number of a text like "50 Credits"
func parseCredits(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty credits text")
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("failed to parse credits %q: %w", text, err)
	}
	return n, nil
}
