package notify

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/autotrack/domain"
)

// FormatReport renders a report as Telegram HTML
func FormatReport(r *domain.CycleReport) string {
	expected := r.ExpectedTracks()

	var b strings.Builder
	fmt.Fprintf(&b, "🎶 <b>Music production summary - <i>%s</i></b> 🎶\n\n", r.StartedAt.Format("02/01/2006"))
	b.WriteString("🌐 <b>Generation accounts</b>\n\n")
	fmt.Fprintf(&b, "— Genre used: <i>%s</i>\n", html.EscapeString(r.Genre))
	fmt.Fprintf(&b, "— Tracks created: <i>%d</i>/<i>%d</i> expected\n", r.TotalGenerated, expected)
	fmt.Fprintf(&b, "— Accounts used: <i>%d</i>\n", r.AccountsUsed)

	if len(r.Results) > 0 {
		b.WriteString("\n📝 <b>Publish accounts</b>\n")
	}
	for i, res := range r.Results {
		fmt.Fprintf(&b, "\n🔹 Account <i>%d</i> - <i>%s</i>\n", i+1, html.EscapeString(res.Account))
		fmt.Fprintf(&b, "— Tracks uploaded: <i>%d</i>/<i>%d</i> expected\n", res.UploadCount, expected)
		fmt.Fprintf(&b, "— Tracks monetized: <i>%d</i>\n", res.MonetizationCount)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\n⚠️ <b>Failed workers: %d</b>\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "— %s <i>%s</i>\n", f.Stage, html.EscapeString(f.Account))
		}
	}
	return b.String()
}

// splitMessage cuts text on line boundaries into chunks of at most limit bytes
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := cutIndex(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// cutIndex returns the largest offset <= limit where s can be split without
// breaking a UTF-8 sequence, a tag, an entity or an open element. Failing
// that it settles for any rune boundary.
func cutIndex(s string, limit int) int {
	best, outside := 0, 0
	depth := 0
	inTag, inEntity := false, false
	for i, r := range s {
		if i > limit {
			break
		}
		if !inTag && !inEntity {
			outside = i
			if depth == 0 {
				best = i
			}
		}
		switch {
		case r == '<' && !inTag:
			inTag = true
			if strings.HasPrefix(s[i:], "</") {
				depth--
			} else {
				depth++
			}
		case r == '>' && inTag:
			inTag = false
		case r == '&' && !inTag:
			inEntity = true
		case r == ';' && inEntity:
			inEntity = false
		}
	}
	if best > 0 {
		return best
	}
	if outside > 0 {
		return outside
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		cut = size
	}
	return cut
}
