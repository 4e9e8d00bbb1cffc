package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"contract-announcer/internal/entity"
)

const (
	alertHeadline = "🚨 NEW CONTRACT ALERT"
	hashtags      = "#GovCon #SmallBusiness #SAMgov"
	ellipsis      = "…"

	// minTitleRunes is how far the title is shortened before decorations start being dropped.
	minTitleRunes = 40
)

// FormatOpportunity renders a ranked opportunity as a post of at most maxLen runes.
// When it does not fit, the title is shortened first, then decorative lines are dropped
// (least important first), then the title is shortened further. The URL is never altered; if
// the URL alone exceeds maxLen it is returned on its own.
func FormatOpportunity(o entity.RankedOpportunity, maxLen int) string {
	title := strings.Join(strings.Fields(o.Title), " ")
	decorations := decorationLines(o)

	for keep := len(decorations); keep >= 0; keep-- {
		full := composeMessage(alertHeadline, title, decorations[:keep], o.URL)
		if utf8.RuneCountInString(full) <= maxLen {
			return full
		}

		budget := maxLen - utf8.RuneCountInString(composeMessage(alertHeadline, "", decorations[:keep], o.URL)) - 1
		if budget >= minTitleRunes || (keep == 0 && budget >= 1) {
			return composeMessage(alertHeadline, truncateRunes(title, budget), decorations[:keep], o.URL)
		}
	}

	if msg := composeMessage(alertHeadline, "", nil, o.URL); utf8.RuneCountInString(msg) <= maxLen {
		return msg
	}
	return o.URL
}

// decorationLines lists optional lines in order of importance.
func decorationLines(o entity.RankedOpportunity) []string {
	var lines []string
	if o.Deadline != nil {
		lines = append(lines, "⏰ Deadline: "+o.Deadline.UTC().Format("Jan 2, 2006"))
	} else {
		lines = append(lines, "⏰ Deadline: pending")
	}
	if o.EstimatedValue != nil {
		lines = append(lines, "💰 Value: "+FormatMoney(*o.EstimatedValue))
	}
	if o.SetAside != "" && o.SetAside != entity.SetAsideOpen && o.SetAside != entity.SetAsideUnknown {
		lines = append(lines, "🏷 Set-aside: "+string(o.SetAside))
	}
	if o.Agency != "" {
		lines = append(lines, "🏛 "+o.Agency)
	}
	lines = append(lines, fmt.Sprintf("⭐ Score: %.0f/100", o.Score))
	lines = append(lines, hashtags)
	return lines
}

func composeMessage(headline, title string, decorations []string, url string) string {
	parts := make([]string, 0, len(decorations)+3)
	parts = append(parts, headline)
	if title != "" {
		parts = append(parts, title)
	}
	parts = append(parts, decorations...)
	if url != "" {
		parts = append(parts, url)
	}
	return strings.Join(parts, "\n")
}

// FormatMoney renders a dollar amount compactly, e.g. $2.5M or $750K.
func FormatMoney(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.0fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit == 1 {
		return ellipsis
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + ellipsis
}
