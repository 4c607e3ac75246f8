// Package format converts raw record fields into display-ready strings and
// styles. Pure presentation; no decision logic lives here.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/rules"
)

// Currency renders an amount as US dollars, e.g. "$1,234.56".
func Currency(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatFloat(amount, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteString(fracPart)
	return b.String()
}

// Date renders a calendar date as "Jan 2, 2006". Zero dates render empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// Status badge styles, one per lifecycle state.
var (
	badgeNew       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	badgeMatched   = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	badgeCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	badgeDuplicate = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	badgeDefault   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// StatusStyle returns the badge style for an import status.
func StatusStyle(s model.ImportStatus) lipgloss.Style {
	switch s {
	case model.StatusNew:
		return badgeNew
	case model.StatusContactMatched:
		return badgeMatched
	case model.StatusCompleted:
		return badgeCompleted
	case model.StatusDuplicate:
		return badgeDuplicate
	default:
		return badgeDefault
	}
}

// StatusBadge renders a styled status label.
func StatusBadge(s model.ImportStatus) string {
	return StatusStyle(s).Render(string(s))
}

// Confidence band styles.
var (
	bandHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	bandMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	bandLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// ConfidenceStyle returns the style for a match confidence score.
func ConfidenceStyle(score float64) lipgloss.Style {
	switch rules.BandFor(score) {
	case rules.BandHigh:
		return bandHigh
	case rules.BandMedium:
		return bandMedium
	default:
		return bandLow
	}
}

// Confidence renders a score as a styled percentage, e.g. "92%".
func Confidence(score float64) string {
	return ConfidenceStyle(score).Render(strconv.FormatFloat(score, 'f', 0, 64) + "%")
}
