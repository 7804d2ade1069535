package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Characters allowed to pass through Slug unchanged.
const safeChars = "-_.() abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	underscoreRuns = regexp.MustCompile(`_+`)
	vixSuffix      = regexp.MustCompile(`(?i)\bpor\s+ViX.*`)
	verPrefix      = regexp.MustCompile(`(?i)^\s*Ver\s+`)
)

// asciiFold decomposes accented characters and strips the combining marks,
// so "Señora Acero" becomes "Senora Acero" before the safe-character filter.
func asciiFold(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, text)
	if err != nil {
		return text
	}
	return folded
}

// Slug turns arbitrary human text into a filesystem-safe, ASCII-only token.
// Unsafe runes collapse to single underscores; leading/trailing underscores
// and spaces are trimmed.
func Slug(text string) string {
	text = asciiFold(text)

	var b strings.Builder
	for _, r := range text {
		if r < 128 && strings.ContainsRune(safeChars, r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	return strings.Trim(underscoreRuns.ReplaceAllString(b.String(), "_"), "_ ")
}

// CleanSeriesTitle strips the site chrome from a catalog page title:
// a leading "Ver " and anything from "por ViX" onwards.
func CleanSeriesTitle(pageTitle string) string {
	t := vixSuffix.ReplaceAllString(pageTitle, "")
	t = verPrefix.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// Fold lowercases and ASCII-folds text for loose containment comparisons
// between collected titles and on-page headings.
func Fold(text string) string {
	return strings.ToLower(asciiFold(text))
}

// Truncate returns at most n runes of text.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
