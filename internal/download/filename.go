package download

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxTitleLen caps the sanitized title used for the destination filename.
const maxTitleLen = 100

var diacriticFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeTitle turns a video title into a safe filename stem: diacritics
// folded, filesystem-illegal characters stripped, whitespace collapsed,
// length capped. An empty result falls back to the given fallback
// (typically the video id).
func SanitizeTitle(title, fallback string) string {
	if folded, _, err := transform.String(diacriticFold, title); err == nil {
		title = folded
	}

	title = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, title)

	title = strings.Join(strings.Fields(title), " ")

	if r := []rune(title); len(r) > maxTitleLen {
		title = strings.TrimSpace(string(r[:maxTitleLen]))
	}
	if title == "" {
		return fallback
	}
	return title
}
