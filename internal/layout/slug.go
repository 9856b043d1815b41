package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength caps slugged action descriptions in log filenames.
const MaxSlugLength = 100

// MaxEventNameLength caps cleaned event names in event filenames.
const MaxEventNameLength = 40

// Slug converts free text to a safe, lowercase, underscore-separated
// filename fragment. Input is NFC-normalized first so visually
// identical descriptions from different scrapes slug identically.
// Punctuation (including dashes) is stripped, whitespace runs collapse
// to a single underscore, and the result is truncated to
// MaxSlugLength.
func Slug(text string) string {
	text = strings.ToLower(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "_")
	slug = strings.Trim(slug, "_")
	return truncateRunes(slug, MaxSlugLength)
}

// EventName shortens an event name for its filename: runs of
// non-word characters become single underscores and the result is
// truncated to MaxEventNameLength.
func EventName(name string) string {
	name = strings.ToLower(norm.NFC.String(name))

	var b strings.Builder
	b.Grow(len(name))
	inSep := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			inSep = false
		} else if !inSep {
			b.WriteRune('_')
			inSep = true
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	return truncateRunes(cleaned, MaxEventNameLength)
}

// truncateRunes caps s at max runes. Byte slicing would split a
// multi-byte rune and leave invalid UTF-8 in a filename.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
