// Package normalize provides text normalization shared by the card model and the query compiler.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips combining marks: "Dandân" becomes "Dandan".
// Ligatures and other letters without a decomposition are kept as is.
func RemoveDiacritics(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key returns the case-insensitive lookup key for names and set codes.
func Key(s string) string {
	return strings.ToLower(s)
}

// NameKey returns the key for namesake lookups: diacritics removed, case folded.
func NameKey(s string) string {
	return Key(RemoveDiacritics(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8RuneSelf {
			return false
		}
	}
	return true
}

const utf8RuneSelf = 0x80

// languageNameToCode maps dataset language names to the short codes used for
// localized index fields.
//
//nolint:gochecknoglobals // Static lookup table
var languageNameToCode = map[string]string{
	"english":             "en",
	"russian":             "ru",
	"german":              "de",
	"french":              "fr",
	"italian":             "it",
	"spanish":             "es",
	"portuguese":          "pt",
	"portuguese (brazil)": "pt",
	"japanese":            "jp",
	"korean":              "kr",
	"chinese simplified":  "cn",
	"chinese traditional": "tw",
}

// Languages lists the supported display languages, English first.
//
//nolint:gochecknoglobals // Static lookup table
var Languages = []string{"en", "ru", "de", "fr", "it", "es", "pt", "jp", "kr", "cn", "tw"}

// LanguageCode maps a dataset language name ("Chinese Simplified") or a code
// ("cn") to a supported language code. ok is false for unsupported languages.
func LanguageCode(name string) (code string, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageNameToCode[name]; ok {
		return code, true
	}
	for _, lang := range Languages {
		if lang == name {
			return lang, true
		}
	}
	return "", false
}
