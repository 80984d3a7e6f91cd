package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters without a canonical decomposition are folded by hand.
var foldReplacer = strings.NewReplacer("ı", "i", "ß", "ss", "ø", "o", "æ", "ae")

// Generate creates a URL-friendly slug from the given name. Diacritics are
// stripped so that category tokens stay ASCII.
//
// Examples:
//   - "Google Pixel" → "google-pixel"
//   - "Huawei  P30 / Pro" → "huawei-p30-pro"
//   - "Téléphone" → "telephone"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = foldReplacer.Replace(slug)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, slug); err == nil {
		slug = folded
	}

	// Replace runs of non-alphanumeric characters with a single hyphen
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
