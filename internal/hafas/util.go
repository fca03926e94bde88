package hafas

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var germanFolds = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"ß", "ss",
)

// Slug turns a display name into a lowercase ASCII identifier,
// e.g. "Bus M41 Süd" → "bus-m41-sued".
func Slug(s string) string {
	s = germanFolds.Replace(strings.TrimSpace(s))
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = stripped
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// parseLid splits a location ID like "A=1@O=Berlin@X=13@Y=52@L=900100001@".
func parseLid(lid string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(lid, "@") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func stripLeadingZeros(id string) string {
	return strings.TrimLeft(id, "0")
}
