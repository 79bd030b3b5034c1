package geocache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const keyPrefix = "geofence:forward:"

// foldQuery lowercases, strips accents and collapses whitespace so that
// "São  Paulo" and "sao paulo" share a cache entry.
func foldQuery(text string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(text),
	)
	if err != nil {
		folded = strings.ToLower(text)
	}
	return strings.Join(strings.Fields(folded), " ")
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(foldQuery(text)))
	return keyPrefix + hex.EncodeToString(h[:])
}
