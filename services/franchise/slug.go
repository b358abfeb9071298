package franchise

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the cache key for a franchise name: ASCII-transliterate,
// lowercase, collapse every run of non-alphanumeric characters to a single
// hyphen, prefix "ai-". The read and write paths must agree on this exactly
// or cache lookups silently miss.
func Slugify(name string) string {
	s := strings.ToLower(unidecode.Unidecode(name))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return "ai-" + s
}
