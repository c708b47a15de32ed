package ingest

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CollectionName derives a stable collection name from a filename: the stem
// lowercased with every non-alphanumeric run collapsed to one underscore.
// Diacritics are folded (NFKD decomposition with combining marks dropped) so
// "Résumé.pdf" and "Resume.pdf" land in the same collection.
func CollectionName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var b strings.Builder
	pendingSep := false
	for _, r := range norm.NFKD.String(stem) {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark from decomposition
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		if r >= 'A' && r <= 'Z' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		pendingSep = true
	}

	name := b.String()
	if name == "" {
		return "collection"
	}
	return name
}
