package fontstore

import (
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"github.com/docregen/fontresolve/core/font"
)

// Record is the cached description of one discovered font file. Records are
// immutable once created; a re-scan replaces them wholesale.
type Record struct {
	Name        string      `json:"name"`
	Family      string      `json:"family"`
	Style       string      `json:"style"`
	Weight      int         `json:"weight"`
	Italic      bool        `json:"italic"`
	Format      font.Format `json:"format"`
	Path        string      `json:"path"`
	ContentHash string      `json:"content_hash"`
	GlyphCount  int         `json:"glyph_count"`
	LastScanned time.Time   `json:"last_scanned"`
}

// FamilyKey is the secondary index key for family+style lookup.
func (rec Record) FamilyKey() string {
	key := font.NormalizeFontname(rec.Family)
	if rec.Italic {
		key += "-italic"
	}
	switch {
	case rec.Weight >= 600:
		key += "-bold"
	case rec.Weight > 0 && rec.Weight <= 300:
		key += "-light"
	}
	return key
}

// HashBytes computes the content hash used for change detection. FNV-1a is
// fast and good enough as a change-detection key; this is not a security
// control.
func HashBytes(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// HashFile computes the content hash of a file on disk.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashString hashes a string key, e.g. for memoizing per-text results.
func HashString(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
