/*
Package coverage quantifies how well a font can render a specific text.

Coverage is a pure function of (font file content, text): identical inputs
always produce identical ratios. The analyzer therefore memoizes ratios
keyed by content hash and text hash.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package coverage

import (
	"sync"
	"unicode"

	"github.com/docregen/fontresolve/core/font"
	"github.com/docregen/fontresolve/core/font/fontstore"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/unicode/norm"
)

// tracer writes to trace with key 'fontresolve.coverage'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.coverage")
}

// Result holds the codepoint sets for one (font, text) pair.
type Result struct {
	FontName string
	Required map[rune]struct{}
	Covered  map[rune]struct{}
}

// Ratio returns the fraction of required codepoints the font covers.
// A text without renderable requirements is trivially fully covered.
func (r Result) Ratio() float64 {
	if len(r.Required) == 0 {
		return 1.0
	}
	return float64(len(r.Covered)) / float64(len(r.Required))
}

// Missing lists the codepoints the font cannot render.
func (r Result) Missing() []rune {
	var missing []rune
	for cp := range r.Required {
		if _, ok := r.Covered[cp]; !ok {
			missing = append(missing, cp)
		}
	}
	return missing
}

// RequiredCodepoints computes the de-duplicated requirement set for a text.
// The text is NFC-normalized first; whitespace and control characters carry
// no glyph requirement.
func RequiredCodepoints(text string) map[rune]struct{} {
	required := map[rune]struct{}{}
	for _, cp := range norm.NFC.String(text) {
		if unicode.IsSpace(cp) || unicode.IsControl(cp) {
			continue
		}
		required[cp] = struct{}{}
	}
	return required
}

type memoKey struct {
	contentHash string
	textHash    string
}

// Analyzer computes glyph coverage, memoizing ratios per (font content,
// text) pair. The zero value is ready to use.
type Analyzer struct {
	mu   sync.RWMutex
	memo map[memoKey]float64
}

// New creates an Analyzer with an empty memo.
func New() *Analyzer {
	return &Analyzer{memo: map[memoKey]float64{}}
}

// Coverage intersects the text's requirement set with the font's character
// map.
func (a *Analyzer) Coverage(f *font.ScalableFont, text string) Result {
	res := Result{
		FontName: f.Fontname,
		Required: RequiredCodepoints(text),
		Covered:  map[rune]struct{}{},
	}
	var buf sfnt.Buffer
	for cp := range res.Required {
		gid, err := f.SFNT.GlyphIndex(&buf, cp)
		if err != nil {
			tracer().Debugf("cmap lookup failed for %#U: %v", cp, err)
			continue
		}
		if gid != 0 { // glyph 0 is .notdef
			res.Covered[cp] = struct{}{}
		}
	}
	return res
}

// CoverageFile loads a font file and computes its coverage for text.
func (a *Analyzer) CoverageFile(path string, text string) (Result, error) {
	f, err := font.LoadOpenTypeFont(path)
	if err != nil {
		return Result{}, err
	}
	return a.Coverage(f, text), nil
}

// Ratio returns the memoized coverage ratio for a loaded font and a text.
func (a *Analyzer) Ratio(f *font.ScalableFont, text string) float64 {
	key := memoKey{
		contentHash: fontstore.HashBytes(f.Binary),
		textHash:    fontstore.HashString(text),
	}
	a.mu.RLock()
	ratio, ok := a.memo[key]
	a.mu.RUnlock()
	if ok {
		return ratio
	}
	ratio = a.Coverage(f, text).Ratio()
	a.mu.Lock()
	if a.memo == nil {
		a.memo = map[memoKey]float64{}
	}
	a.memo[key] = ratio
	a.mu.Unlock()
	return ratio
}
