/*
Package font holds the font model shared by the resolution pipeline.

A note on nomenclature: a "typeface" is a family of fonts, e.g. "Helvetica".
A "scalable font" is one variant of a typeface with a certain weight and
slant, e.g. "Helvetica regular". Resolution always operates on scalable
fonts; sizing is the renderer's business.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package font

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/npillmayer/schuko/tracing"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// tracer writes to trace with key 'fontresolve.fonts'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.fonts")
}

// Format denotes the container format of a font file.
type Format string

// Font container formats recognized by the scanner and validator.
const (
	FormatTTF     Format = "TTF"
	FormatOTF     Format = "OTF"
	FormatUnknown Format = ""
)

// DetectFormat sniffs the sfnt signature of a font binary. TrueType
// collections (ttcf) are reported as unknown: TTC is not yet supported.
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch string(data[:4]) {
	case "\x00\x01\x00\x00", "true":
		return FormatTTF
	case "OTTO":
		return FormatOTF
	}
	return FormatUnknown
}

// ScalableFont is a font variant, loaded from a TTF or OTF file.
type ScalableFont struct {
	Fontname string
	Filepath string     // file path, or "internal" for built-ins
	Binary   []byte     // raw data
	SFNT     *sfnt.Font // the font's container
}

// LoadOpenTypeFont loads an OpenType font (TTF or OTF) from a file.
func LoadOpenTypeFont(fontfile string) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	f, err := ParseOpenTypeFont(bytez)
	if err != nil {
		return nil, err
	}
	f.Filepath = fontfile
	return f, nil
}

// ParseOpenTypeFont interprets a byte sequence as an OpenType font.
func ParseOpenTypeFont(fbytes []byte) (f *ScalableFont, err error) {
	f = &ScalableFont{Binary: fbytes}
	f.SFNT, err = sfnt.Parse(f.Binary)
	if err != nil {
		return nil, err
	}
	f.Fontname, _ = f.SFNT.Name(nil, sfnt.NameIDFull)
	return
}

// Descriptor describes a font variant without loading it.
type Descriptor struct {
	Family   string   `json:"family"`
	Path     string   `json:"path"`
	Variants []string `json:"variants"`
}

// --- Baseline font ---------------------------------------------------------

// BaselineFontName is the name of the engine built-in font of last resort.
const BaselineFontName = "Go Regular"

// BaselineFont returns the font used when every other candidate failed.
// It is always present. Currently we use Go Regular.
func BaselineFont() *ScalableFont {
	baselineFontLoading.Do(func() {
		baselineFont = loadBaselineFont()
	})
	return baselineFont
}

var baselineFontLoading sync.Once

var baselineFont *ScalableFont

func loadBaselineFont() *ScalableFont {
	var err error
	gofont := &ScalableFont{
		Fontname: BaselineFontName,
		Filepath: "internal",
		Binary:   goregular.TTF,
	}
	gofont.SFNT, err = sfnt.Parse(gofont.Binary)
	if err != nil {
		panic("cannot load baseline font") // this cannot happen
	}
	return gofont
}

// --- Name normalization ----------------------------------------------------

// NormalizeFontname derives the index key for a font name: surrounding
// whitespace trimmed, inner whitespace runs collapsed to '_', a trailing
// file extension stripped, everything lower-cased.
func NormalizeFontname(fname string) string {
	fname = strings.Join(strings.Fields(fname), "_")
	if dot := strings.LastIndex(fname, "."); dot > 0 {
		fname = fname[:dot]
	}
	return strings.ToLower(fname)
}

// StyleWeightKey builds a family+style index key, used as the secondary
// lookup key when an exact font name misses.
func StyleWeightKey(family string, style xfont.Style, weight xfont.Weight) string {
	key := NormalizeFontname(family)
	switch style {
	case xfont.StyleItalic, xfont.StyleOblique:
		key += "-italic"
	}
	switch weight {
	case xfont.WeightLight, xfont.WeightExtraLight:
		key += "-light"
	case xfont.WeightBold, xfont.WeightExtraBold, xfont.WeightSemiBold:
		key += "-bold"
	}
	return key
}

// GuessStyleAndWeight trys to guess a font's style and weight from the
// font's file name.
func GuessStyleAndWeight(fontfilename string) (xfont.Style, xfont.Weight) {
	fontfilename = path.Base(fontfilename)
	ext := path.Ext(fontfilename)
	fontfilename = strings.ToLower(fontfilename[:len(fontfilename)-len(ext)])
	s := strings.Split(fontfilename, "-")
	if len(s) > 1 {
		switch s[len(s)-1] {
		case "light", "xlight":
			return xfont.StyleNormal, xfont.WeightLight
		case "normal", "medium", "regular", "r":
			return xfont.StyleNormal, xfont.WeightNormal
		case "bold", "b":
			return xfont.StyleNormal, xfont.WeightBold
		case "xbold", "black":
			return xfont.StyleNormal, xfont.WeightExtraBold
		}
	}
	style, weight := xfont.StyleNormal, xfont.WeightNormal
	if strings.Contains(fontfilename, "italic") {
		style = xfont.StyleItalic
	}
	if strings.Contains(fontfilename, "light") {
		weight = xfont.WeightLight
	}
	if strings.Contains(fontfilename, "bold") {
		weight = xfont.WeightBold
	}
	return style, weight
}

// WeightValue maps an x/image font weight onto the CSS 100…900 scale.
func WeightValue(weight xfont.Weight) int {
	return int(weight)*100 + 400
}

// --- Variant matching ------------------------------------------------------

// MatchConfidence is a type for expressing the confidence level of font matching.
type MatchConfidence int

const (
	NoConfidence      MatchConfidence = 0
	LowConfidence     MatchConfidence = 2
	HighConfidence    MatchConfidence = 3
	PerfectConfidence MatchConfidence = 4
)

// ClosestMatch scans a list of font descriptors and returns the closest match
// for a given set of parameters.
// If no variant matches, returns `NoConfidence`.
func ClosestMatch(fdescs []Descriptor, pattern string, style xfont.Style,
	weight xfont.Weight) (match Descriptor, variant string, confidence MatchConfidence) {
	//
	pattern = strings.ToLower(pattern)
	for _, fdesc := range fdescs {
		if !strings.Contains(strings.ToLower(fdesc.Family), pattern) {
			continue
		}
		for _, v := range fdesc.Variants {
			s := MatchStyle(v, style)
			w := MatchWeight(v, weight)
			if (s+w)/2 > confidence {
				confidence = (s + w) / 2
				variant = v
				match = fdesc
			}
		}
	}
	return
}

// MatchStyle trys to match a font-variant to a given style.
func MatchStyle(variantName string, style xfont.Style) MatchConfidence {
	variantName = strings.ToLower(variantName)
	switch style {
	case xfont.StyleNormal:
		switch variantName {
		case "regular", "400":
			return PerfectConfidence
		case "100", "200", "300", "500":
			return HighConfidence
		}
		return NoConfidence
	case xfont.StyleItalic:
		if strings.Contains(variantName, "italic") {
			return PerfectConfidence
		}
		if strings.Contains(variantName, "obliq") {
			return HighConfidence
		}
		return NoConfidence
	case xfont.StyleOblique:
		if strings.Contains(variantName, "obliq") {
			return PerfectConfidence
		}
		if strings.Contains(variantName, "italic") {
			return HighConfidence
		}
		return NoConfidence
	}
	return NoConfidence
}

// MatchWeight trys to match a font-variant to a given weight.
func MatchWeight(variantName string, weight xfont.Weight) MatchConfidence {
	/* from https://pkg.go.dev/golang.org/x/image/font
	WeightThin       Weight = -3 // CSS font-weight value 100.
	WeightExtraLight Weight = -2 // CSS font-weight value 200.
	WeightLight      Weight = -1 // CSS font-weight value 300.
	WeightNormal     Weight = +0 // CSS font-weight value 400.
	WeightMedium     Weight = +1 // CSS font-weight value 500.
	WeightSemiBold   Weight = +2 // CSS font-weight value 600.
	WeightBold       Weight = +3 // CSS font-weight value 700.
	WeightExtraBold  Weight = +4 // CSS font-weight value 800.
	WeightBlack      Weight = +5 // CSS font-weight value 900.
	*/
	if fmt.Sprintf("%d", WeightValue(weight)) == variantName {
		return PerfectConfidence
	}
	switch variantName {
	case "regular", "400", "italic", "oblique", "normal", "text":
		switch weight {
		case xfont.WeightNormal, xfont.WeightMedium:
			return PerfectConfidence
		case xfont.WeightThin, xfont.WeightExtraLight, xfont.WeightLight:
			return LowConfidence
		}
		return NoConfidence
	case "100", "200", "300":
		switch weight {
		case xfont.WeightThin, xfont.WeightExtraLight, xfont.WeightLight:
			return PerfectConfidence
		case xfont.WeightNormal, xfont.WeightMedium:
			return LowConfidence
		}
		return NoConfidence
	case "500":
		switch weight {
		case xfont.WeightMedium:
			return PerfectConfidence
		case xfont.WeightSemiBold:
			return HighConfidence
		case xfont.WeightNormal, xfont.WeightBold:
			return LowConfidence
		}
		return NoConfidence
	case "bold", "700":
		switch weight {
		case xfont.WeightBold:
			return PerfectConfidence
		case xfont.WeightSemiBold, xfont.WeightExtraBold:
			return HighConfidence
		}
		return NoConfidence
	case "extrabold", "600", "800", "900":
		switch weight {
		case xfont.WeightSemiBold:
			return LowConfidence
		case xfont.WeightBold:
			return HighConfidence
		}
		return NoConfidence
	}
	return NoConfidence
}
