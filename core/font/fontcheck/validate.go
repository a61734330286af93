package fontcheck

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
)

// Metadata is the fragment of font information a successful validation
// extracts from the font's tables.
type Metadata struct {
	FullName   string
	Family     string
	Style      string
	Weight     int
	Italic     bool
	Format     font.Format
	GlyphCount int
}

// Result is the outcome of validating one candidate file. It is never
// mutated after construction.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Meta     *Metadata
}

func failure(msgs ...string) Result {
	return Result{Valid: false, Errors: msgs}
}

// Kinds of parse failure.
const (
	failureCorrupt     = "corrupt"
	failureUnsupported = "unsupported"
	failureTruncated   = "truncated"
)

// Checker validates candidate font files. A zero Checker is usable; a
// MaxFileSize of 0 means no size limit.
type Checker struct {
	MaxFileSize int64
}

// New creates a Checker with a sensible file-size guard.
func New() *Checker {
	return &Checker{MaxFileSize: 64 << 20}
}

// ValidateFile checks that path points at a genuine, parseable font and
// extracts its metadata. Checks run in order; the first hard failure ends
// validation.
func (c *Checker) ValidateFile(path string) Result {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			tracer().Infof("font file does not exist: %s", path)
			return failure(fmt.Sprintf("file does not exist: %s", path))
		}
		tracer().Infof("font file not statable: %v", err)
		return failure(fmt.Sprintf("file not accessible: %v", err))
	}
	if !fi.Mode().IsRegular() {
		return failure(fmt.Sprintf("not a regular file: %s", path))
	}
	if fi.Size() == 0 {
		return failure(fmt.Sprintf("file is empty: %s", path))
	}
	if c.MaxFileSize > 0 && fi.Size() > c.MaxFileSize {
		return failure(fmt.Sprintf("file exceeds size limit (%d bytes): %s", fi.Size(), path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failure(fmt.Sprintf("file not readable: %v", err))
	}
	return c.ValidateBytes(path, data)
}

// ValidateBytes validates an in-memory font binary. The path argument is
// used for messages and the filename style/weight heuristic only.
func (c *Checker) ValidateBytes(path string, data []byte) Result {
	format := font.DetectFormat(data)
	if format == font.FormatUnknown {
		if len(data) >= 4 && string(data[:4]) == "ttcf" {
			return failure(fmt.Sprintf("TrueType collections not supported: %s", path))
		}
		return failure(fmt.Sprintf("no sfnt/OpenType signature: %s", path))
	}
	sf, kind, err := parseGuarded(data)
	if err != nil {
		tracer().Infof("font %s fails to parse (%s): %v", path, kind, err)
		return failure(fmt.Sprintf("%s font: %v", kind, err))
	}
	meta := c.extractMetadata(path, sf, format)
	res := Result{Valid: true, Meta: meta}
	if meta.Family == "" {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("font has no usable family name entry: %s", path))
	}
	return res
}

// parseGuarded parses a font binary, converting panics from the parser into
// classified errors. The sfnt parser operates on untrusted input, so a
// recover guard is mandatory here.
func parseGuarded(data []byte) (sf *sfnt.Font, kind string, err error) {
	defer func() {
		if r := recover(); r != nil {
			kind = failureCorrupt
			err = core.Error(core.EINVALID, "font parser panic: %v", r)
			tracer().Errorf("recovered from font parser panic: %v", r)
		}
	}()
	sf, err = sfnt.Parse(data)
	if err != nil {
		kind = classifyParseError(err)
		err = core.WrapError(err, core.EINVALID, "cannot parse font: %v", err)
	}
	return
}

// classifyParseError buckets a parser error into corrupt, unsupported or
// truncated. The sfnt package reports all three through error strings.
func classifyParseError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		return failureTruncated
	case strings.Contains(msg, "unsupported"):
		return failureUnsupported
	case strings.Contains(msg, "eof") || strings.Contains(msg, "too short") ||
		strings.Contains(msg, "bounds"):
		return failureTruncated
	}
	return failureCorrupt
}

func (c *Checker) extractMetadata(path string, sf *sfnt.Font, format font.Format) *Metadata {
	meta := &Metadata{
		Format:     format,
		GlyphCount: sf.NumGlyphs(),
	}
	var buf sfnt.Buffer
	meta.FullName, _ = sf.Name(&buf, sfnt.NameIDFull)
	meta.Family, _ = sf.Name(&buf, sfnt.NameIDFamily)
	meta.Style, _ = sf.Name(&buf, sfnt.NameIDSubfamily)
	style, weight := font.GuessStyleAndWeight(path)
	if meta.Style != "" {
		sub := strings.ToLower(meta.Style)
		meta.Italic = strings.Contains(sub, "italic") || strings.Contains(sub, "oblique")
		switch {
		case strings.Contains(sub, "black") || strings.Contains(sub, "extrabold"):
			meta.Weight = 800
		case strings.Contains(sub, "bold"):
			meta.Weight = 700
		case strings.Contains(sub, "light"):
			meta.Weight = 300
		default:
			meta.Weight = 400
		}
	} else {
		// no subfamily entry, fall back to the filename heuristic
		meta.Style = "regular"
		meta.Italic = style != xfont.StyleNormal
		meta.Weight = font.WeightValue(weight)
	}
	if meta.FullName == "" {
		meta.FullName = meta.Family
	}
	return meta
}
