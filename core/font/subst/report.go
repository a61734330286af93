package subst

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/docregen/fontresolve/core"
	"github.com/emirpasic/gods/maps/treemap"
)

// Summary aggregates a run's substitutions.
type Summary struct {
	Total      int            `json:"total"`
	ByReason   map[string]int `json:"by_reason"`
	ByOriginal map[string]int `json:"by_original_font"`
}

// Summary computes the aggregate view of the tracked records.
func (t *Tracker) Summary() Summary {
	sum := Summary{
		Total:      len(t.records),
		ByReason:   map[string]int{},
		ByOriginal: map[string]int{},
	}
	for _, rec := range t.records {
		sum.ByReason[rec.Reason.String()]++
		sum.ByOriginal[rec.OriginalFont]++
	}
	return sum
}

// Format selects an export serialization.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

// report is the machine-readable export document.
type report struct {
	Records []Record `json:"substitutions"`
	Summary Summary  `json:"summary"`
}

// Export serializes the tracked records plus summary. FormatJSON produces
// the machine-readable report consumed by the validation layer, FormatText
// a human-readable rendition.
func (t *Tracker) Export(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report{Records: t.Records(), Summary: t.Summary()})
	case FormatText:
		return t.exportText(w)
	}
	return core.Error(core.EINVALID, "unknown report format %d", format)
}

// exportText writes the human-readable report. Map-derived sections are
// ordered through a treemap so that repeated exports are byte-identical.
func (t *Tracker) exportText(w io.Writer) (err error) {
	sum := t.Summary()
	write := func(format string, v ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, v...)
		}
	}
	write("font substitutions: %d\n", sum.Total)
	for _, rec := range t.records {
		write("  [%s] %q -> %q (%s)", rec.Severity(), rec.OriginalFont,
			rec.SubstitutedFont, rec.Reason)
		if rec.ElementID != "" {
			write(" at element %s", rec.ElementID)
		}
		if rec.PageNumber > 0 {
			write(" on page %d", rec.PageNumber)
		}
		if rec.TextSample != "" {
			write(" text %q", rec.TextSample)
		}
		write("\n")
	}
	if sum.Total == 0 {
		return
	}
	write("by reason:\n")
	byReason := treemap.NewWithStringComparator()
	for reason, n := range sum.ByReason {
		byReason.Put(reason, n)
	}
	byReason.Each(func(key interface{}, value interface{}) {
		write("  %-22s %d\n", key, value)
	})
	write("by original font:\n")
	byFont := treemap.NewWithStringComparator()
	for name, n := range sum.ByOriginal {
		byFont.Put(name, n)
	}
	byFont.Each(func(key interface{}, value interface{}) {
		write("  %-22s %d\n", key, value)
	})
	return
}
