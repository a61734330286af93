/*
Package subst keeps the audit trail of font substitutions.

Every time resolution returns a font other than the one requested, exactly
one Record is appended to the run's Tracker. Records are never edited or
deleted; reports are derived views.

A Tracker is owned by a single processing run. Concurrent runs each get
their own Tracker, so no locking happens here.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package subst

import (
	"strings"
	"sync"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/uax/grapheme"
	"github.com/npillmayer/uax/segment"
)

// tracer writes to trace with key 'fontresolve.subst'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.subst")
}

// Reason classifies why a substitution happened.
type Reason int

const (
	MissingFile Reason = iota
	ValidationFailed
	InsufficientCoverage
	RegistrationRejected
)

func (r Reason) String() string {
	switch r {
	case MissingFile:
		return "MissingFile"
	case ValidationFailed:
		return "ValidationFailed"
	case InsufficientCoverage:
		return "InsufficientCoverage"
	case RegistrationRejected:
		return "RegistrationRejected"
	}
	return "Unknown"
}

// MarshalJSON serializes a reason by name, keeping reports readable.
func (r Reason) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// Severity grades a substitution for report consumers.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityHighWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityHighWarning:
		return "warning-high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Record documents one substitution decision. Append-only.
type Record struct {
	OriginalFont    string    `json:"original_font"`
	SubstitutedFont string    `json:"substituted_font"`
	ElementID       string    `json:"element_id,omitempty"`
	PageNumber      int       `json:"page_number,omitempty"`
	Reason          Reason    `json:"reason"`
	TextSample      string    `json:"text_sample"`
	Timestamp       time.Time `json:"timestamp"`
	// LastResort marks a substitution that reached the baseline font
	// because every explicit fallback candidate failed.
	LastResort bool `json:"last_resort,omitempty"`
}

// Severity grades this record: reaching the baseline font as a last resort
// is elevated; everything else tracked here is an ordinary warning. (The
// baseline itself failing never produces a record, it produces an error.)
func (rec Record) Severity() Severity {
	if rec.LastResort {
		return SeverityHighWarning
	}
	return SeverityWarning
}

// SampleLimit is the byte budget for text samples in records.
const SampleLimit = 32

// NewRecord creates a substitution record with a truncated text sample and
// the current time.
func NewRecord(original, substituted string, reason Reason, text string) Record {
	return Record{
		OriginalFont:    original,
		SubstitutedFont: substituted,
		Reason:          reason,
		TextSample:      TruncateSample(text, SampleLimit),
		Timestamp:       time.Now(),
	}
}

var graphemeClassesSetup sync.Once

// TruncateSample shortens a text sample to at most limit bytes, cutting at
// a grapheme boundary so no cluster is split mid-way.
func TruncateSample(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	graphemeClassesSetup.Do(grapheme.SetupGraphemeClasses)
	seg := segment.NewSegmenter(grapheme.NewBreaker(1))
	seg.Init(strings.NewReader(text))
	var b strings.Builder
	for seg.Next() {
		g := seg.Bytes()
		if b.Len()+len(g) > limit {
			break
		}
		b.Write(g)
	}
	return b.String() + "…"
}

// Tracker is the append-only per-run list of substitution records.
type Tracker struct {
	records []Record
}

// NewTracker creates an empty Tracker for one processing run.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track appends a record to the run's audit trail.
func (t *Tracker) Track(rec Record) {
	tracer().Infof("substituting font %q -> %q (%s)",
		rec.OriginalFont, rec.SubstitutedFont, rec.Reason)
	t.records = append(t.records, rec)
}

// Records returns a copy of the audit trail in tracking order.
func (t *Tracker) Records() []Record {
	return append([]Record{}, t.records...)
}

// Len returns the number of tracked substitutions.
func (t *Tracker) Len() int {
	return len(t.records)
}
