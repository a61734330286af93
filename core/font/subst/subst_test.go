package subst

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTrackAppendOnly(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.subst")
	defer teardown()
	//
	tr := NewTracker()
	tr.Track(NewRecord("Helvetica", "Arial", MissingFile, "Hello"))
	tr.Track(NewRecord("Helvetica", "Go Regular", InsufficientCoverage, "World"))
	if tr.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", tr.Len())
	}
	recs := tr.Records()
	recs[0].OriginalFont = "mutated"
	if tr.Records()[0].OriginalFont != "Helvetica" {
		t.Error("Records must return a copy, the trail is append-only")
	}
	if recs[0].Timestamp.IsZero() {
		t.Error("records must carry a timestamp")
	}
}

func TestSummaryCounts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.subst")
	defer teardown()
	//
	tr := NewTracker()
	tr.Track(NewRecord("Helvetica", "Arial", MissingFile, ""))
	tr.Track(NewRecord("Helvetica", "Arial", MissingFile, ""))
	tr.Track(NewRecord("Futura", "Go Regular", ValidationFailed, ""))
	sum := tr.Summary()
	if sum.Total != 3 {
		t.Errorf("expected total 3, got %d", sum.Total)
	}
	if sum.ByReason["MissingFile"] != 2 {
		t.Errorf("expected 2 MissingFile, got %d", sum.ByReason["MissingFile"])
	}
	if sum.ByOriginal["Helvetica"] != 2 {
		t.Errorf("expected 2 for Helvetica, got %d", sum.ByOriginal["Helvetica"])
	}
}

func TestExportJSON(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.subst")
	defer teardown()
	//
	tr := NewTracker()
	tr.Track(NewRecord("Helvetica", "Arial", MissingFile, "Hello"))
	var buf bytes.Buffer
	if err := tr.Export(&buf, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Records []map[string]interface{} `json:"substitutions"`
		Summary Summary                  `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(doc.Records) != 1 || doc.Summary.Total != 1 {
		t.Errorf("unexpected export content: %s", buf.String())
	}
	if doc.Records[0]["reason"] != "MissingFile" {
		t.Errorf("reason must serialize by name, got %v", doc.Records[0]["reason"])
	}
}

func TestExportTextDeterministic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.subst")
	defer teardown()
	//
	tr := NewTracker()
	tr.Track(NewRecord("Zapfino", "Go Regular", ValidationFailed, "abc"))
	tr.Track(NewRecord("Arial", "Go Regular", MissingFile, "def"))
	var b1, b2 bytes.Buffer
	if err := tr.Export(&b1, FormatText); err != nil {
		t.Fatal(err)
	}
	if err := tr.Export(&b2, FormatText); err != nil {
		t.Fatal(err)
	}
	if b1.String() != b2.String() {
		t.Error("repeated text exports must be identical")
	}
	if !strings.Contains(b1.String(), "MissingFile") {
		t.Errorf("text export must name reasons:\n%s", b1.String())
	}
}

func TestSeverity(t *testing.T) {
	rec := NewRecord("Helvetica", "Arial", MissingFile, "")
	if rec.Severity() != SeverityWarning {
		t.Error("ordinary substitution must be a warning")
	}
	rec.LastResort = true
	if rec.Severity() != SeverityHighWarning {
		t.Error("baseline-of-last-resort must be elevated")
	}
}

func TestTruncateSampleGraphemeSafe(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.subst")
	defer teardown()
	//
	if got := TruncateSample("short", 32); got != "short" {
		t.Errorf("short samples must pass through, got %q", got)
	}
	// family emoji is one grapheme cluster of many bytes; a cut must not
	// land inside it
	text := strings.Repeat("a", 30) + "\U0001F468\u200d\U0001F469\u200d\U0001F466" + "tail"
	got := TruncateSample(text, 32)
	trimmed := strings.TrimSuffix(got, "…")
	if trimmed != strings.Repeat("a", 30) {
		t.Errorf("expected cut before the emoji cluster, got %q", trimmed)
	}
}
