package fontregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadFontCaches(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.fonts")
	defer teardown()
	//
	dir := t.TempDir()
	fpath := filepath.Join(dir, "Go-Regular.ttf")
	if err := os.WriteFile(fpath, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	fr := NewRegistry()
	f1, err := fr.LoadFont(fpath)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := fr.LoadFont(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("identical content must be served from the cache")
	}
	if fr.Len() != 1 {
		t.Errorf("expected 1 cached font, got %d", fr.Len())
	}
}

func TestLoadFontSeesContentChange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.fonts")
	defer teardown()
	//
	dir := t.TempDir()
	fpath := filepath.Join(dir, "font.ttf")
	if err := os.WriteFile(fpath, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	fr := NewRegistry()
	f1, err := fr.LoadFont(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fpath, gobold.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	f2, err := fr.LoadFont(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if f1 == f2 {
		t.Error("changed content must not be served from the cache")
	}
	if fr.Len() != 2 {
		t.Errorf("expected 2 cached fonts, got %d", fr.Len())
	}
}

func TestLoadFontMissing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.fonts")
	defer teardown()
	//
	fr := NewRegistry()
	if _, err := fr.LoadFont(filepath.Join(t.TempDir(), "nope.ttf")); err == nil {
		t.Error("expected an error for a missing font file")
	}
}
