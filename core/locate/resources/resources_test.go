package resources

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docregen/fontresolve/core"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	xfont "golang.org/x/image/font"
)

// Tests in this file work offline: the Google Fonts service response is a
// canned fragment, and discovery tests exercise only the disabled path.

const exampleRespFragm string = `
{
    "kind": "webfonts#webfontList",
    "items": [
        {
            "kind": "webfonts#webfont",
            "family": "Anonymous Pro",
            "variants": [
                "regular",
                "italic",
                "700",
                "700italic"
            ],
            "subsets": [
                "greek",
                "greek-ext",
                "cyrillic-ext",
                "latin-ext",
                "latin",
                "cyrillic"
            ],
            "version": "v3",
            "lastModified": "2012-07-25",
            "files": {
                "regular": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/Zhfjj_gat3waL4JSju74E-V_5zh5b-_HiooIRUBwn1A.ttf",
                "italic": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/q0u6LFHwttnT_69euiDbWKwIsuKDCXG0NQm7BvAgx-c.ttf",
                "700": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/WDf5lZYgdmmKhO8E1AQud--Cz_5MeePnXDAcLNWyBME.ttf",
                "700italic": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/_fVr_XGln-cetWSUc-JpfA1LL9bfs7wyIp6F8OC9RxA.ttf"
            }
        },
        {
            "kind": "webfonts#webfont",
            "family": "Antic",
            "variants": [
                "regular"
            ],
            "subsets": [
                "latin"
            ],
            "version": "v4",
            "lastModified": "2012-07-25",
            "files": {
                "regular": "http://themes.googleusercontent.com/static/fonts/antic/v4/hEa8XCNM7tXGzD0Uk0AipA.ttf"
            }
        }
    ]
}
`

func decodeFragment(t *testing.T) googleFontsList {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(exampleRespFragm))
	var list googleFontsList
	if err := dec.Decode(&list); err != nil {
		t.Fatal(err)
	}
	return list
}

func TestGoogleRespDecode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.resources")
	defer teardown()
	//
	list := decodeFragment(t)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 font families in fragment, got %d", len(list.Items))
	}
	if list.Items[0].Family != "Anonymous Pro" {
		t.Errorf("unexpected family: %s", list.Items[0].Family)
	}
	if list.Items[0].Files["700italic"] == "" {
		t.Error("expected a file URL for variant 700italic")
	}
	listGoogleFonts(list, ".*")
}

func TestMatchingVariant(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.resources")
	defer teardown()
	//
	list := decodeFragment(t)
	anonymous, antic := list.Items[0], list.Items[1]
	if v, ok := matchingVariant(anonymous, xfont.StyleItalic, xfont.WeightBold); !ok || v != "700italic" {
		t.Errorf("expected variant 700italic for bold italic, got %q", v)
	}
	if v, ok := matchingVariant(anonymous, xfont.StyleNormal, xfont.WeightNormal); !ok || v != "regular" {
		t.Errorf("expected variant regular, got %q", v)
	}
	if v, ok := matchingVariant(antic, xfont.StyleItalic, xfont.WeightNormal); ok {
		t.Errorf("Antic has no italic variant, but matched %q", v)
	}
}

func TestDiscoveryDisabled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.resources")
	defer teardown()
	//
	promise := DiscoverFont(testconfig.Conf{}, "Inconsolata", xfont.StyleNormal,
		xfont.WeightNormal)
	fpath, err := promise.Path()
	if err == nil {
		t.Fatal("discovery is disabled, expected an error")
	}
	if core.Code(err) != core.EMISSING {
		t.Errorf("an undiscoverable font must be absent (EMISSING), got code %d", core.Code(err))
	}
	if fpath != "" {
		t.Errorf("expected empty path, got %q", fpath)
	}
}

func TestDiscoveryTimeoutFromConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.resources")
	defer teardown()
	//
	if d := discoveryTimeout(testconfig.Conf{"discovery-timeout": "250ms"}); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", d)
	}
	if d := discoveryTimeout(testconfig.Conf{}); d != 10*time.Second {
		t.Errorf("expected the 10s default, got %v", d)
	}
	if d := discoveryTimeout(testconfig.Conf{"discovery-timeout": "soon"}); d != 10*time.Second {
		t.Errorf("unparsable values must fall back to the default, got %v", d)
	}
}

func TestCacheDirPath(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.resources")
	defer teardown()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	//
	conf := testconfig.Conf{"app-key": "fontresolve-test"}
	dir, err := CacheDirPath(conf, "fonts")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dir, filepath.Join("fontresolve-test", "fonts")) {
		t.Errorf("cache dir must carry app-key and subfolder: %s", dir)
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		t.Errorf("cache dir must exist after CacheDirPath: %v", err)
	}
}
