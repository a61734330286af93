package fontstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/docregen/fontresolve/core/font/fontcheck"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// --- Test Suite Preparation ------------------------------------------------

type StoreTestEnviron struct {
	suite.Suite
	manual    string
	auto      string
	cacheFile string
	store     *Store
}

// listen for 'go test' command --> run test methods
func TestStoreFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontresolve.store")
	defer teardown()
	suite.Run(t, new(StoreTestEnviron))
}

// run before each test: fresh directories with the Go fonts spread across
// a manual and an auto directory
func (env *StoreTestEnviron) SetupTest() {
	root := env.T().TempDir()
	env.manual = filepath.Join(root, "manual")
	env.auto = filepath.Join(root, "auto")
	env.cacheFile = filepath.Join(root, "cache", "fonts.json")
	env.Require().NoError(os.MkdirAll(env.manual, 0755))
	env.Require().NoError(os.MkdirAll(env.auto, 0755))
	env.write(env.manual, "Go-Regular.ttf", goregular.TTF)
	env.write(env.auto, "Go-Bold.ttf", gobold.TTF)
	env.write(env.auto, "Go-Italic.ttf", goitalic.TTF)
	env.store = New(testconfig.Conf{
		"font-dirs-manual": env.manual,
		"font-dirs-auto":   env.auto,
		"cache-file":       env.cacheFile,
	}, fontcheck.New())
}

func (env *StoreTestEnviron) write(dir, name string, data []byte) {
	env.T().Helper()
	env.Require().NoError(os.WriteFile(filepath.Join(dir, name), data, 0644))
}

// --- Tests -----------------------------------------------------------------

func (env *StoreTestEnviron) TestScanFindsFonts() {
	index, rejected, err := env.store.Scan(env.store.Dirs())
	env.Require().NoError(err)
	env.Empty(rejected, "all Go fonts should validate")
	env.Len(index, 3, "expected 3 fonts in the index")
	env.Contains(index, "go_regular")
	env.Contains(index, "go_bold")
	env.Contains(index, "go_italic")
}

func (env *StoreTestEnviron) TestScanIdempotent() {
	index1, _, err := env.store.Scan(env.store.Dirs())
	env.Require().NoError(err)
	index2, _, err := env.store.Scan(env.store.Dirs())
	env.Require().NoError(err)
	names1 := make(map[string]string)
	for k, v := range index1 {
		names1[k] = v.Path
	}
	names2 := make(map[string]string)
	for k, v := range index2 {
		names2[k] = v.Path
	}
	env.True(reflect.DeepEqual(names1, names2), "re-scan without changes must be index-equal")
}

func (env *StoreTestEnviron) TestScanRejectsGarbage() {
	env.write(env.auto, "broken.ttf", []byte("not a font"))
	_, rejected, err := env.store.Scan(env.store.Dirs())
	env.Require().NoError(err)
	env.Require().Len(rejected, 1, "expected exactly one rejection")
	env.Contains(rejected[0].Path, "broken.ttf")
	env.NotEmpty(rejected[0].Errors)
}

func (env *StoreTestEnviron) TestLookupExactAndFamily() {
	env.Require().NoError(env.store.Refresh(false))
	rec, ok := env.store.Lookup("Go Regular")
	env.Require().True(ok, "exact lookup for 'Go Regular' must hit")
	env.Equal("go_regular", rec.Name)
	// family+style fallback: not an exact record name
	rec, ok = env.store.Lookup("Go Bold Regular")
	env.Require().True(ok, "family fallback for 'Go Bold Regular' must hit")
	env.Equal("go_bold", rec.Name)
	_, ok = env.store.Lookup("No Such Font")
	env.False(ok)
}

func (env *StoreTestEnviron) TestManualDirectoryWins() {
	// same font name in both tiers: the manual copy must win
	env.write(env.manual, "Go-Bold.ttf", gobold.TTF)
	env.Require().NoError(env.store.Refresh(true))
	rec, ok := env.store.Lookup("Go Bold")
	env.Require().True(ok)
	env.Equal(filepath.Join(env.manual, "Go-Bold.ttf"), rec.Path)
}

func (env *StoreTestEnviron) TestRefreshPicksUpNewFiles() {
	env.Require().NoError(env.store.Refresh(false))
	env.Equal(3, env.store.Len())
	env.write(env.auto, "Go-Regular-Copy.ttf", goregular.TTF)
	env.Require().NoError(env.store.Refresh(false))
	// the copy has the same full name, so the index size is unchanged,
	// but the listing change must have been detected and re-scanned
	env.Equal(3, env.store.Len())
	env.write(env.manual, "Go-Italic-2.ttf", goitalic.TTF)
	env.Require().NoError(env.store.Refresh(false))
	env.Equal(3, env.store.Len())
}

func (env *StoreTestEnviron) TestRefreshDetectsContentChange() {
	env.Require().NoError(env.store.Refresh(false))
	rec, ok := env.store.Lookup("Go Italic")
	env.Require().True(ok)
	oldHash := rec.ContentHash
	// replace the italic file with the bold binary
	path := filepath.Join(env.auto, "Go-Italic.ttf")
	env.Require().NoError(os.WriteFile(path, gobold.TTF, 0644))
	future := time.Now().Add(2 * time.Second)
	env.Require().NoError(os.Chtimes(path, future, future))
	env.Require().NoError(env.store.Refresh(false))
	rec, ok = env.store.Lookup("Go Bold")
	env.Require().True(ok)
	env.NotEqual(oldHash, rec.ContentHash)
}

func (env *StoreTestEnviron) TestCacheRoundTrip() {
	env.Require().NoError(env.store.Refresh(false))
	records := env.store.Records()
	loaded, err := readCacheFile(env.cacheFile)
	env.Require().NoError(err)
	env.Require().Len(loaded, len(records))
	for name, rec := range records {
		got, ok := loaded[name]
		env.Require().True(ok, "record %s missing after round-trip", name)
		env.Equal(rec.Family, got.Family)
		env.Equal(rec.Path, got.Path)
		env.Equal(rec.ContentHash, got.ContentHash)
		env.Equal(rec.Weight, got.Weight)
		env.Equal(rec.Format, got.Format)
		env.Equal(rec.GlyphCount, got.GlyphCount)
	}
}

func (env *StoreTestEnviron) TestCorruptCacheDegradesToScan() {
	env.Require().NoError(os.MkdirAll(filepath.Dir(env.cacheFile), 0755))
	env.Require().NoError(os.WriteFile(env.cacheFile, []byte(`{"version":1,"entr`), 0644))
	fresh := New(testconfig.Conf{
		"font-dirs-manual": env.manual,
		"font-dirs-auto":   env.auto,
		"cache-file":       env.cacheFile,
	}, fontcheck.New())
	env.Require().NoError(fresh.Refresh(false), "corrupt cache must never raise")
	env.Equal(3, fresh.Len(), "corrupt cache must degrade to a full re-scan")
}

func (env *StoreTestEnviron) TestUnreadableDirectoryKeepsLastKnownGood() {
	env.Require().NoError(env.store.Refresh(false))
	env.Equal(3, env.store.Len())
	env.Require().NoError(os.RemoveAll(env.auto))
	// auto dir is gone: refresh logs the discovery problem but keeps serving
	env.Require().NoError(env.store.Refresh(true))
	_, ok := env.store.Lookup("Go Regular")
	env.True(ok, "manual dir fonts must survive")
}

func TestHashBytesStable(t *testing.T) {
	h1 := HashBytes([]byte("abc"))
	h2 := HashBytes([]byte("abc"))
	if h1 != h2 {
		t.Error("content hash must be deterministic")
	}
	if h1 == HashBytes([]byte("abd")) {
		t.Error("different content must hash differently")
	}
	if len(h1) != 16 {
		t.Errorf("expected a 64-bit hex digest, got %q", h1)
	}
}
