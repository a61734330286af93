package fontstore

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/derekparker/trie"
	"github.com/docregen/fontresolve/core/font"
	"github.com/docregen/fontresolve/core/font/fontcheck"
	"github.com/npillmayer/schuko"
)

// Store is the two-tier font index: an immutable in-memory snapshot for
// lock-free reads, plus a persistent cache file. Directories listed as
// "manual" win over "auto" directories when names collide.
type Store struct {
	checker   *fontcheck.Checker
	manual    []string
	auto      []string
	cacheFile string
	writeMu   sync.Mutex   // serializes refresh and cache-file writes
	snap      atomic.Value // *snapshot
}

// snapshot is an immutable view of the index. Refresh installs a new one
// wholesale; readers must never mutate it.
type snapshot struct {
	records  map[string]Record // normalized name -> record
	families *trie.Trie        // family+style key -> normalized name
	rejected []Rejection
	dirs     map[string]dirState
	built    time.Time
}

// dirState fingerprints one directory for change detection.
type dirState struct {
	listing string // hash over the sorted candidate-file listing with mtimes
}

// New creates a Store from configuration. Recognized keys:
// 'font-dirs-manual' and 'font-dirs-auto' (path lists), 'cache-file'.
func New(conf schuko.Configuration, checker *fontcheck.Checker) *Store {
	if checker == nil {
		checker = fontcheck.New()
	}
	s := &Store{
		checker:   checker,
		manual:    splitPathList(conf.GetString("font-dirs-manual")),
		auto:      splitPathList(conf.GetString("font-dirs-auto")),
		cacheFile: conf.GetString("cache-file"),
	}
	s.snap.Store(emptySnapshot())
	return s
}

func emptySnapshot() *snapshot {
	return &snapshot{
		records:  map[string]Record{},
		families: trie.New(),
		dirs:     map[string]dirState{},
	}
}

func splitPathList(list string) []string {
	var dirs []string
	for _, d := range strings.Split(list, string(filepath.ListSeparator)) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (s *Store) current() *snapshot {
	return s.snap.Load().(*snapshot)
}

// Dirs returns the configured directories in priority order, manual first.
func (s *Store) Dirs() []string {
	return append(append([]string{}, s.manual...), s.auto...)
}

// Len returns the number of indexed fonts.
func (s *Store) Len() int {
	return len(s.current().records)
}

// Records returns a copy of the index, for diagnostics and reporting.
func (s *Store) Records() map[string]Record {
	snap := s.current()
	recs := make(map[string]Record, len(snap.records))
	for k, v := range snap.records {
		recs[k] = v
	}
	return recs
}

// Rejected lists the files the last scan discarded, with the validation
// errors that led to each rejection.
func (s *Store) Rejected() []Rejection {
	return append([]Rejection{}, s.current().rejected...)
}

// Lookup finds a font record by name: first a normalized exact-name match,
// then a family+style fallback over the secondary index.
func (s *Store) Lookup(name string) (Record, bool) {
	snap := s.current()
	key := font.NormalizeFontname(name)
	if rec, ok := snap.records[key]; ok {
		return rec, ok
	}
	// family+style fallback: "Helvetica Bold" may be indexed as
	// family key "helvetica-bold"
	style, weight := font.GuessStyleAndWeight(name)
	famkey := font.StyleWeightKey(stripStyleWords(name), style, weight)
	if node, ok := snap.families.Find(famkey); ok {
		if rname, ok := node.Meta().(string); ok {
			rec, ok := snap.records[rname]
			return rec, ok
		}
	}
	keys := snap.families.PrefixSearch(famkey)
	if len(keys) == 0 {
		return Record{}, false
	}
	sort.Strings(keys) // deterministic pick on multiple matches
	if node, ok := snap.families.Find(keys[0]); ok {
		if rname, ok := node.Meta().(string); ok {
			rec, ok := snap.records[rname]
			return rec, ok
		}
	}
	return Record{}, false
}

// stripStyleWords removes trailing style/weight words from a requested name
// so that "Helvetica Bold Italic" keys on family "Helvetica".
func stripStyleWords(name string) string {
	words := strings.Fields(name)
	for len(words) > 1 {
		switch strings.ToLower(words[len(words)-1]) {
		case "regular", "normal", "italic", "oblique", "bold", "light",
			"medium", "black", "thin", "semibold", "extrabold":
			words = words[:len(words)-1]
		default:
			return strings.Join(words, " ")
		}
	}
	return strings.Join(words, " ")
}

// install makes snap the current read view.
func (s *Store) install(snap *snapshot) {
	s.snap.Store(snap)
}

// LogFontList dumps the list of indexed fonts to the trace (log-level Info).
func (s *Store) LogFontList() {
	snap := s.current()
	tracer().Infof("--- indexed fonts ---")
	names := make([]string, 0, len(snap.records))
	for k := range snap.records {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		rec := snap.records[k]
		tracer().Infof("font [%s] = %s (%s %d) %s", k, rec.Family, rec.Style, rec.Weight, rec.Path)
	}
	tracer().Infof("---------------------")
}
