package fontstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/derekparker/trie"
	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	"github.com/docregen/fontresolve/core/font/fontcheck"
)

// Rejection documents one file a scan discarded, for diagnostics.
type Rejection struct {
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

// recognized font file extensions
func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

// Scan enumerates font files in the given directories, validates each one
// and returns the resulting index. Earlier directories win name collisions.
// Files failing validation are returned as rejections, one warning each.
func (s *Store) Scan(dirs []string) (map[string]Record, []Rejection, error) {
	index := map[string]Record{}
	var rejected []Rejection
	var firstErr error
	for _, dir := range dirs {
		recs, rejs, _, err := s.scanDir(dir, nil)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		rejected = append(rejected, rejs...)
		for _, rec := range recs {
			if _, taken := index[rec.Name]; !taken {
				index[rec.Name] = rec
			}
		}
	}
	return index, rejected, firstErr
}

// scanDir validates every candidate file in one directory. Records from
// reuse whose content hash still matches are carried over without
// re-parsing. The directory fingerprint of the scanned listing is returned
// for later change detection.
func (s *Store) scanDir(dir string, reuse map[string]Record) ([]Record, []Rejection, dirState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = core.WrapError(err, core.EMISSING, "font directory not readable: %s", dir)
		tracer().Errorf(core.UserMessage(err))
		return nil, nil, dirState{}, err
	}
	names := make([]string, 0, len(entries))
	mtimes := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isFontFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
		if fi, err := entry.Info(); err == nil {
			mtimes[entry.Name()] = fi.ModTime()
		}
	}
	sort.Strings(names)
	state := fingerprint(names, mtimes)

	var recs []Record
	var rejected []Rejection
	for _, name := range names {
		path := filepath.Join(dir, name)
		hash, err := HashFile(path)
		if err != nil {
			tracer().Errorf("cannot read font file %s: %v", path, err)
			rejected = append(rejected, Rejection{Path: path, Errors: []string{err.Error()}})
			continue
		}
		if old, ok := reuse[path]; ok && old.ContentHash == hash {
			recs = append(recs, old)
			continue
		}
		res := s.checker.ValidateFile(path)
		if !res.Valid {
			tracer().Errorf("rejecting font file %s: %s", path, strings.Join(res.Errors, "; "))
			rejected = append(rejected, Rejection{Path: path, Errors: res.Errors})
			continue
		}
		for _, w := range res.Warnings {
			tracer().Infof("scan: %s", w)
		}
		recs = append(recs, recordFromMeta(path, hash, res.Meta))
	}
	return recs, rejected, state, nil
}

func recordFromMeta(path, hash string, meta *fontcheck.Metadata) Record {
	name := meta.FullName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Record{
		Name:        font.NormalizeFontname(name),
		Family:      meta.Family,
		Style:       meta.Style,
		Weight:      meta.Weight,
		Italic:      meta.Italic,
		Format:      meta.Format,
		Path:        path,
		ContentHash: hash,
		GlyphCount:  meta.GlyphCount,
		LastScanned: time.Now(),
	}
}

// fingerprint condenses a directory listing (names + mtimes) into a
// comparable state value.
func fingerprint(names []string, mtimes map[string]time.Time) dirState {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s@%d;", n, mtimes[n].UnixNano())
	}
	return dirState{listing: HashString(b.String())}
}

// Refresh brings the index up to date. Only directories whose listing or
// modification times changed since the last scan are re-scanned, unless
// force is set. A corrupt or unreadable persistent cache file degrades to a
// full re-scan with a warning; Refresh never fails because of it. Unreadable
// directories keep their last-known-good records.
func (s *Store) Refresh(force bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current()
	reuse := map[string]Record{} // path -> record, for hash-match reuse
	if len(prev.records) > 0 {
		for _, rec := range prev.records {
			reuse[rec.Path] = rec
		}
	} else if s.cacheFile != "" && !force {
		cached, err := readCacheFile(s.cacheFile)
		if err != nil {
			tracer().Errorf("font cache file unusable, re-scanning: %v", err)
		}
		for _, rec := range cached {
			reuse[rec.Path] = rec
		}
	}
	if force {
		reuse = map[string]Record{}
	}

	next := &snapshot{
		records:  map[string]Record{},
		families: trie.New(),
		dirs:     map[string]dirState{},
		built:    time.Now(),
	}
	for _, dir := range s.Dirs() {
		var recs []Record
		var rejs []Rejection
		state, changed := s.dirChanged(dir, prev)
		if !force && !changed && len(prev.records) > 0 {
			recs = prev.recordsIn(dir)
			state = prev.dirs[dir]
		} else {
			var err error
			recs, rejs, state, err = s.scanDir(dir, reuse)
			if err != nil {
				// degrade to the last-known-good records for this directory
				recs = prev.recordsIn(dir)
				state = prev.dirs[dir]
			}
		}
		next.dirs[dir] = state
		next.rejected = append(next.rejected, rejs...)
		for _, rec := range recs {
			if _, taken := next.records[rec.Name]; taken {
				continue // an earlier (higher-priority) directory won
			}
			next.records[rec.Name] = rec
			next.families.Add(rec.FamilyKey(), rec.Name)
		}
	}
	s.install(next)

	if s.cacheFile != "" {
		if err := writeCacheFile(s.cacheFile, next.records); err != nil {
			tracer().Errorf("cannot persist font cache: %v", err)
			return core.WrapError(err, core.EINVALID, "cannot persist font cache to %s", s.cacheFile)
		}
	}
	return nil
}

// dirChanged fingerprints dir and compares it against the previous snapshot.
func (s *Store) dirChanged(dir string, prev *snapshot) (dirState, bool) {
	old, known := prev.dirs[dir]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dirState{}, !known
	}
	names := make([]string, 0, len(entries))
	mtimes := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isFontFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
		if fi, err := entry.Info(); err == nil {
			mtimes[entry.Name()] = fi.ModTime()
		}
	}
	sort.Strings(names)
	state := fingerprint(names, mtimes)
	return state, !known || state != old
}

// recordsIn lists the snapshot's records located in dir.
func (snap *snapshot) recordsIn(dir string) []Record {
	var recs []Record
	for _, rec := range snap.records {
		if filepath.Dir(rec.Path) == dir {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs
}
