package fontstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/docregen/fontresolve/core"
)

// cacheVersion is bumped whenever the persisted layout changes; files with
// a different version are discarded and rebuilt from a full scan.
const cacheVersion = 1

type cacheDoc struct {
	Version int      `json:"version"`
	Entries []Record `json:"entries"`
}

// writeCacheFile persists the index. The document is written to a temporary
// file in the same directory and then renamed, so concurrent readers never
// observe a partial write.
func writeCacheFile(path string, records map[string]Record) error {
	doc := cacheDoc{Version: cacheVersion}
	doc.Entries = make([]Record, 0, len(records))
	for _, rec := range records {
		doc.Entries = append(doc.Entries, rec)
	}
	sort.Slice(doc.Entries, func(i, j int) bool {
		return doc.Entries[i].Name < doc.Entries[j].Name
	})
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpname := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpname)
		return err
	}
	return os.Rename(tmpname, path)
}

// readCacheFile loads a persisted index, keyed by normalized name. Errors
// are reported to the caller, which degrades to a full re-scan; a corrupt
// cache file is never fatal.
func readCacheFile(path string) (map[string]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no cache yet, not an error
		}
		return nil, core.WrapError(err, core.EMISSING, "font cache file not readable: %s", path)
	}
	var doc cacheDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.WrapError(err, core.EINVALID, "font cache file corrupt: %s", path)
	}
	if doc.Version != cacheVersion {
		return nil, core.Error(core.EINVALID, "font cache version %d not understood", doc.Version)
	}
	records := make(map[string]Record, len(doc.Entries))
	for _, rec := range doc.Entries {
		records[rec.Name] = rec
	}
	return records, nil
}
