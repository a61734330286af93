package fontregistry

import (
	"os"
	"sync"

	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	"github.com/docregen/fontresolve/core/font/fontstore"
	"github.com/npillmayer/schuko/tracing"
)

// Registry is the in-memory tier of the font cache: fonts already read and
// parsed during this process, keyed by the hash of their binary content.
// Keying by content means a file that changed on disk never serves a stale
// parse.
type Registry struct {
	sync.Mutex
	fonts map[string]*font.ScalableFont
}

func NewRegistry() *Registry {
	return &Registry{
		fonts: make(map[string]*font.ScalableFont),
	}
}

// LoadFont reads a font file and returns the parsed font, drawing on the
// cache whenever a font with identical content has been parsed before. The
// file is always re-read; only the (expensive) parse is cached.
func (fr *Registry) LoadFont(path string) (*font.ScalableFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(err, core.EMISSING, "font file cannot be read: %s", path)
	}
	key := fontstore.HashBytes(data)
	fr.Lock()
	defer fr.Unlock()
	if f, ok := fr.fonts[key]; ok {
		tracer().Debugf("registry has font %s cached", path)
		return f, nil
	}
	f, err := font.ParseOpenTypeFont(data)
	if err != nil {
		return nil, err
	}
	f.Filepath = path
	tracer().Debugf("registry caches font %s as %s", path, key)
	fr.fonts[key] = f
	return f, nil
}

// StoreFont pushes an already-loaded font into the registry if it isn't
// contained yet. A key already associated with a font will not be
// overridden.
func (fr *Registry) StoreFont(f *font.ScalableFont) {
	if f == nil {
		tracer().Errorf("registry cannot store null font")
		return
	}
	fr.Lock()
	defer fr.Unlock()
	key := fontstore.HashBytes(f.Binary)
	if _, ok := fr.fonts[key]; !ok {
		tracer().Debugf("registry stores font %s as %s", f.Fontname, key)
		fr.fonts[key] = f
	}
}

// Len returns the number of cached fonts.
func (fr *Registry) Len() int {
	fr.Lock()
	defer fr.Unlock()
	return len(fr.fonts)
}

// LogFontList is a helper function to dump the list of cached fonts to the
// trace-file (log-level Info).
func (fr *Registry) LogFontList() {
	level := tracer().GetTraceLevel()
	tracer().SetTraceLevel(tracing.LevelInfo)
	tracer().Infof("--- cached fonts ---")
	fr.Lock()
	defer fr.Unlock()
	for k, v := range fr.fonts {
		tracer().Infof("font [%s] = %v", k, v.Fontname)
	}
	tracer().Infof("--------------------")
	tracer().SetTraceLevel(level)
}
