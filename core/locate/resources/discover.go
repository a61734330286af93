package resources

import (
	"context"
	"time"

	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	"github.com/flopp/go-findfont"
	"github.com/npillmayer/schuko"
	xfont "golang.org/x/image/font"
)

// PathPromise is the await-side of a font discovery. Path blocks until the
// discovery has completed or the configured discovery timeout expires.
type PathPromise interface {
	Path() (string, error)
}

type pathPlusErr struct {
	path string
	err  error
}

type pathLoader struct {
	await func(ctx context.Context) (string, error)
}

func (loader pathLoader) Path() (string, error) {
	return loader.await(context.Background())
}

// immediatePromise carries an outcome that is known without any lookup.
func immediatePromise(path string, err error) PathPromise {
	return pathLoader{
		await: func(context.Context) (string, error) { return path, err },
	}
}

// discoveryTimeout reads configuration key 'discovery-timeout' as a Go
// duration string. Unset or unparsable values fall back to 10 seconds.
func discoveryTimeout(conf schuko.Configuration) time.Duration {
	if d, err := time.ParseDuration(conf.GetString("discovery-timeout")); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// DiscoverFont searches for a font file outside the configured font store
// directories: first among the fonts installed on the system, then in the
// Google Fonts directory, downloading into the user's cache directory on a
// hit. It returns a promise for the local file path of the discovered font.
//
// Discovery has to be switched on by setting configuration key
// 'discovery-enabled' to "true"; otherwise, and whenever the discovery
// timeout expires or a network problem occurs, the promise yields an error
// with code EMISSING, i.e. an undiscoverable font is simply absent.
//
// DiscoverFont does not touch the font store. Clients add the returned file
// to a store directory and refresh the store before resolving with it.
func DiscoverFont(conf schuko.Configuration, name string, style xfont.Style,
	weight xfont.Weight) PathPromise {
	//
	if conf.GetString("discovery-enabled") != "true" {
		tracer().Debugf("font discovery is disabled, not searching for %s", name)
		return immediatePromise("", core.Error(core.EMISSING,
			"font not found: %s (discovery is disabled)", name))
	}
	ch := make(chan pathPlusErr)
	go func(ch chan<- pathPlusErr) {
		fpath, err := discoverFont(conf, name, style, weight)
		ch <- pathPlusErr{path: fpath, err: err}
		close(ch)
	}(ch)
	timeout := discoveryTimeout(conf)
	return pathLoader{
		await: func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			select {
			case <-ctx.Done():
				return "", core.WrapError(ctx.Err(), core.EMISSING,
					"font not found: %s (discovery timed out)", name)
			case r := <-ch:
				return r.path, r.err
			}
		},
	}
}

// discoverFont walks the discovery sources in order and returns the first
// hit: system fonts via findfont, then the fontconfig listing, then the
// Google Fonts service.
func discoverFont(conf schuko.Configuration, name string, style xfont.Style,
	weight xfont.Weight) (string, error) {
	//
	if fpath, err := findfont.Find(name); err == nil && fpath != "" {
		tracer().Debugf("%s is a system font", name)
		return fpath, nil
	}
	if desc, variant := findFontConfigFont(conf, name, style, weight); desc.Path != "" {
		tracer().Debugf("fontconfig lists %s as variant %s of %s", name, variant, desc.Family)
		return desc.Path, nil
	}
	fiList, err := FindGoogleFont(conf, name, style, weight)
	if err != nil {
		// a network problem during discovery means the font is absent
		tracer().Infof("Google font lookup for %s failed: %v", name, err)
		return "", core.WrapError(err, core.EMISSING, "font not found: %s", name)
	}
	fi := fiList[0]
	variant, ok := matchingVariant(fi, style, weight)
	if !ok {
		return "", core.Error(core.EMISSING,
			"font not found: %s has no variant for requested style/weight", name)
	}
	fpath, err := CacheGoogleFont(conf, fi, variant)
	if err != nil {
		return "", core.WrapError(err, core.EMISSING, "font not found: %s", name)
	}
	// reject a downloaded file we cannot even parse
	if _, err := font.LoadOpenTypeFont(fpath); err != nil {
		return "", core.WrapError(err, core.EMISSING,
			"font not found: %s (download is not a usable font)", name)
	}
	return fpath, nil
}
