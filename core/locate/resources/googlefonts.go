package resources

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	"github.com/npillmayer/schuko"
	"github.com/npillmayer/schuko/tracing"
	xfont "golang.org/x/image/font"
)

// GoogleFontInfo describes one font family in the Google Fonts directory.
type GoogleFontInfo struct {
	Family   string            `json:"family"`
	Version  string            `json:"version"`
	Variants []string          `json:"variants"`
	Subsets  []string          `json:"subsets"`
	Files    map[string]string `json:"files"`
}

type googleFontsList struct {
	Items []GoogleFontInfo `json:"items"`
}

var loadGoogleFontsDir sync.Once
var googleFontsDirectory googleFontsList
var googleFontsLoadError error
var googleFontsAPI string = `https://www.googleapis.com/webfonts/v1/webfonts?`

// SetupGoogleFontsDirectory downloads the directory of available font
// families from the Google webfont service, at most once per process. The
// API key is read from configuration key 'google-api-key', with environment
// variable GOOGLE_API_KEY as a fallback.
func SetupGoogleFontsDirectory(conf schuko.Configuration) error {
	loadGoogleFontsDir.Do(func() {
		apikey := conf.GetString("google-api-key")
		if apikey == "" {
			apikey = os.Getenv("GOOGLE_API_KEY")
		}
		if apikey == "" {
			err := errors.New("Google API key not set")
			tracer().Errorf(err.Error())
			googleFontsLoadError = core.WrapError(err, core.EMISSING,
				`Google Fonts API-key must be set in configuration or as GOOGLE_API_KEY in environment;
      please refer to https://developers.google.com/fonts/docs/developer_api`)
			return
		}
		values := url.Values{
			"sort": []string{"alpha"},
			"key":  []string{apikey},
		}
		resp, err := http.Get(googleFontsAPI + values.Encode())
		if err != nil {
			tracer().Errorf("Google Fonts API request not OK: %s", err.Error())
			googleFontsLoadError = core.WrapError(err, core.ECONNECTION,
				"could not get fonts-directory from Google font service")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			tracer().Errorf("Google Fonts API request not OK: %v", resp.Status)
			err := core.Error(resp.StatusCode, "response: %v", resp.Status)
			googleFontsLoadError = core.WrapError(err, core.ECONNECTION,
				"could not get fonts-directory from Google font service")
			return
		}
		dec := json.NewDecoder(resp.Body)
		err = dec.Decode(&googleFontsDirectory)
		if err != nil {
			googleFontsLoadError = core.WrapError(err, core.EINVALID,
				"could not decode fonts-list from Google font service")
		}
	})
	return googleFontsLoadError
}

// FindGoogleFont searches the Google Fonts directory for font families
// matching a name pattern, having a variant for the given style and weight.
// If not already done, the directory will be downloaded from Google.
func FindGoogleFont(conf schuko.Configuration, pattern string, style xfont.Style,
	weight xfont.Weight) ([]GoogleFontInfo, error) {
	//
	var fonts []GoogleFontInfo
	if err := SetupGoogleFontsDirectory(conf); err != nil {
		return fonts, err
	}
	r, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fonts, core.WrapError(err, core.EINVALID,
			"invalid font name pattern: %q", pattern)
	}
	for _, finfo := range googleFontsDirectory.Items {
		if !r.MatchString(finfo.Family) {
			continue
		}
		if _, ok := matchingVariant(finfo, style, weight); ok {
			fonts = append(fonts, finfo)
		}
	}
	if len(fonts) == 0 {
		return fonts, core.Error(core.EMISSING,
			"no Google font matches %q with requested style/weight", pattern)
	}
	return fonts, nil
}

// matchingVariant picks the variant of a font family that best fits a style
// and weight, if any does with more than low confidence.
func matchingVariant(finfo GoogleFontInfo, style xfont.Style, weight xfont.Weight) (string, bool) {
	best, confidence := "", font.LowConfidence
	for _, v := range finfo.Variants {
		// Google variant names glue weight and style together ("700italic");
		// split the two before matching
		sname, wname := "regular", strings.TrimSuffix(strings.ToLower(v), "italic")
		if strings.Contains(strings.ToLower(v), "italic") {
			sname = "italic"
		}
		if wname == "" {
			wname = "regular"
		}
		s := font.MatchStyle(sname, style)
		w := font.MatchWeight(wname, weight)
		if (s+w)/2 > confidence {
			best, confidence = v, (s+w)/2
		}
	}
	return best, best != ""
}

// CacheGoogleFont downloads a font variant into the user's font cache
// directory and returns the local file path. Previously downloaded files are
// reused.
func CacheGoogleFont(conf schuko.Configuration, finfo GoogleFontInfo, variant string) (string, error) {
	fileurl, ok := finfo.Files[variant]
	if !ok {
		return "", core.Error(core.EMISSING, "font %s has no variant %s",
			finfo.Family, variant)
	}
	cachedir, err := CacheDirPath(conf, "fonts")
	if err != nil {
		return "", core.WrapError(err, core.EINVALID,
			"cannot create cache directory for font %s", finfo.Family)
	}
	ext := path.Ext(fileurl)
	filename := font.NormalizeFontname(finfo.Family) + "-" + variant + ext
	filepath := path.Join(cachedir, filename)
	if _, err := os.Stat(filepath); err == nil {
		tracer().Infof("font %s already cached", filename)
		return filepath, nil
	}
	tracer().Infof("downloading %s to %s", fileurl, filepath)
	if err := DownloadCachedFile(filepath, fileurl); err != nil {
		return "", core.WrapError(err, core.ECONNECTION,
			"could not download font %s", finfo.Family)
	}
	return filepath, nil
}

// ---------------------------------------------------------------------------

// ListGoogleFonts produces a listing of available fonts from the Google
// webfont service, with font-family names matching a given pattern.
//
// If not already done, the list of fonts will be downloaded from Google.
func ListGoogleFonts(conf schuko.Configuration, pattern string) {
	level := tracer().GetTraceLevel()
	tracer().SetTraceLevel(tracing.LevelInfo)
	if err := SetupGoogleFontsDirectory(conf); err != nil {
		tracer().Errorf(core.UserMessage(err))
	} else {
		listGoogleFonts(googleFontsDirectory, pattern)
	}
	tracer().SetTraceLevel(level)
}

func listGoogleFonts(list googleFontsList, pattern string) {
	r, err := regexp.Compile(pattern)
	if err != nil {
		tracer().Errorf("cannot list Google fonts: invalid pattern: %v", err)
		return
	}
	tracer().Infof("%d fonts in list", len(list.Items))
	tracer().Infof("======================================")
	for i, finfo := range list.Items {
		if !r.MatchString(finfo.Family) {
			continue
		}
		tracer().Infof("[%4d] %-20s: %s", i, finfo.Family, finfo.Version)
		tracer().Infof("       subsets: %v", finfo.Subsets)
		for k, v := range finfo.Files {
			tracer().Infof("       - %-18s: %s", k, strings.TrimPrefix(path.Ext(v), "."))
		}
	}
}
