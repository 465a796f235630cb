package parse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MediaKind classifies an asset by its parsed identity.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindTV      MediaKind = "tv"
	KindOther   MediaKind = "other"
	KindUnknown MediaKind = "unknown"
)

// Result carries everything the parser could extract from a basename.
type Result struct {
	Title        string
	Year         int
	Season       int
	Episode      int
	ReleaseGroup string
	Kind         MediaKind
}

// HasYear reports whether a release year was parsed.
func (r Result) HasYear() bool { return r.Year > 0 }

// HasEpisode reports whether a season/episode pair was parsed.
func (r Result) HasEpisode() bool { return r.Season > 0 && r.Episode > 0 }

var (
	seasonEpisodePat = regexp.MustCompile(`(?i)\bS(\d{1,2})[._ ]?E(\d{1,3})\b`)
	crossEpisodePat  = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	seasonWordPat    = regexp.MustCompile(`(?i)\bseason[._ ]?(\d{1,2})\b.*?\bepisode[._ ]?(\d{1,3})\b`)
	yearPat          = regexp.MustCompile(`[._ (\[-](19\d{2}|20\d{2})[._ )\]-]`)
	groupPat         = regexp.MustCompile(`(?i)-([a-z0-9]+(?:_int)?)$`)
	qualityNoisePat  = regexp.MustCompile(`(?i)[._ (\[-](2160p|1080p|720p|576p|480p|4k|uhd|hdr10?|dv|dolby[._ ]?vision|hlg|x26[45]|h26[45]|hevc|av1|vp9|xvid|divx|aac|ac3|eac3|dts(?:-?hd)?|truehd|atmos|[257][._ ][01]ch|web[._ -]?(?:dl|rip)?|blu[._ -]?ray|bdrip|brrip|dvdrip|hdtv|remux|proper|repack|internal|limited|unrated|extended|remastered|multi|dubbed|subbed)\b.*$`)
)

var titleCaser = cases.Title(language.Und)

// Parse extracts identity metadata from a file basename. The extension is
// stripped first; parsing never fails.
func Parse(basename string) Result {
	name := strings.TrimSpace(basename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" {
		return Result{Title: "", Kind: KindUnknown}
	}

	result := Result{Kind: KindUnknown}

	working := name
	if match := groupPat.FindStringSubmatch(working); len(match) == 2 && !looksLikeNoise(match[1]) {
		result.ReleaseGroup = match[1]
	}

	if season, episode, loc, ok := findEpisode(working); ok {
		result.Season = season
		result.Episode = episode
		result.Kind = KindTV
		working = working[:loc]
	}

	if match := yearPat.FindStringSubmatchIndex(working); match != nil {
		if year, err := strconv.Atoi(working[match[2]:match[3]]); err == nil {
			result.Year = year
			// The title ends where the year token starts.
			working = working[:match[0]]
		}
	}

	working = qualityNoisePat.ReplaceAllString(working, "")
	result.Title = canonicalTitle(working)

	if result.Kind == KindUnknown {
		if result.Title != "" && (result.Year > 0 || looksLikeMovieName(name)) {
			result.Kind = KindMovie
		} else if result.Title == "" {
			result.Kind = KindUnknown
		} else {
			result.Kind = KindOther
		}
	}
	return result
}

// findEpisode tries the supported season/episode notations in priority
// order and returns the match start so the title can be cut before it.
func findEpisode(value string) (season, episode, start int, ok bool) {
	for _, pat := range []*regexp.Regexp{seasonEpisodePat, crossEpisodePat, seasonWordPat} {
		match := pat.FindStringSubmatchIndex(value)
		if match == nil {
			continue
		}
		s, errS := strconv.Atoi(value[match[2]:match[3]])
		e, errE := strconv.Atoi(value[match[4]:match[5]])
		if errS != nil || errE != nil {
			continue
		}
		return s, e, match[0], true
	}
	return 0, 0, 0, false
}

// canonicalTitle collapses separators, strips punctuation, and title-cases
// the remainder. Deterministic for any input.
func canonicalTitle(value string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '(' || r == ')' || r == '[' || r == ']' || r == '\'':
			if !prevSpace && cleaned.Len() > 0 {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	return titleCaser.String(title)
}

// CanonicalKey lowercases and strips punctuation for use in group
// fingerprints and similarity comparison.
func CanonicalKey(title string) string {
	return strings.ToLower(canonicalTitle(title))
}

func looksLikeNoise(group string) bool {
	lowered := strings.ToLower(group)
	for _, noise := range []string{"1080p", "720p", "2160p", "480p", "x264", "x265", "hevc", "av1", "web", "bluray", "hdtv"} {
		if lowered == noise {
			return true
		}
	}
	return false
}

// looksLikeMovieName treats multi-word titles without episode markers as
// movies; single bare tokens stay "other" pending enrichment.
func looksLikeMovieName(name string) bool {
	separators := strings.Count(name, ".") + strings.Count(name, " ") + strings.Count(name, "_") + strings.Count(name, "-")
	return separators >= 1
}
