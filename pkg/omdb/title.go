package omdb

import (
	"regexp"
	"strconv"
	"strings"
)

// Scene-release titles carry the film name buried in language variants,
// director credits, quality tags and audio-track listings. ExtractTitle
// digs the canonical title (and a release year, when one is present) out
// of that noise so the lookup provider sees a clean query.

var (
	yearRe     = regexp.MustCompile(`\b(\d{4})\b`)
	yearCutRe  = regexp.MustCompile(`\(?\b(19\d\d|20\d\d|2100)\b\)?`)
	bracketRe  = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe    = regexp.MustCompile(`\(([^)]*)\)`)
	trackRunRe = regexp.MustCompile(`(?i)^\d+x$`)
)

// separators mark the start of trailing release metadata.
var separators = []string{" + ", " - ", "—", "–", "|", "•", "·"}

// audioTokens are language and audio-track markers that never belong to a
// film title.
var audioTokens = map[string]bool{
	"dub": true, "dubs": true, "sub": true, "subs": true,
	"mvo": true, "avo": true, "dvo": true, "vo": true,
	"original": true, "line": true, "multi": true,
	"eng": true, "rus": true, "ukr": true, "ita": true,
	"jap": true, "jpn": true, "fra": true, "fre": true,
	"ger": true, "deu": true, "esp": true, "spa": true,
	"pol": true, "por": true, "lat": true,
}

// ExtractTitle returns the canonical human-readable title and, when one is
// found, a release year in the range 1900-2100. It is pure and total: the
// worst case is an empty title and a zero year, never an error.
func ExtractTitle(raw string) (string, int) {
	year := 0
	for _, m := range yearRe.FindAllString(raw, -1) {
		if n, err := strconv.Atoi(m); err == nil && n >= 1900 && n <= 2100 {
			year = n
			break
		}
	}

	s := bracketRe.ReplaceAllString(raw, " ")
	s = stripNonYearParens(s)
	s = truncateAtYear(s)
	s = pickAlternative(s)
	s = truncateAtSeparator(s)
	s = dropAudioTail(s)
	s = stripTrailingTokens(s)
	s = collapse(s)
	return s, year
}

// NormalizeKey returns the lowercase, whitespace-collapsed cache key for a
// raw title, so differently formatted listings of one film share a single
// cache entry.
func NormalizeKey(raw string) string {
	title, _ := ExtractTitle(raw)
	return collapse(strings.ToLower(title))
}

// stripNonYearParens removes parenthetical segments unless the content is
// exactly a 4-digit year; those typically carry director names.
func stripNonYearParens(s string) string {
	return parenRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := strings.TrimSpace(m[1 : len(m)-1])
		if len(inner) == 4 {
			if _, err := strconv.Atoi(inner); err == nil {
				return m
			}
		}
		return " "
	})
}

// truncateAtYear cuts the working string at the first standalone in-range
// year token; everything after the year is release metadata. Left alone
// when the cut would consume the whole title ("2001: A Space Odyssey").
func truncateAtYear(s string) string {
	loc := yearCutRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	head := strings.TrimSpace(s[:loc[0]])
	if head == "" {
		return s
	}
	return head
}

// pickAlternative picks the segment of a " / "-separated dual-language
// listing with the most ASCII letters, biasing toward the Latin-script
// variant.
func pickAlternative(s string) string {
	parts := strings.Split(s, " / ")
	if len(parts) < 2 {
		return s
	}
	best := parts[0]
	bestCount := asciiLetters(parts[0])
	for _, p := range parts[1:] {
		if c := asciiLetters(p); c > bestCount {
			best, bestCount = p, c
		}
	}
	return best
}

func asciiLetters(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			n++
		}
	}
	return n
}

func truncateAtSeparator(s string) string {
	cut := len(s)
	for _, sep := range separators {
		if i := strings.Index(s, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}

// dropAudioTail handles a stray unmatched ')' left behind by truncation:
// when the text after it is audio/language metadata, everything from the
// ')' onward goes.
func dropAudioTail(s string) string {
	i := strings.Index(s, ")")
	if i < 0 || strings.Contains(s[:i], "(") {
		return s
	}
	for _, f := range strings.Fields(strings.ToLower(s[i+1:])) {
		if audioTokens[strings.Trim(f, ".,;:")] {
			return s[:i]
		}
	}
	return s
}

// stripTrailingTokens removes trailing runs of language/track tokens and
// "3x"-style track-count markers.
func stripTrailingTokens(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 {
		last := strings.Trim(strings.ToLower(fields[len(fields)-1]), ".,;:")
		if audioTokens[last] || trackRunRe.MatchString(last) {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}
	return strings.Join(fields, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
