// Package fingerprint removes invisible and look-alike Unicode characters
// that text generators can leave behind in code. It is independent of the
// placeholder registry.
//
// Sanitize runs four passes in a fixed order: NFKC normalization, removal of
// invisible code points, folding of non-standard spaces and folding of
// homoglyphs. Code points listed in one of the catalogues are left to their
// own pass by the NFKC step, so every folded character is counted exactly
// once in Stats.
package fingerprint

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Options select the passes Sanitize runs.
type Options struct {
	NFKC       bool
	Invisible  bool
	Spaces     bool
	Homoglyphs bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{NFKC: true, Invisible: true, Spaces: true, Homoglyphs: true}
}

// Stats counts the code points each pass changed.
type Stats struct {
	Normalized int `json:"normalized"`
	Invisible  int `json:"invisible"`
	Spaces     int `json:"spaces"`
	Homoglyphs int `json:"homoglyphs"`
}

// Total is the sum of all counts.
func (s Stats) Total() int {
	return s.Normalized + s.Invisible + s.Spaces + s.Homoglyphs
}

func catalogued(r rune) bool {
	if isInvisible(r) || spaces[r] {
		return true
	}
	_, ok := homoglyphs[r]
	return ok
}

// Sanitize returns text with fingerprint characters removed or folded.
func Sanitize(text string, opts Options) (string, Stats) {
	var st Stats
	out := text
	if opts.NFKC {
		out, st.Normalized = normalize(out)
	}
	if opts.Invisible {
		out = fold(out, &st.Invisible, func(r rune) (rune, bool) {
			return -1, isInvisible(r)
		})
	}
	if opts.Spaces {
		out = fold(out, &st.Spaces, func(r rune) (rune, bool) {
			return ' ', spaces[r]
		})
	}
	if opts.Homoglyphs {
		out = fold(out, &st.Homoglyphs, func(r rune) (rune, bool) {
			to, ok := homoglyphs[r]
			return to, ok
		})
	}
	return out, st
}

// normalize applies NFKC to every run of text between catalogued code
// points. The count is the number of code points that have a compatibility
// mapping of their own.
func normalize(text string) (string, int) {
	if norm.NFKC.IsNormalString(text) {
		return text, 0
	}
	var b strings.Builder
	b.Grow(len(text))
	n, start := 0, 0
	flush := func(end int) {
		run := text[start:end]
		if !norm.NFKC.IsNormalString(run) {
			for _, r := range run {
				if !norm.NFKC.IsNormalString(string(r)) {
					n++
				}
			}
			run = norm.NFKC.String(run)
		}
		b.WriteString(run)
	}
	for i, r := range text {
		if catalogued(r) {
			flush(i)
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	flush(len(text))
	return b.String(), n
}

func fold(text string, n *int, f func(rune) (rune, bool)) string {
	return strings.Map(func(r rune) rune {
		if to, ok := f(r); ok {
			*n++
			return to
		}
		return r
	}, text)
}

// HasFingerprints reports whether Sanitize with DefaultOptions would change
// text. It does not allocate for clean ASCII input.
func HasFingerprints(text string) bool {
	for _, r := range text {
		if catalogued(r) {
			return true
		}
	}
	return !norm.NFKC.IsNormalString(text)
}

// Kind classifies a Finding.
type Kind string

const (
	KindInvisible Kind = "invisible"
	KindSpace     Kind = "space"
	KindHomoglyph Kind = "homoglyph"
	KindCompat    Kind = "compat"
)

// Finding is one fingerprint character. Offset is the byte offset in the
// analysed text; Replacement is what Sanitize puts in its place.
type Finding struct {
	Kind        Kind   `json:"kind"`
	Code        string `json:"code"`
	Offset      int    `json:"offset"`
	Replacement string `json:"replacement"`
}

// Report lists every finding in text order.
type Report struct {
	Findings []Finding `json:"findings"`
	Total    int       `json:"total"`
}

// Count returns the number of findings of kind k.
func (r Report) Count(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Analyze reports every fingerprint character in text without changing it.
func Analyze(text string) Report {
	var rep Report
	for i, r := range text {
		f := Finding{Code: fmt.Sprintf("U+%04X", r), Offset: i}
		switch to, isGlyph := homoglyphs[r]; {
		case isInvisible(r):
			f.Kind = KindInvisible
		case spaces[r]:
			f.Kind, f.Replacement = KindSpace, " "
		case isGlyph:
			f.Kind, f.Replacement = KindHomoglyph, string(to)
		case r != utf8.RuneError && !norm.NFKC.IsNormalString(string(r)):
			f.Kind, f.Replacement = KindCompat, norm.NFKC.String(string(r))
		default:
			continue
		}
		rep.Findings = append(rep.Findings, f)
	}
	rep.Total = len(rep.Findings)
	return rep
}
