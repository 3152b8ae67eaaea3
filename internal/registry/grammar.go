package registry

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// PadWidth is the minimum number of digits in every placeholder, whatever
// its category. Counters past 999 simply grow wider.
const PadWidth = 3

var (
	prefixAlt = "(?:" + strings.Join(lo.Map(allPrefixes(), func(p string, _ int) string {
		return regexp.QuoteMeta(p)
	}), "|") + ")"

	tokenRe  = regexp.MustCompile(prefixAlt + `[0-9]{3,}`)
	fullyRe  = regexp.MustCompile(`^(?:` + prefixAlt + `[0-9]{3,})+$`)
	singleRe = regexp.MustCompile(`^(` + prefixAlt + `)([0-9]{3,})$`)
	wordRe   = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]+\b`)
)

func format(prefix string, n int) string {
	s := strconv.Itoa(n)
	if len(s) < PadWidth {
		s = strings.Repeat("0", PadWidth-len(s)) + s
	}
	return prefix + s
}

// IsObfuscated reports whether word contains at least one placeholder of any
// style, e.g. "myA001var".
func IsObfuscated(word string) bool {
	return tokenRe.MatchString(word)
}

// IsFullyObfuscated reports whether word consists only of one or more
// concatenated placeholders, e.g. "A001" or "G001STR001".
func IsFullyObfuscated(word string) bool {
	return fullyRe.MatchString(word)
}

// Tokens returns every placeholder-shaped token in text, left to right.
func Tokens(text string) []string {
	return tokenRe.FindAllString(text, -1)
}

// parseToken splits a single placeholder into prefix and counter.
func parseToken(tok string) (string, int, bool) {
	m := singleRe.FindStringSubmatch(tok)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// Ratio returns the fraction of identifier-like tokens in text that are
// placeholders, in [0,1].
func Ratio(text string) float64 {
	tokens := len(Tokens(text))
	plain := 0
	for _, w := range wordRe.FindAllString(text, -1) {
		if !IsFullyObfuscated(w) {
			plain++
		}
	}
	if tokens+plain == 0 {
		return 0
	}
	return float64(tokens) / float64(tokens+plain)
}

// CalcPercent returns Ratio as a whole percentage. Any placeholder left in
// the text keeps the result at 1 or more, so 0 means fully revealed.
func CalcPercent(text string) int {
	r := Ratio(text)
	if r == 0 {
		return 0
	}
	pct := int(math.Round(r * 100))
	if pct == 0 {
		pct = 1
	}
	return pct
}

// IsCategory reports whether tok is a single placeholder whose prefix is the
// fixed prefix of cat in any style.
func IsCategory(tok string, cat Category) bool {
	prefix, _, ok := parseToken(tok)
	if !ok {
		return false
	}
	for _, s := range styles {
		if s.Fixed[cat] == prefix {
			return true
		}
	}
	return false
}
