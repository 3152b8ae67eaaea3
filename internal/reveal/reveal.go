// Package reveal maps placeholders in obfuscated text back to the values
// they replaced.
package reveal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/gonkalabs/codeblur/internal/classify"
	"github.com/gonkalabs/codeblur/internal/registry"
)

// MaxPasses bounds All. Composite mappings can need several passes, one per
// nesting level; text still holding placeholders after this many passes is
// reported as a partial reveal.
const MaxPasses = 10

// Result is the outcome of All.
type Result struct {
	Text     string   `json:"text"`
	Passes   int      `json:"passes"`
	Percent  int      `json:"percent"`
	Residual []string `json:"residual,omitempty"`
	Partial  bool     `json:"partial"`
}

// Revealer reveals text against one registry. The compiled pattern is
// rebuilt only when the registry changes.
type Revealer struct {
	reg *registry.Registry

	built    bool
	revision uint64
	re       *regexp2.Regexp
	lookup   map[string]string
}

// New returns a Revealer for reg.
func New(reg *registry.Registry) *Revealer {
	return &Revealer{reg: reg}
}

// pattern returns the combined alternation of all placeholders, longest
// first, so that STR0012 is never taken as STR001 plus "2". The guards forbid
// a lowercase letter before a match and a lowercase letter or digit after
// it: adjacent placeholders such as G001STR001 still match, while a
// placeholder inside an unrelated word does not. It returns nil for an empty
// registry.
func (r *Revealer) pattern() (*regexp2.Regexp, error) {
	if r.built && r.revision == r.reg.Revision() {
		return r.re, nil
	}
	lookup := r.reg.Reverse()
	toks := make([]string, 0, len(lookup))
	for tok := range lookup {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool {
		if len(toks[i]) != len(toks[j]) {
			return len(toks[i]) > len(toks[j])
		}
		return toks[i] < toks[j]
	})

	var re *regexp2.Regexp
	if len(toks) > 0 {
		alts := make([]string, len(toks))
		for i, t := range toks {
			alts[i] = regexp2.Escape(t)
		}
		var err error
		re, err = regexp2.Compile(`(?<![a-z])(?:`+strings.Join(alts, "|")+`)(?![a-z0-9])`, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("reveal: compile: %w", err)
		}
		re.MatchTimeout = classify.MatchTimeout
	}
	r.re, r.lookup = re, lookup
	r.revision, r.built = r.reg.Revision(), true
	return re, nil
}

// Reveal replaces every registered placeholder in text with its original in
// a single pass. Text outside matches is unchanged.
func (r *Revealer) Reveal(text string) (string, error) {
	re, err := r.pattern()
	if err != nil || re == nil {
		return text, err
	}
	out, err := re.ReplaceFunc(text, func(m regexp2.Match) string {
		if orig, ok := r.lookup[m.String()]; ok {
			return orig
		}
		return m.String()
	}, -1, -1)
	if err != nil {
		return text, fmt.Errorf("reveal: %w", err)
	}
	return out, nil
}

// All reveals repeatedly until no placeholder is left, the text stops
// changing or maxPasses is reached (MaxPasses when maxPasses <= 0).
// Registered placeholders still present at the end are listed in Residual
// and the result is marked Partial.
func (r *Revealer) All(text string, maxPasses int) (Result, error) {
	if maxPasses <= 0 {
		maxPasses = MaxPasses
	}
	res := Result{Text: text}
	for res.Passes < maxPasses && registry.CalcPercent(res.Text) > 0 {
		next, err := r.Reveal(res.Text)
		if err != nil {
			return res, err
		}
		res.Passes++
		if next == res.Text {
			break
		}
		res.Text = next
	}

	res.Percent = registry.CalcPercent(res.Text)
	residual, err := r.residual(res.Text)
	if err != nil {
		return res, err
	}
	res.Residual = residual
	res.Partial = len(residual) > 0
	return res, nil
}

func (r *Revealer) residual(text string) ([]string, error) {
	re, err := r.pattern()
	if err != nil || re == nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		if s := m.String(); !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("reveal: residual: %w", err)
	}
	return out, nil
}

// Reveal is a one-shot single pass against reg.
func Reveal(text string, reg *registry.Registry) (string, error) {
	return New(reg).Reveal(text)
}

// All is a one-shot bounded reveal against reg.
func All(text string, reg *registry.Registry, maxPasses int) (Result, error) {
	return New(reg).All(text, maxPasses)
}
