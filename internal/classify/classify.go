// Package classify finds sensitive spans in source text and replaces them
// with registry placeholders.
//
// Detection is a single ordered chain (see Detectors): at every position the
// first detector that matches wins, and the leftmost match in the text is
// taken first. String literals and comments are recognised by a separate
// lexer (Protect) so that punctuation inside them is never read as code.
package classify

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/gonkalabs/codeblur/internal/dictionary"
	"github.com/gonkalabs/codeblur/internal/registry"
	"github.com/gonkalabs/codeblur/internal/segment"
)

// MatchTimeout bounds a single regex evaluation. Input that exceeds it is
// left unclassified and reported as an error.
const MatchTimeout = 2 * time.Second

// Span is one detected region. Start and End are byte offsets into the
// scanned text.
type Span struct {
	Start    int
	End      int
	Detector string
	Kind     Kind
	Category registry.Category
	Text     string
}

var (
	chainsOnce sync.Once
	chains     []*regexp2.Regexp // chains[i] alternates detectors[i:]
)

func groupName(i int) string { return "d" + strconv.Itoa(i) }

func compileChains() {
	chains = make([]*regexp2.Regexp, len(detectors))
	for i := range detectors {
		var b strings.Builder
		for j := i; j < len(detectors); j++ {
			if j > i {
				b.WriteByte('|')
			}
			fmt.Fprintf(&b, "(?<%s>%s)", groupName(j), detectors[j].Pattern)
		}
		re := regexp2.MustCompile(b.String(), regexp2.None)
		re.MatchTimeout = MatchTimeout
		chains[i] = re
	}
}

func chain(i int) *regexp2.Regexp {
	chainsOnce.Do(compileChains)
	return chains[i]
}

// Scan returns every detected span in text, left to right, without touching
// any registry.
func Scan(text string) ([]Span, error) {
	runes := []rune(text)
	offsets := byteOffsets(runes)

	var spans []Span
	pos := 0
	for pos < len(runes) {
		m, err := chain(0).FindRunesMatchStartingAt(runes, pos)
		if err != nil {
			return nil, fmt.Errorf("classify: scan: %w", err)
		}
		if m == nil {
			break
		}
		start := m.Index
		idx, m, err := resolve(runes, m, 0)
		if err != nil {
			return nil, fmt.Errorf("classify: scan: %w", err)
		}
		if idx < 0 || m.Length == 0 {
			pos = start + 1
			continue
		}
		d := detectors[idx]
		end := start + m.Length
		spans = append(spans, Span{
			Start:    offsets[start],
			End:      offsets[end],
			Detector: d.Name,
			Kind:     d.Kind,
			Category: d.Category,
			Text:     m.String(),
		})
		pos = end
	}
	return spans, nil
}

// resolve finds the detector responsible for m, a match of chain(base). If
// that detector's Accept rejects the text, the remaining detectors are tried
// at the same position. It returns -1 when nothing accepts.
func resolve(runes []rune, m *regexp2.Match, base int) (int, *regexp2.Match, error) {
	start := m.Index
	for {
		idx := -1
		for j := base; j < len(detectors); j++ {
			if g := m.GroupByName(groupName(j)); g != nil && len(g.Captures) > 0 {
				idx = j
				break
			}
		}
		if idx < 0 {
			return -1, nil, nil
		}
		if accept := detectors[idx].Accept; accept == nil || accept(m.String()) {
			return idx, m, nil
		}
		base = idx + 1
		if base >= len(detectors) {
			return -1, nil, nil
		}
		next, err := chain(base).FindRunesMatchStartingAt(runes, start)
		if err != nil {
			return -1, nil, err
		}
		if next == nil || next.Index != start {
			return -1, nil, nil
		}
		m = next
	}
}

// byteOffsets maps rune index i to its byte offset; the extra final entry is
// the total length.
func byteOffsets(runes []rune) []int {
	offsets := make([]int, len(runes)+1)
	n := 0
	for i, r := range runes {
		offsets[i] = n
		n += len(string(r))
	}
	offsets[len(runes)] = n
	return offsets
}

// Classifier rewrites detected spans through a registry.
type Classifier struct {
	reg  *registry.Registry
	blur *segment.Blurrer
}

// New returns a Classifier writing to reg. Identifiers go through the
// segmenter with dict deciding which parts are kept.
func New(reg *registry.Registry, dict dictionary.Oracle) *Classifier {
	return &Classifier{reg: reg, blur: segment.New(reg, dict)}
}

// Classify replaces every detected span with its placeholder. Spans already
// shaped like placeholders are left alone. On error the text is returned
// unchanged and the registry is not touched.
func (c *Classifier) Classify(text string) (string, error) {
	return c.rewrite(text, true)
}

// ClassifySensitive is Classify without the identifier detector: only
// addresses, secrets, paths, numbers and similar shapes are replaced.
func (c *Classifier) ClassifySensitive(text string) (string, error) {
	return c.rewrite(text, false)
}

func (c *Classifier) rewrite(text string, identifiers bool) (string, error) {
	spans, err := Scan(text)
	if err != nil {
		return text, err
	}
	if len(spans) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.Start])
		b.WriteString(c.replace(s, identifiers))
		last = s.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func (c *Classifier) replace(s Span, identifiers bool) string {
	if s.Text == "" || registry.IsFullyObfuscated(s.Text) {
		return s.Text
	}
	if s.Kind == KindIdentifier {
		if !identifiers {
			return s.Text
		}
		return c.blur.BlurWord(s.Text)
	}
	return c.reg.Get(s.Text, s.Category)
}
