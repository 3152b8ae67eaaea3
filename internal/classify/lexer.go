package classify

import (
	"errors"
	"strings"
	"unicode"
)

// LiteralKind distinguishes string literals from comments.
type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	CommentLiteral
)

// Literal is a string literal or comment found by the lexer. Start and End
// are rune offsets.
type Literal struct {
	Kind  LiteralKind
	Start int
	End   int
	Text  string
}

// Lex finds string literals and comments in one left-to-right pass; whichever
// construct starts first wins, so a '#' inside a string or a quote inside a
// comment is never misread. Unterminated constructs are left as code.
//
//	"..." '...'  single line, backslash escapes
//	`...`        may span lines; never a literal when it contains ${
//	/* */ <!-- -->
//	//           unless preceded by ':' (URLs)
//	#            at line start or after whitespace; not a colour or directive
//	--           at line start or after whitespace, followed by space or EOL
func Lex(text string) []Literal {
	l := &lexer{r: []rune(text)}
	var out []Literal
	for i := 0; i < len(l.r); {
		end, kind, ok := l.literalAt(i)
		if !ok {
			i++
			continue
		}
		out = append(out, Literal{Kind: kind, Start: i, End: end, Text: string(l.r[i:end])})
		i = end
	}
	return out
}

// lexer remembers failed scans so that unterminated openers cost one scan in
// total rather than one each.
type lexer struct {
	r []rune
	// quoteFail[q] is where the last failed scan for quote q stopped. An
	// opener of the same quote before that point was escaped in that scan, so
	// its own scan would fail at the same place.
	quoteFail map[rune]int
	// closeFail[c] is the offset from which no closer c exists.
	closeFail map[string]int
}

func (l *lexer) literalAt(i int) (int, LiteralKind, bool) {
	r := l.r
	switch c := r[i]; c {
	case '"', '\'':
		if end, ok := l.quoted(i, c, false); ok {
			return end, StringLiteral, true
		}
	case '`':
		if end, ok := l.quoted(i, c, true); ok && !strings.Contains(string(r[i:end]), "${") {
			return end, StringLiteral, true
		}
	case '/':
		if hasAt(r, i, "/*") {
			if end, ok := l.until(i+2, "*/"); ok {
				return end, CommentLiteral, true
			}
		}
		if hasAt(r, i, "//") && (i == 0 || r[i-1] != ':') {
			return lineEnd(r, i), CommentLiteral, true
		}
	case '<':
		if hasAt(r, i, "<!--") {
			if end, ok := l.until(i+4, "-->"); ok {
				return end, CommentLiteral, true
			}
		}
	case '#':
		if atWordStart(r, i) && !isColour(r, i) && !isDirective(r, i) {
			return lineEnd(r, i), CommentLiteral, true
		}
	case '-':
		if hasAt(r, i, "--") && atWordStart(r, i) && (i+2 == len(r) || unicode.IsSpace(r[i+2])) {
			return lineEnd(r, i), CommentLiteral, true
		}
	}
	return 0, 0, false
}

// quoted returns the end of a quoted literal opened at i.
func (l *lexer) quoted(i int, quote rune, multiline bool) (int, bool) {
	if stop, ok := l.quoteFail[quote]; ok && i < stop {
		return 0, false
	}
	r := l.r
	j := i + 1
scan:
	for ; j < len(r); j++ {
		switch r[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		case '\n':
			if !multiline {
				break scan
			}
		}
	}
	if l.quoteFail == nil {
		l.quoteFail = make(map[rune]int)
	}
	l.quoteFail[quote] = j
	return 0, false
}

func (l *lexer) until(from int, closer string) (int, bool) {
	if at, ok := l.closeFail[closer]; ok && from >= at {
		return 0, false
	}
	r := l.r
	n := len(closer)
	for j := from; j+n <= len(r); j++ {
		if hasAt(r, j, closer) {
			return j + n, true
		}
	}
	if l.closeFail == nil {
		l.closeFail = make(map[string]int)
	}
	l.closeFail[closer] = from
	return 0, false
}

func hasAt(r []rune, i int, s string) bool {
	for k, c := range s {
		// s is ASCII, so byte index k equals rune index.
		if i+k >= len(r) || r[i+k] != c {
			return false
		}
	}
	return true
}

func lineEnd(r []rune, i int) int {
	for j := i; j < len(r); j++ {
		if r[j] == '\n' {
			return j
		}
	}
	return len(r)
}

func atWordStart(r []rune, i int) bool {
	return i == 0 || unicode.IsSpace(r[i-1])
}

// isColour reports a CSS hex colour such as #fff or #1a2b3c.
func isColour(r []rune, i int) bool {
	n := 0
	for j := i + 1; j < len(r) && isHexRune(r[j]); j++ {
		n++
	}
	if n != 3 && n != 4 && n != 6 && n != 8 {
		return false
	}
	end := i + 1 + n
	return end == len(r) || !isWordRune(r[end])
}

var directives = []string{
	"include", "define", "undef", "ifdef", "ifndef", "if", "elif", "else", "endif",
	"pragma", "region", "endregion", "error", "warning", "line", "import",
}

// isDirective reports a C-family preprocessor line, a shebang or a Rust
// attribute.
func isDirective(r []rune, i int) bool {
	if (hasAt(r, i, "#!") && i == 0) || hasAt(r, i, "#[") || hasAt(r, i, "#![") {
		return true
	}
	j := i + 1
	for j < len(r) && isWordRune(r[j]) {
		j++
	}
	word := string(r[i+1 : j])
	for _, d := range directives {
		if word == d {
			return true
		}
	}
	return false
}

func isHexRune(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isWordRune(c rune) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ErrNoMarkerSpace is returned by Protect when the text already uses both
// private-use planes the markers are drawn from.
var ErrNoMarkerSpace = errors.New("classify: no free marker range")

const (
	planeSize   = 0xFFFE
	planeA      = 0xF0000
	planeB      = 0x100000
	markerLimit = planeSize
)

// Protected holds literals replaced by single-rune markers.
type Protected struct {
	Literals []Literal
	base     rune
}

// Protect replaces every literal of the given kinds with an opaque marker
// rune that no detector matches, returning the masked text.
func Protect(text string, kinds ...LiteralKind) (string, *Protected, error) {
	base, err := markerBase(text)
	if err != nil {
		return text, nil, err
	}
	want := func(k LiteralKind) bool {
		for _, w := range kinds {
			if w == k {
				return true
			}
		}
		return len(kinds) == 0
	}

	runes := []rune(text)
	p := &Protected{base: base}
	var b strings.Builder
	last := 0
	for _, lit := range Lex(text) {
		if !want(lit.Kind) {
			continue
		}
		if len(p.Literals) == markerLimit {
			return text, nil, ErrNoMarkerSpace
		}
		b.WriteString(string(runes[last:lit.Start]))
		b.WriteRune(base + rune(len(p.Literals)))
		p.Literals = append(p.Literals, lit)
		last = lit.End
	}
	b.WriteString(string(runes[last:]))
	return b.String(), p, nil
}

func markerBase(text string) (rune, error) {
	usedA, usedB := false, false
	for _, r := range text {
		switch {
		case r >= planeA && r < planeA+planeSize:
			usedA = true
		case r >= planeB && r < planeB+planeSize:
			usedB = true
		}
	}
	switch {
	case !usedA:
		return planeA, nil
	case !usedB:
		return planeB, nil
	}
	return 0, ErrNoMarkerSpace
}

// Restore puts the literals back, passing each through fn first. A nil fn
// restores them verbatim.
func (p *Protected) Restore(text string, fn func(Literal) string) string {
	if p == nil || len(p.Literals) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		i := int(r - p.base)
		if i < 0 || i >= len(p.Literals) {
			b.WriteRune(r)
			continue
		}
		lit := p.Literals[i]
		if fn == nil {
			b.WriteString(lit.Text)
		} else {
			b.WriteString(fn(lit))
		}
	}
	return b.String()
}
