package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/gonkalabs/codeblur/internal/classify"
	"github.com/gonkalabs/codeblur/internal/registry"
)

var (
	identRe    = mustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]{2,}\b`)
	digitRunRe = mustCompile(`[0-9]+`)
)

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = classify.MatchTimeout
	return re
}

// blur protects literals, classifies the code around them and collapses its
// blank lines, then restores string literals and replaces comment bodies.
// Blank lines inside literals are left alone.
func (e *Engine) blur(text string, opts Options) (string, error) {
	masked, prot, err := classify.Protect(text)
	if err != nil {
		return text, err
	}
	out, err := e.cls.Classify(masked)
	if err != nil {
		return text, err
	}
	out = CollapseBlankLines(out)

	var firstErr error
	out = prot.Restore(out, func(lit classify.Literal) string {
		if lit.Kind == classify.CommentLiteral {
			return e.comment(lit.Text)
		}
		s, err := e.stringLiteral(lit.Text, opts)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return s
	})
	if firstErr != nil {
		return text, firstErr
	}
	return out, nil
}

var commentDelims = []struct{ open, close string }{
	{"/*", "*/"},
	{"<!--", "-->"},
}

// comment keeps the comment markers and surrounding whitespace and replaces
// the trimmed body with one placeholder.
func (e *Engine) comment(text string) string {
	open, close := "", ""
	for _, d := range commentDelims {
		if strings.HasPrefix(text, d.open) && strings.HasSuffix(text, d.close) && len(text) >= len(d.open)+len(d.close) {
			open, close = d.open, d.close
			break
		}
	}
	if open == "" {
		open = lineMarker(text)
	}
	body := text[len(open) : len(text)-len(close)]
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || registry.IsFullyObfuscated(trimmed) {
		return text
	}
	lead := body[:strings.Index(body, trimmed)]
	trail := body[len(lead)+len(trimmed):]
	return open + lead + e.reg.Get(trimmed, registry.Comment) + trail + close
}

// lineMarker returns the leading marker of a line comment: "//", "///",
// "//!", "#", "##", "--" and similar runs.
func lineMarker(text string) string {
	switch {
	case strings.HasPrefix(text, "//"):
		n := len(text) - len(strings.TrimLeft(text, "/"))
		if n < len(text) && text[n] == '!' {
			n++
		}
		return text[:n]
	case strings.HasPrefix(text, "#"):
		return text[:len(text)-len(strings.TrimLeft(text, "#"))]
	case strings.HasPrefix(text, "--"):
		return text[:len(text)-len(strings.TrimLeft(text, "-"))]
	}
	return ""
}

// stringLiteral restores a protected string literal. Sensitive shapes inside
// it are always replaced; with FullStringObfuscation the whole content
// becomes one placeholder.
func (e *Engine) stringLiteral(lit string, opts Options) (string, error) {
	quote, content, ok := splitQuoted(lit)
	if !ok || content == "" || registry.IsFullyObfuscated(content) || strings.Contains(content, "${") {
		return lit, nil
	}
	if opts.FullStringObfuscation {
		return quote + e.reg.Get(content, registry.String) + quote, nil
	}
	out, err := e.cls.ClassifySensitive(content)
	if err != nil {
		return lit, err
	}
	return quote + out + quote, nil
}

func splitQuoted(lit string) (quote, content string, ok bool) {
	if len(lit) < 2 {
		return "", "", false
	}
	return lit[:1], lit[1 : len(lit)-1], true
}

// CollapseBlankLines replaces every run of three or more blank lines with a
// single blank line and trims blank lines at both ends. A trailing newline
// is kept.
func CollapseBlankLines(text string) string {
	trailingNewline := strings.HasSuffix(text, "\n")
	lines := strings.Split(text, "\n")

	var out []string
	run := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			run++
			continue
		}
		if len(out) > 0 {
			switch {
			case run >= 3:
				out = append(out, "")
			case run > 0:
				for i := 0; i < run; i++ {
					out = append(out, "")
				}
			}
		}
		run = 0
		out = append(out, line)
	}
	res := strings.Join(out, "\n")
	if trailingNewline && res != "" {
		res += "\n"
	}
	return res
}

var (
	numberMu  sync.Mutex
	numberRes = map[int]*regexp2.Regexp{}
)

// numberPattern matches standalone numbers and identifiers holding a digit
// run, for the given threshold.
func numberPattern(threshold int) *regexp2.Regexp {
	numberMu.Lock()
	defer numberMu.Unlock()
	if re, ok := numberRes[threshold]; ok {
		return re
	}
	n := strconv.Itoa(threshold)
	re := mustCompile(`(?<![A-Za-z0-9_.])[0-9]{` + n + `,}(?:\.[0-9]+)?(?![A-Za-z0-9_])` +
		`|\b[A-Za-z_][A-Za-z0-9_]*[0-9]{` + n + `,}[A-Za-z0-9_]*\b`)
	numberRes[threshold] = re
	return re
}

// numbers replaces numbers with at least opts.NumberThreshold digits. A run
// inside an identifier is replaced in place and the whole identifier is
// registered as an alias of the result, so "password123456" becomes
// "passwordNUM001" and still reveals exactly.
func (e *Engine) numbers(text string, opts Options) (string, error) {
	if opts.NumberThreshold <= 0 {
		return text, nil
	}
	return numberPattern(opts.NumberThreshold).ReplaceFunc(text, func(m regexp2.Match) string {
		s := m.String()
		if s[0] >= '0' && s[0] <= '9' {
			return e.reg.Get(s, registry.Number)
		}
		return e.embeddedNumber(s, opts.NumberThreshold)
	}, -1, -1)
}

func (e *Engine) embeddedNumber(word string, threshold int) string {
	if registry.IsObfuscated(word) {
		return word
	}
	if tok, ok := e.reg.Lookup(word); ok {
		return tok
	}
	out, err := digitRunRe.ReplaceFunc(word, func(m regexp2.Match) string {
		run := m.String()
		if len(run) < threshold {
			return run
		}
		return e.reg.Get(run, registry.Number)
	}, -1, -1)
	if err != nil || out == word {
		return word
	}
	if tok, ok := e.reg.Alias(word, out); ok {
		return tok
	}
	return e.reg.Get(word, registry.Identifier)
}

// stringContents replaces the contents of double-quoted strings and of
// single-quoted strings of four or more characters. With skipFormat,
// contents holding a {…} format placeholder are kept.
func (e *Engine) stringContents(text string, skipFormat bool) string {
	masked, prot, err := classify.Protect(text, classify.StringLiteral)
	if err != nil {
		return text
	}
	return prot.Restore(masked, func(lit classify.Literal) string {
		quote, content, ok := splitQuoted(lit.Text)
		if !ok || quote == "`" || content == "" {
			return lit.Text
		}
		if quote == "'" && len([]rune(content)) < 4 {
			return lit.Text
		}
		if registry.IsFullyObfuscated(content) || (skipFormat && strings.Contains(content, "{")) {
			return lit.Text
		}
		return quote + e.reg.Get(content, registry.String) + quote
	})
}

// identifiers replaces whole identifiers of three or more characters that
// hold no placeholder. With respectDictionary, known words are kept.
func (e *Engine) identifiers(text string, respectDictionary bool) (string, error) {
	return identRe.ReplaceFunc(text, func(m regexp2.Match) string {
		w := m.String()
		if registry.IsObfuscated(w) || (respectDictionary && e.dict.IsKnownWord(w)) {
			return w
		}
		return e.reg.Get(w, registry.Identifier)
	}, -1, -1)
}

// StringsOnly replaces the contents of string literals and nothing else.
// Unlike ANON it also replaces format strings.
func (e *Engine) StringsOnly(text string) string {
	return e.stringContents(text, false)
}

// ApplyMappings rewrites every occurrence of an already registered original
// value in text, longest original first. Comment bodies and multi-line
// values are not re-applied. No new mappings are created.
func (e *Engine) ApplyMappings(text string) (string, error) {
	entries := e.reg.Entries()
	lookup := make(map[string]string, len(entries))
	var originals []string
	for _, en := range entries {
		if strings.Contains(en.Original, "\n") || registry.IsCategory(en.Placeholder, registry.Comment) {
			continue
		}
		lookup[en.Original] = en.Placeholder
		originals = append(originals, en.Original)
	}
	if len(originals) == 0 {
		return text, nil
	}
	sort.Slice(originals, func(i, j int) bool {
		if len(originals[i]) != len(originals[j]) {
			return len(originals[i]) > len(originals[j])
		}
		return originals[i] < originals[j]
	})
	alts := make([]string, len(originals))
	for i, o := range originals {
		alts[i] = regexp2.Escape(o)
	}
	re, err := regexp2.Compile(`(?<![A-Za-z0-9_])(?:`+strings.Join(alts, "|")+`)(?![A-Za-z0-9_])`, regexp2.None)
	if err != nil {
		return text, err
	}
	re.MatchTimeout = classify.MatchTimeout
	return re.ReplaceFunc(text, func(m regexp2.Match) string {
		if tok, ok := lookup[m.String()]; ok {
			return tok
		}
		return m.String()
	}, -1, -1)
}

// ReplaceWord replaces every whole-word occurrence of word in text with
// repl.
func ReplaceWord(text, word, repl string) (string, error) {
	if word == "" {
		return text, nil
	}
	re, err := regexp2.Compile(`(?<![A-Za-z0-9_])`+regexp2.Escape(word)+`(?![A-Za-z0-9_])`, regexp2.None)
	if err != nil {
		return text, err
	}
	re.MatchTimeout = classify.MatchTimeout
	return re.ReplaceFunc(text, func(regexp2.Match) string { return repl }, -1, -1)
}
