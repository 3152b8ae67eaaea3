// Package segment splits composite identifiers into sub-words and rewrites
// the parts the dictionary does not recognise.
package segment

import (
	"strings"

	"github.com/gonkalabs/codeblur/internal/dictionary"
	"github.com/gonkalabs/codeblur/internal/registry"
)

// MinLength is the shortest identifier BlurWord will rewrite.
const MinLength = 3

// Split breaks an identifier into its parts. snake_case is split on
// underscores, with every run of underscores kept as its own element.
// Otherwise camelCase and PascalCase are split at lower/digit→upper and
// acronym→Word transitions:
//
//	Split("getUserById") // ["get" "User" "By" "Id"]
//	Split("XMLParser")   // ["XML" "Parser"]
//	Split("MAX_RETRY")   // ["MAX" "_" "RETRY"]
//
// Joining the result always yields the input.
func Split(word string) []string {
	if word == "" {
		return nil
	}
	if strings.Contains(word, "_") {
		return splitSnake(word)
	}
	return splitCamel(word)
}

func splitSnake(word string) []string {
	var parts []string
	start := 0
	for i := 1; i <= len(word); i++ {
		if i == len(word) || (word[i] == '_') != (word[start] == '_') {
			parts = append(parts, word[start:i])
			start = i
		}
	}
	return parts
}

func splitCamel(word string) []string {
	var parts []string
	start := 0
	for i := 1; i < len(word); i++ {
		prev, cur := word[i-1], word[i]
		boundary := (isLower(prev) || isDigit(prev)) && isUpper(cur)
		if !boundary && isUpper(prev) && isUpper(cur) && i+1 < len(word) && isLower(word[i+1]) {
			boundary = true
		}
		if boundary {
			parts = append(parts, word[start:i])
			start = i
		}
	}
	return append(parts, word[start:])
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSeparator(part string) bool {
	return strings.Trim(part, "_") == ""
}

// Blurrer rewrites identifiers against a registry and a dictionary.
type Blurrer struct {
	reg  *registry.Registry
	dict dictionary.Oracle
}

// New returns a Blurrer that allocates placeholders in reg and keeps every
// part dict recognises.
func New(reg *registry.Registry, dict dictionary.Oracle) *Blurrer {
	return &Blurrer{reg: reg, dict: dict}
}

// BlurWord returns the obfuscated form of an identifier.
//
// Identifiers shorter than MinLength, those already containing a
// placeholder and dictionary words come back unchanged. A single-part
// identifier is replaced as a whole. A composite one keeps its known parts
// and separators and has every other part replaced; the whole identifier is
// then registered as an alias of the result so later occurrences rewrite,
// and reveal, in one lookup.
func (b *Blurrer) BlurWord(word string) string {
	if len(word) < MinLength || registry.IsObfuscated(word) || b.dict.IsKnownWord(word) {
		return word
	}
	if tok, ok := b.reg.Lookup(word); ok {
		return tok
	}

	parts := Split(word)
	if len(parts) == 1 {
		return b.reg.Get(word, registry.Identifier)
	}

	var out strings.Builder
	for _, p := range parts {
		if isSeparator(p) || b.dict.IsKnownWord(p) {
			out.WriteString(p)
			continue
		}
		out.WriteString(b.reg.Get(p, registry.Identifier))
	}
	result := out.String()
	if result == word {
		return word
	}
	if tok, ok := b.reg.Alias(word, result); ok {
		return tok
	}
	// The composite is already another value's placeholder.
	return b.reg.Get(word, registry.Identifier)
}
