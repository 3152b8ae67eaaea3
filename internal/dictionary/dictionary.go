// Package dictionary provides the known-word oracle consulted by the
// segmenter and the ANON level. An identifier part the oracle recognises is
// kept verbatim; everything else is replaced by a placeholder.
//
// The engine only depends on the Oracle interface. Set is the default
// implementation, seeded from an embedded vocabulary of common programming
// words and optionally extended from a word file.
package dictionary

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed words.txt
var defaultWords string

// Oracle reports whether a word is a known, non-sensitive word.
// Implementations must be pure and case-insensitive.
type Oracle interface {
	IsKnownWord(word string) bool
}

// Func adapts a plain function to the Oracle interface.
type Func func(word string) bool

// IsKnownWord implements Oracle.
func (f Func) IsKnownWord(word string) bool { return f(word) }

// Always returns an oracle that answers known for every word.
// Always(false) makes the engine obfuscate everything, Always(true) nothing.
func Always(known bool) Oracle {
	return Func(func(string) bool { return known })
}

// Set is a case-insensitive word set.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a Set from the given words.
func NewSet(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	s.Add(words...)
	return s
}

// Default returns a Set seeded with the embedded vocabulary.
func Default() *Set {
	s := NewSet()
	// The embedded list is well-formed; a read error is impossible here.
	_ = s.Load(strings.NewReader(defaultWords))
	return s
}

// Add inserts words; blank input is ignored.
func (s *Set) Add(words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		s.words[w] = struct{}{}
	}
}

// Load adds one word per line from r. Blank lines and lines starting
// with '#' are skipped.
func (s *Set) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Add(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("dictionary: read: %w", err)
	}
	return nil
}

// LoadFile extends the set with the words in path.
func (s *Set) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer f.Close()
	return s.Load(f)
}

// Len returns the number of distinct words.
func (s *Set) Len() int { return len(s.words) }

// IsKnownWord implements Oracle.
func (s *Set) IsKnownWord(word string) bool {
	if word == "" {
		return false
	}
	_, ok := s.words[strings.ToLower(word)]
	return ok
}
