// Package registry holds the bidirectional store of original values and the
// placeholders that replace them.
//
// A placeholder is a style prefix followed by a per-prefix counter padded to
// PadWidth digits ("A001", "STR012"). Once assigned, an original/placeholder
// pair is never changed or reassigned for the lifetime of the registry, so
// the mapping stays a bijection and any text it produced can be revealed.
//
// Usage:
//
//	reg := registry.New(registry.StyleOrDefault("minimal"))
//	tok := reg.Get("customerId", registry.Identifier) // "A001"
//	orig, _ := reg.Original(tok)                      // "customerId"
package registry

import (
	"sort"
)

// Registry maps original values to placeholders and back.
// It is not safe for concurrent use; callers serialize access.
type Registry struct {
	toToken   map[string]string // original value → placeholder
	fromToken map[string]string // placeholder → original value
	counters  map[string]int    // prefix → last allocated counter
	style     Style
	revision  uint64
}

// New creates an empty registry allocating new placeholders under style.
func New(style Style) *Registry {
	return &Registry{
		toToken:   make(map[string]string),
		fromToken: make(map[string]string),
		counters:  make(map[string]int),
		style:     style,
	}
}

// Get returns the placeholder for value, allocating the next one for the
// category's prefix if value has not been seen. It never fails.
func (r *Registry) Get(value string, cat Category) string {
	if tok, ok := r.toToken[value]; ok {
		return tok
	}
	prefix := r.style.prefix(cat, len(r.toToken))
	var tok string
	for {
		r.counters[prefix]++
		tok = format(prefix, r.counters[prefix])
		// A loaded record may already hold this placeholder.
		if _, taken := r.fromToken[tok]; !taken {
			break
		}
	}
	r.put(value, tok)
	return tok
}

// Alias registers original as rewriting to composite, a string built from
// other placeholders and verbatim text. If original is already mapped its
// existing placeholder is returned. Alias refuses, returning false, when
// composite is already the placeholder of a different value.
func (r *Registry) Alias(original, composite string) (string, bool) {
	if tok, ok := r.toToken[original]; ok {
		return tok, true
	}
	if original == composite {
		return "", false
	}
	if _, taken := r.fromToken[composite]; taken {
		return "", false
	}
	r.put(original, composite)
	return composite, true
}

func (r *Registry) put(original, tok string) {
	r.toToken[original] = tok
	r.fromToken[tok] = original
	r.revision++
}

// Lookup returns the placeholder already assigned to value.
func (r *Registry) Lookup(value string) (string, bool) {
	tok, ok := r.toToken[value]
	return tok, ok
}

// Original returns the value a placeholder stands for.
func (r *Registry) Original(tok string) (string, bool) {
	orig, ok := r.fromToken[tok]
	return orig, ok
}

// Reverse returns a copy of the placeholder → original map.
func (r *Registry) Reverse() map[string]string {
	out := make(map[string]string, len(r.fromToken))
	for tok, orig := range r.fromToken {
		out[tok] = orig
	}
	return out
}

// Len returns the number of registered values.
func (r *Registry) Len() int {
	return len(r.toToken)
}

// IsEmpty reports whether nothing has been registered.
func (r *Registry) IsEmpty() bool {
	return len(r.toToken) == 0
}

// Revision changes whenever the mapping set changes. Callers use it to
// invalidate anything derived from the mappings.
func (r *Registry) Revision() uint64 {
	return r.revision
}

// Style returns the style used for new placeholders.
func (r *Registry) Style() Style {
	return r.style
}

// SetStyle switches the style for placeholders allocated from now on.
// Existing mappings keep their prefixes.
func (r *Registry) SetStyle(style Style) {
	r.style = style
}

// Entry is one registered mapping.
type Entry struct {
	Original    string `json:"original"`
	Placeholder string `json:"placeholder"`
}

// Entries returns all mappings ordered by placeholder.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.toToken))
	for orig, tok := range r.toToken {
		out = append(out, Entry{Original: orig, Placeholder: tok})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Placeholder < out[j].Placeholder })
	return out
}

// Clear drops every mapping and counter. The style is kept.
func (r *Registry) Clear() {
	r.toToken = make(map[string]string)
	r.fromToken = make(map[string]string)
	r.counters = make(map[string]int)
	r.revision++
}

// Snapshot is an immutable copy of the registry state.
type Snapshot struct {
	mappings map[string]string
	counters map[string]int
	style    Style
}

// Len returns the number of mappings captured.
func (s Snapshot) Len() int { return len(s.mappings) }

// Snapshot captures the current state.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		mappings: copyMap(r.toToken),
		counters: copyMap(r.counters),
		style:    r.style,
	}
}

// Restore replaces the whole state with s in one step.
func (r *Registry) Restore(s Snapshot) {
	r.toToken = copyMap(s.mappings)
	r.fromToken = make(map[string]string, len(s.mappings))
	for orig, tok := range r.toToken {
		r.fromToken[tok] = orig
	}
	r.counters = copyMap(s.counters)
	r.style = s.style
	r.revision++
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
