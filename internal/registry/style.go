package registry

import (
	"sort"

	"github.com/samber/lo"
)

// Category selects the prefix a new placeholder is allocated under.
type Category string

const (
	Identifier Category = "identifier"
	Comment    Category = "comment"
	GUID       Category = "guid"
	Path       Category = "path"
	Func       Category = "func"
	Prop       Category = "prop"
	Field      Category = "field"
	Number     Category = "number"
	String     Category = "string"
)

// Style is a named placeholder preset. Identifiers rotate through Prefixes;
// every other category has a fixed prefix.
type Style struct {
	Name     string
	Prefixes []string
	Fixed    map[Category]string
}

// DefaultStyle is used when no style, or an unknown one, is requested.
const DefaultStyle = "minimal"

var styles = map[string]Style{
	"corporate": {
		Name:     "corporate",
		Prefixes: []string{"PERSON", "ENTITY", "ORG", "ITEM", "NAME", "ID", "REF"},
		Fixed: map[Category]string{
			Comment: "COMMENT", GUID: "GUID", Path: "PATH", Func: "FUNC",
			Prop: "PROP", Field: "FIELD", Number: "NUM", String: "STR",
		},
	},
	"hacker": {
		Name:     "hacker",
		Prefixes: []string{"X0R", "H4CK", "PH1SH", "CR4CK", "R00T", "SH3LL", "BYT3"},
		Fixed: map[Category]string{
			Comment: "N0T3", GUID: "H4SH", Path: "L0C", Func: "X3C",
			Prop: "V4R", Field: "D4T", Number: "NUM", String: "STR",
		},
	},
	"military": {
		Name:     "military",
		Prefixes: []string{"ALPHA", "BRAVO", "DELTA", "ECHO", "FOXTROT", "TANGO", "SIERRA"},
		Fixed: map[Category]string{
			Comment: "INTEL", GUID: "TARGET", Path: "COORD", Func: "OP",
			Prop: "ASSET", Field: "RECON", Number: "NUM", String: "STR",
		},
	},
	"minimal": {
		Name:     "minimal",
		Prefixes: []string{"A", "B", "C", "D", "E", "F", "G"},
		Fixed: map[Category]string{
			Comment: "CMT", GUID: "UID", Path: "PTH", Func: "FN",
			Prop: "P", Field: "F", Number: "NUM", String: "STR",
		},
	},
}

// LookupStyle returns the named style.
func LookupStyle(name string) (Style, bool) {
	s, ok := styles[name]
	return s, ok
}

// StyleOrDefault returns the named style, falling back to DefaultStyle.
func StyleOrDefault(name string) Style {
	if s, ok := styles[name]; ok {
		return s
	}
	return styles[DefaultStyle]
}

// StyleNames lists the available styles in alphabetical order.
func StyleNames() []string {
	names := lo.Keys(styles)
	sort.Strings(names)
	return names
}

// prefix returns the prefix for a category. Identifiers rotate through the
// style's prefixes by the current entry count.
func (s Style) prefix(cat Category, entries int) string {
	if p, ok := s.Fixed[cat]; ok {
		return p
	}
	return s.Prefixes[entries%len(s.Prefixes)]
}

// allPrefixes is the union of every style's prefixes, longest first, so that
// text produced under one style is still recognised under another.
func allPrefixes() []string {
	var all []string
	for _, name := range StyleNames() {
		s := styles[name]
		all = append(all, s.Prefixes...)
		all = append(all, lo.Values(s.Fixed)...)
	}
	all = lo.Uniq(all)
	sort.Slice(all, func(i, j int) bool {
		if len(all[i]) != len(all[j]) {
			return len(all[i]) > len(all[j])
		}
		return all[i] < all[j]
	})
	return all
}
