// Package pipeline runs the obfuscation levels BLUR, ANON and NUKE over
// source text. Each level is an ordered list of passes; every pass reads the
// text and the shared registry and returns the rewritten text.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/gonkalabs/codeblur/internal/classify"
	"github.com/gonkalabs/codeblur/internal/dictionary"
	"github.com/gonkalabs/codeblur/internal/registry"
)

// DefaultNumberThreshold is the minimum digit count ANON replaces.
const DefaultNumberThreshold = 4

// Options tune a level run.
type Options struct {
	// NumberThreshold is the minimum digit count for ANON to replace a
	// number. Zero disables number replacement.
	NumberThreshold int
	// FullStringObfuscation makes BLUR replace whole string contents.
	FullStringObfuscation bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{NumberThreshold: DefaultNumberThreshold}
}

// Pass is one named step of a level.
type Pass struct {
	Name string
	Run  func(e *Engine, text string, opts Options) (string, error)
}

// Level is a named, ordered list of passes.
type Level struct {
	Name   string
	Passes []Pass
}

// Level names.
const (
	Blur = "BLUR"
	Anon = "ANON"
	Nuke = "NUKE"
)

var levels = []Level{
	{Name: Blur, Passes: []Pass{
		{Name: "classify", Run: (*Engine).blur},
	}},
	{Name: Anon, Passes: []Pass{
		{Name: "numbers", Run: (*Engine).numbers},
		{Name: "strings", Run: func(e *Engine, text string, _ Options) (string, error) {
			return e.stringContents(text, true), nil
		}},
		{Name: "identifiers", Run: func(e *Engine, text string, _ Options) (string, error) {
			return e.identifiers(text, true)
		}},
	}},
	{Name: Nuke, Passes: []Pass{
		{Name: "identifiers", Run: func(e *Engine, text string, _ Options) (string, error) {
			return e.identifiers(text, false)
		}},
	}},
}

// Levels returns the levels in application order.
func Levels() []Level {
	return append([]Level(nil), levels...)
}

// Names returns the level names in application order.
func Names() []string {
	return lo.Map(levels, func(l Level, _ int) string { return l.Name })
}

// Lookup finds a level by name, case-insensitively.
func Lookup(name string) (Level, int, bool) {
	for i, l := range levels {
		if strings.EqualFold(l.Name, name) {
			return l, i, true
		}
	}
	return Level{}, -1, false
}

// Engine applies levels against one registry.
type Engine struct {
	reg  *registry.Registry
	dict dictionary.Oracle
	cls  *classify.Classifier
}

// New returns an Engine writing placeholders to reg and consulting dict.
func New(reg *registry.Registry, dict dictionary.Oracle) *Engine {
	return &Engine{reg: reg, dict: dict, cls: classify.New(reg, dict)}
}

// Registry returns the registry the engine writes to.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Run applies every pass of level in order. If any pass fails the registry
// is rolled back to its state before the run and the input is returned with
// the error.
func (e *Engine) Run(level Level, text string, opts Options) (string, error) {
	snap := e.reg.Snapshot()
	out := text
	for _, p := range level.Passes {
		next, err := p.Run(e, out, opts)
		if err != nil {
			e.reg.Restore(snap)
			return text, fmt.Errorf("pipeline: %s: %s: %w", level.Name, p.Name, err)
		}
		out = next
	}
	return out, nil
}

// Apply runs the named level.
func (e *Engine) Apply(name, text string, opts Options) (string, error) {
	level, _, ok := Lookup(name)
	if !ok {
		return text, fmt.Errorf("pipeline: unknown level %q", name)
	}
	return e.Run(level, text, opts)
}
