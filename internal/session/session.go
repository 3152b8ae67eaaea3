// Package session is the caller boundary of the engine: one registry, the
// cyclic level index, options and a bounded undo stack. A Session is not
// safe for concurrent use; callers serialize access.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/gonkalabs/codeblur/internal/dictionary"
	"github.com/gonkalabs/codeblur/internal/pipeline"
	"github.com/gonkalabs/codeblur/internal/registry"
	"github.com/gonkalabs/codeblur/internal/reveal"
)

// UndoLimit is the number of snapshots kept; older ones are discarded.
const UndoLimit = 20

var (
	ErrUnknownLevel  = errors.New("session: unknown level")
	ErrUnknownStyle  = errors.New("session: unknown style")
	ErrNothingToUndo = errors.New("session: nothing to undo")
	ErrNotIdentifier = errors.New("session: not an identifier")
)

// Options are the per-session pipeline options.
type Options = pipeline.Options

// Config configures a new Session.
type Config struct {
	Style      string
	Dictionary dictionary.Oracle
	Options    Options
}

type snapshot struct {
	text  string
	reg   registry.Snapshot
	level int
}

// Session holds the engine state of one caller.
type Session struct {
	dict  dictionary.Oracle
	reg   *registry.Registry
	eng   *pipeline.Engine
	rev   *reveal.Revealer
	opts  Options
	level int
	undo  []snapshot
}

// New returns an empty session. A nil dictionary uses dictionary.Default.
func New(cfg Config) *Session {
	if cfg.Dictionary == nil {
		cfg.Dictionary = dictionary.Default()
	}
	s := &Session{dict: cfg.Dictionary, opts: cfg.Options}
	s.attach(registry.New(registry.StyleOrDefault(cfg.Style)))
	return s
}

func (s *Session) attach(reg *registry.Registry) {
	s.reg = reg
	s.eng = pipeline.New(reg, s.dict)
	s.rev = reveal.New(reg)
}

// Registry returns the session registry.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Options returns the current options.
func (s *Session) Options() Options { return s.opts }

// SetOptions replaces the options used by later level runs.
func (s *Session) SetOptions(o Options) {
	if o.NumberThreshold < 0 {
		o.NumberThreshold = 0
	}
	s.opts = o
}

// Style returns the active style name.
func (s *Session) Style() string { return s.reg.Style().Name }

// SetStyle changes the style for new placeholders. Existing mappings keep
// their prefixes.
func (s *Session) SetStyle(name string) error {
	style, ok := registry.LookupStyle(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	s.reg.SetStyle(style)
	return nil
}

// Level returns the index of the level ApplyNext will run.
func (s *Session) Level() int { return s.level }

// NextLevel returns the name of the level ApplyNext will run.
func (s *Session) NextLevel() string { return pipeline.Levels()[s.level].Name }

// UndoDepth returns the number of snapshots available to Undo.
func (s *Session) UndoDepth() int { return len(s.undo) }

func (s *Session) push(text string) {
	s.undo = append(s.undo, snapshot{text: text, reg: s.reg.Snapshot(), level: s.level})
	if len(s.undo) > UndoLimit {
		s.undo = append(s.undo[:0:0], s.undo[len(s.undo)-UndoLimit:]...)
	}
}

// drop discards the most recent snapshot after a failed operation.
func (s *Session) drop() {
	s.undo = s.undo[:len(s.undo)-1]
}

// Apply runs the named level over text. The level after it becomes the next
// level, wrapping after NUKE.
func (s *Session) Apply(name, text string) (string, error) {
	level, pos, ok := pipeline.Lookup(name)
	if !ok {
		return text, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	s.push(text)
	out, err := s.eng.Run(level, text, s.opts)
	if err != nil {
		s.drop()
		return text, err
	}
	s.level = (pos + 1) % len(pipeline.Levels())
	slog.Debug("session: applied level", "level", level.Name, "mappings", s.reg.Len())
	return out, nil
}

// ApplyNext runs the next level in the cycle and returns its name.
func (s *Session) ApplyNext(text string) (string, string, error) {
	name := s.NextLevel()
	out, err := s.Apply(name, text)
	return out, name, err
}

// Reveal runs a single reveal pass and resets the level cycle.
func (s *Session) Reveal(text string) (string, error) {
	s.push(text)
	out, err := s.rev.Reveal(text)
	if err != nil {
		s.drop()
		return text, err
	}
	s.level = 0
	return out, nil
}

// RevealAll reveals until nothing is left or reveal.MaxPasses is reached,
// and resets the level cycle.
func (s *Session) RevealAll(text string) (reveal.Result, error) {
	s.push(text)
	res, err := s.rev.All(text, reveal.MaxPasses)
	if err != nil {
		s.drop()
		return res, err
	}
	if res.Partial {
		slog.Warn("session: partial reveal", "passes", res.Passes, "percent", res.Percent, "residual", len(res.Residual))
	}
	s.level = 0
	return res, nil
}

// StringsOnly replaces string literal contents and nothing else.
func (s *Session) StringsOnly(text string) string {
	s.push(text)
	return s.eng.StringsOnly(text)
}

// Paste re-applies existing mappings to freshly inserted text and resets
// the level cycle. No new mappings are created.
func (s *Session) Paste(text string) (string, error) {
	s.push(text)
	out, err := s.eng.ApplyMappings(text)
	if err != nil {
		s.drop()
		return text, err
	}
	s.level = 0
	return out, nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Pin obfuscates every whole-word occurrence of a single identifier.
func (s *Session) Pin(text, word string) (string, error) {
	if !identRe.MatchString(word) {
		return text, fmt.Errorf("%w: %q", ErrNotIdentifier, word)
	}
	s.push(text)
	snap := s.undo[len(s.undo)-1].reg
	out, err := pipeline.ReplaceWord(text, word, s.reg.Get(word, registry.Identifier))
	if err != nil {
		s.reg.Restore(snap)
		s.drop()
		return text, err
	}
	return out, nil
}

// Clear empties the registry and resets the level cycle. It can be undone;
// the text returned by that Undo is empty.
func (s *Session) Clear() {
	s.push("")
	s.reg.Clear()
	s.level = 0
}

// Undo restores the registry and level saved by the most recent operation
// and returns the text that operation received.
func (s *Session) Undo() (string, error) {
	if len(s.undo) == 0 {
		return "", ErrNothingToUndo
	}
	snap := s.undo[len(s.undo)-1]
	s.drop()
	s.reg.Restore(snap.reg)
	s.level = snap.level
	return snap.text, nil
}

// Percent returns the placeholder share of text, 0 to 100.
func (s *Session) Percent(text string) int {
	return registry.CalcPercent(text)
}

// Record captures the persistent state.
func (s *Session) Record() registry.Record {
	return s.reg.Record(s.level)
}

// MarshalJSON encodes the persistent state.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// Load replaces the session state with a persisted record. Malformed input
// yields an empty registry; an out-of-range level becomes 0. The undo stack
// is cleared.
func (s *Session) Load(data []byte) {
	reg, level := registry.Load(data)
	if level < 0 || level >= len(pipeline.Levels()) {
		level = 0
	}
	s.attach(reg)
	s.level = level
	s.undo = nil
}
