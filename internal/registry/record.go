package registry

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// RecordVersion is written into every persisted record.
const RecordVersion = 1

// Record is the flat, JSON-compatible form of a registry plus the caller's
// level index.
type Record struct {
	Version  int               `json:"version"`
	Style    string            `json:"style"`
	Level    int               `json:"level"`
	Mappings map[string]string `json:"mappings"`
	Counters map[string]int    `json:"counters"`
	Digest   string            `json:"digest,omitempty"`
}

// Record captures the registry for persistence.
func (r *Registry) Record(level int) Record {
	rec := Record{
		Version:  RecordVersion,
		Style:    r.style.Name,
		Level:    level,
		Mappings: copyMap(r.toToken),
		Counters: copyMap(r.counters),
	}
	rec.Digest = digest(rec.Mappings)
	return rec
}

// digest is a BLAKE2b-256 over the mappings in placeholder order.
func digest(mappings map[string]string) string {
	type pair struct{ orig, tok string }
	pairs := make([]pair, 0, len(mappings))
	for orig, tok := range mappings {
		pairs = append(pairs, pair{orig, tok})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].tok < pairs[j].tok })

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.tok)
		b.WriteByte(0)
		b.WriteString(p.orig)
		b.WriteByte('\n')
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Load rebuilds a registry from a persisted record and returns it with the
// stored level index. It never fails: malformed JSON yields an empty
// registry, and individual invalid entries are dropped while the rest are
// kept. Counters are raised as needed so that new placeholders can never
// collide with loaded ones.
func Load(data []byte) (*Registry, int) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("registry: corrupt record, starting empty", "err", err)
		return New(StyleOrDefault(DefaultStyle)), 0
	}

	var styleName string
	if v, ok := raw["style"]; ok {
		if err := json.Unmarshal(v, &styleName); err != nil {
			slog.Warn("registry: invalid style field", "err", err)
		}
	}
	style, ok := LookupStyle(styleName)
	if !ok {
		if styleName != "" {
			slog.Warn("registry: unknown style, using default", "style", styleName, "default", DefaultStyle)
		}
		style = StyleOrDefault(DefaultStyle)
	}
	reg := New(style)

	level := 0
	if v, ok := raw["level"]; ok {
		if err := json.Unmarshal(v, &level); err != nil || level < 0 {
			slog.Warn("registry: invalid level, resetting", "raw", string(v))
			level = 0
		}
	}

	dropped := reg.loadMappings(raw["mappings"])
	reg.loadCounters(raw["counters"])
	reg.reconcileCounters()

	if v, ok := raw["digest"]; ok && dropped == 0 {
		var want string
		if err := json.Unmarshal(v, &want); err == nil && want != "" && want != digest(reg.toToken) {
			slog.Warn("registry: record digest mismatch", "entries", reg.Len())
		}
	}
	if dropped > 0 {
		slog.Warn("registry: dropped invalid entries", "dropped", dropped, "kept", reg.Len())
	}
	return reg, level
}

func (r *Registry) loadMappings(data json.RawMessage) int {
	if len(data) == 0 {
		return 0
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("registry: mappings is not an object", "err", err)
		return 1
	}

	// Deterministic order so duplicate placeholders always keep the same owner.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dropped := 0
	for _, orig := range keys {
		var tok string
		if err := json.Unmarshal(entries[orig], &tok); err != nil {
			dropped++
			continue
		}
		if orig == "" || tok == "" || orig == tok || !IsObfuscated(tok) {
			dropped++
			continue
		}
		if _, taken := r.fromToken[tok]; taken {
			dropped++
			continue
		}
		r.toToken[orig] = tok
		r.fromToken[tok] = orig
	}
	return dropped
}

func (r *Registry) loadCounters(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var counters map[string]json.RawMessage
	if err := json.Unmarshal(data, &counters); err != nil {
		slog.Warn("registry: counters is not an object", "err", err)
		return
	}
	for prefix, v := range counters {
		var n int
		if err := json.Unmarshal(v, &n); err != nil || n < 0 || prefix == "" {
			continue
		}
		r.counters[prefix] = n
	}
}

// reconcileCounters raises each counter to at least the highest value found
// in a loaded placeholder, composite ones included.
func (r *Registry) reconcileCounters() {
	for tok := range r.fromToken {
		for _, t := range Tokens(tok) {
			prefix, n, ok := parseToken(t)
			if !ok {
				continue
			}
			if n > r.counters[prefix] {
				r.counters[prefix] = n
			}
		}
	}
}
