package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	reg := New(StyleOrDefault("hacker"))
	reg.Get("customer", Identifier)
	reg.Get("hello world", String)
	_, ok := reg.Alias("customerName", "X0R001Name")
	require.True(t, ok)

	data, err := json.Marshal(reg.Record(2))
	require.NoError(t, err)

	loaded, level := Load(data)
	assert.Equal(t, 2, level)
	assert.Equal(t, "hacker", loaded.Style().Name)
	if diff := cmp.Diff(reg.Entries(), loaded.Entries()); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	// Counters continue where they left off.
	assert.Equal(t, "STR002", loaded.Get("another", String))
}

func TestLoadCorruptJSON(t *testing.T) {
	for _, data := range []string{"", "{", "[1,2,3]", "null garbage"} {
		reg, level := Load([]byte(data))
		assert.True(t, reg.IsEmpty(), data)
		assert.Equal(t, 0, level, data)
		assert.Equal(t, DefaultStyle, reg.Style().Name)
	}
}

func TestLoadDropsInvalidEntries(t *testing.T) {
	data := `{
		"version": 1,
		"style": "minimal",
		"level": 1,
		"mappings": {
			"good": "A001",
			"": "B001",
			"empty": "",
			"number": 42,
			"notToken": "hello",
			"dupA": "C001",
			"dupB": "C001"
		},
		"counters": {"A": "x", "C": 1}
	}`
	reg, level := Load([]byte(data))
	assert.Equal(t, 1, level)
	assert.Equal(t, 2, reg.Len())

	orig, ok := reg.Original("A001")
	require.True(t, ok)
	assert.Equal(t, "good", orig)
	orig, ok = reg.Original("C001")
	require.True(t, ok)
	assert.Equal(t, "dupA", orig)
}

func TestLoadReconcilesCounters(t *testing.T) {
	data := `{"style":"minimal","mappings":{"a":"STR007","b":"G001STR009"},"counters":{"STR":2}}`
	reg, _ := Load([]byte(data))
	assert.Equal(t, "STR010", reg.Get("fresh", String))
}

func TestLoadUnknownStyleAndBadLevel(t *testing.T) {
	reg, level := Load([]byte(`{"style":"vaporwave","level":-3,"mappings":{}}`))
	assert.Equal(t, DefaultStyle, reg.Style().Name)
	assert.Equal(t, 0, level)

	_, level = Load([]byte(`{"level":"two"}`))
	assert.Equal(t, 0, level)
}

func TestLoadDigestMismatchKeepsEntries(t *testing.T) {
	reg := New(minimal())
	reg.Get("value", Identifier)
	rec := reg.Record(0)
	rec.Digest = "deadbeef"
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	loaded, _ := Load(data)
	assert.Equal(t, 1, loaded.Len())
}

func TestRecordDigestIsDeterministic(t *testing.T) {
	a := New(minimal())
	b := New(minimal())
	for _, v := range []string{"x1", "x2", "x3"} {
		a.Get(v, Identifier)
		b.Get(v, Identifier)
	}
	assert.Equal(t, a.Record(0).Digest, b.Record(0).Digest)
	assert.Len(t, a.Record(0).Digest, 64)
}
