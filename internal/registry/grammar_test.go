package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObfuscationBoundary(t *testing.T) {
	assert.True(t, IsFullyObfuscated("A001"))
	assert.False(t, IsFullyObfuscated("myA001var"))
	assert.True(t, IsObfuscated("myA001var"))
}

func TestIsFullyObfuscated(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"A001", true},
		{"G001STR001", true},
		{"STR1000", true},
		{"PERSON012", true},
		{"X0R001", true},
		{"FOXTROT003NUM004", true},
		{"A01", false},
		{"A001x", false},
		{"", false},
		{"hello", false},
		{"A001Name", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFullyObfuscated(tt.word))
		})
	}
}

func TestIsObfuscatedAcrossStyles(t *testing.T) {
	// Placeholders from any style are recognised regardless of the active one.
	for _, w := range []string{"getBRAVO001", "H4CK002_x", "COMMENT001", "CMT001", "passwordNUM001"} {
		assert.True(t, IsObfuscated(w), w)
	}
	for _, w := range []string{"getUser", "x86", "A1", "utf8"} {
		assert.False(t, IsObfuscated(w), w)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"G001", "STR001", "PTH002"}, Tokens("x = G001STR001 + PTH002;"))
	assert.Empty(t, Tokens("plain text"))
}

func TestParseToken(t *testing.T) {
	p, n, ok := parseToken("STR012")
	assert.True(t, ok)
	assert.Equal(t, "STR", p)
	assert.Equal(t, 12, n)

	p, n, ok = parseToken("PERSON1000")
	assert.True(t, ok)
	assert.Equal(t, "PERSON", p)
	assert.Equal(t, 1000, n)

	_, _, ok = parseToken("A001Name")
	assert.False(t, ok)
}

func TestCalcPercent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"plain", "const user = getUser();", 0},
		{"all tokens", "A001 B001 STR001", 100},
		{"half", "const A001 = B001(x1);", 50},
		{"adjacent counts twice", "G001STR001 done", 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalcPercent(tt.text))
		})
	}
}

func TestCalcPercentNeverRoundsTokensAway(t *testing.T) {
	text := "A001"
	for i := 0; i < 300; i++ {
		text += " word"
	}
	assert.Equal(t, 1, CalcPercent(text))
	assert.Greater(t, Ratio(text), 0.0)
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("CMT004", Comment))
	assert.True(t, IsCategory("INTEL001", Comment))
	assert.False(t, IsCategory("STR001", Comment))
	assert.False(t, IsCategory("CMT001x", Comment))
	assert.True(t, IsCategory("NUM010", Number))
}

func TestPlainWordsThatLookObfuscated(t *testing.T) {
	// Single-letter prefixes followed by three digits match inside ordinary
	// names. Such words are skipped by every level and count toward the
	// percentage even when the text was never obfuscated.
	for _, w := range []string{"SHA256", "HTTP200", "RFC3339"} {
		assert.True(t, IsObfuscated(w), w)
		assert.False(t, IsFullyObfuscated(w), w)
		assert.Equal(t, 50, CalcPercent(w), w)
	}
}
