package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVocabulary(t *testing.T) {
	d := Default()
	require.Greater(t, d.Len(), 100)

	for _, w := range []string{"get", "Get", "GET", "user", "By", "id", "System", "return"} {
		assert.True(t, d.IsKnownWord(w), w)
	}
	for _, w := range []string{"", "acmeWidget", "zyxxy", "frobnicate"} {
		assert.False(t, d.IsKnownWord(w), w)
	}
}

func TestSetLoadSkipsCommentsAndBlanks(t *testing.T) {
	s := NewSet()
	err := s.Load(strings.NewReader("# header\n\n  Widget \n#gadget\nsprocket\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.IsKnownWord("widget"))
	assert.True(t, s.IsKnownWord("SPROCKET"))
	assert.False(t, s.IsKnownWord("gadget"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("acme\nglobex\n"), 0o600))

	s := NewSet("initech")
	require.NoError(t, s.LoadFile(path))
	assert.True(t, s.IsKnownWord("Acme"))
	assert.True(t, s.IsKnownWord("initech"))

	err := s.LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).IsKnownWord("anything"))
	assert.False(t, Always(false).IsKnownWord("get"))
}
