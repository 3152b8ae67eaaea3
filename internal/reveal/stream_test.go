package reveal

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/codeblur/internal/pipeline"
	"github.com/gonkalabs/codeblur/internal/registry"
)

func TestReaderRevealsInChunks(t *testing.T) {
	reg := newRegistry()
	text := obfuscate(t, reg, pipeline.Blur, pipeline.Anon, pipeline.Nuke)

	for name, wrap := range map[string]func(io.Reader) io.Reader{
		"one-byte": iotest.OneByteReader,
		"half":     iotest.HalfReader,
		"data-err": iotest.DataErrReader,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := io.ReadAll(NewReader(wrap(strings.NewReader(text)), reg))
			require.NoError(t, err)
			assert.Equal(t, corpus, string(got))
		})
	}
}

func TestReaderWithoutTrailingNewline(t *testing.T) {
	reg := newRegistry()
	reg.Get("customer", registry.Identifier)

	got, err := io.ReadAll(NewReader(iotest.OneByteReader(strings.NewReader("a\nA001")), reg))
	require.NoError(t, err)
	assert.Equal(t, "a\ncustomer", string(got))
}

func TestNewReaderPassthrough(t *testing.T) {
	src := strings.NewReader("A001")
	assert.Same(t, src, NewReader(src, nil))
	assert.Same(t, src, NewReader(src, newRegistry()))
}

func TestReaderPropagatesErrors(t *testing.T) {
	reg := newRegistry()
	reg.Get("customer", registry.Identifier)
	boom := errors.New("boom")

	_, err := io.ReadAll(NewReader(iotest.ErrReader(boom), reg))
	assert.ErrorIs(t, err, boom)
}
