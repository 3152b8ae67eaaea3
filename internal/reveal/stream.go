package reveal

import (
	"bytes"
	"io"

	"github.com/gonkalabs/codeblur/internal/registry"
)

// Reader wraps an obfuscated stream and reveals it on the fly.
// Placeholders never span lines, so text is held back only until the next
// newline and each complete line is revealed as soon as it arrives.
type Reader struct {
	src    io.Reader
	rev    *Revealer
	raw    []byte // bytes read but not yet revealed (no newline yet)
	out    []byte // revealed bytes not yet returned
	srcEOF bool
}

// NewReader wraps src so that every placeholder registered in reg is
// replaced by its original before the bytes reach the caller. If reg is nil
// or empty src is returned unchanged.
func NewReader(src io.Reader, reg *registry.Registry) io.Reader {
	if reg == nil || reg.IsEmpty() {
		return src
	}
	return &Reader{src: src, rev: New(reg)}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.out) == 0 {
		if r.srcEOF {
			return 0, io.EOF
		}
		if err := r.fill(len(p)); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// fill reads one chunk from src and reveals every complete line buffered.
func (r *Reader) fill(size int) error {
	if size < 512 {
		size = 512
	}
	tmp := make([]byte, size)
	n, err := r.src.Read(tmp)
	r.raw = append(r.raw, tmp[:n]...)
	switch {
	case err == io.EOF:
		r.srcEOF = true
	case err != nil:
		return err
	}

	cut := bytes.LastIndexByte(r.raw, '\n') + 1
	if r.srcEOF {
		cut = len(r.raw)
	}
	if cut == 0 {
		return nil
	}
	res, rerr := r.rev.All(string(r.raw[:cut]), MaxPasses)
	if rerr != nil {
		return rerr
	}
	r.out = append(r.out, res.Text...)
	r.raw = append(r.raw[:0], r.raw[cut:]...)
	return nil
}
