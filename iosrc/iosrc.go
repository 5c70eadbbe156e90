// Package iosrc provides the thin byte-source wrapper every pipeline stage
// holds a reference to, per spec.md §9 ("explicit stage objects each
// holding a reference to its upstream producer"). It is grounded in the
// io.Reader-wrapping idiom used throughout xtaci/kcptun's std and generic
// packages (std.CompStream, generic.QPPPort): wrap an io.Reader, expose the
// minimal surface downstream stages need, translate read failures into the
// one terminal error kind spec.md's taxonomy defines (IoError).
package iosrc

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Source is a byte-addressable stream. It is satisfied by *Reader.
type Source interface {
	ReadByte() (byte, error)
	Read(p []byte) (int, error)
}

// Reader wraps an io.Reader as a Source, buffering reads the way the
// Synchronizer needs to scan a byte at a time without round-tripping to the
// underlying source for every byte.
type Reader struct {
	r *bufio.Reader
}

// New wraps r as a Source.
func New(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// ReadByte returns the next byte of the stream. Any error other than
// io.EOF is wrapped as an IoError per spec.md §7.
func (s *Reader) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.Wrap(err, "iosrc: read")
	}
	return b, err
}

// Read fills p fully or returns an error, mirroring io.ReadFull's contract,
// since stages need exact-length blocks, not short reads.
func (s *Reader) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.r, p)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, errors.Wrap(err, "iosrc: read")
	}
	return n, err
}
