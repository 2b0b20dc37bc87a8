package core

// streaming.go provides the readers CSV sessions are parsed through.
//
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - SizeLimitReader fails with ErrFileTooLarge past a byte budget
//
// WrapCSVReader applies all three in the right order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned once a size-limited reader exceeds its budget.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// Windows spreadsheet exports commonly start with one.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call peeks for and discards the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer wraps an io.Reader and replaces each invalid UTF-8 byte
// with '?'. Multi-byte sequences split across reads are carried over.
type UTF8Sanitizer struct {
	reader io.Reader
	raw    []byte
	tail   []byte // incomplete rune at the end of the last chunk
	ready  []byte // sanitized bytes not yet returned
	err    error
}

const sanitizeChunk = 32 * 1024

// NewUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{reader: r}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.ready) == 0 {
		if s.err != nil {
			if len(s.tail) == 0 {
				return 0, s.err
			}
			s.ready, s.tail = sanitizeUTF8(s.tail, true)
			continue
		}
		if s.raw == nil {
			s.raw = make([]byte, sanitizeChunk)
		}
		n, err := s.reader.Read(s.raw)
		s.err = err
		data := append(s.tail, s.raw[:n]...)
		s.ready, s.tail = sanitizeUTF8(data, err != nil)
	}
	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// sanitizeUTF8 returns data with invalid bytes replaced. Unless atEOF, a
// trailing incomplete rune is returned separately for the next chunk.
func sanitizeUTF8(data []byte, atEOF bool) (out, tail []byte) {
	out = make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		c := data[i]
		if c < utf8.RuneSelf {
			out = append(out, c)
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(data[i:]) {
			tail = append([]byte(nil), data[i:]...)
			break
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
			i++
			continue
		}
		out = append(out, data[i:i+size]...)
		i += size
	}
	return out, tail
}

// SizeLimitReader fails with ErrFileTooLarge after Limit bytes.
type SizeLimitReader struct {
	reader io.Reader
	Limit  int64
	read   int64
}

// NewSizeLimitReader wraps r with a byte budget. A non-positive limit
// disables the check.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.Limit > 0 && r.read > r.Limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *SizeLimitReader) BytesRead() int64 { return r.read }

// WrapCSVReader strips the BOM, sanitizes UTF-8 and enforces maxBytes.
// The size limit wraps the raw input so the budget counts bytes received.
func WrapCSVReader(r io.Reader, maxBytes int64) io.Reader {
	limited := NewSizeLimitReader(r, maxBytes)
	return NewUTF8Sanitizer(NewBOMSkippingReader(limited))
}
