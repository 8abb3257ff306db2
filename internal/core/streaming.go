package core

// streaming.go wraps file readers for CSV processing without loading the
// whole file into memory:
//
//   - NewDecodingReader strips a leading byte order mark, decodes UTF-16
//     files that carry one, and replaces invalid UTF-8 with U+FFFD
//   - CountingReader tracks bytes read for progress reporting
//
// Use WrapForStreaming to apply both in the correct order.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodingReader returns r transcoded to clean UTF-8.
//
// A UTF-8 BOM is dropped; a UTF-16 BOM switches decoding to UTF-16 of that
// byte order. Without a BOM the input is read as UTF-8 and every invalid
// byte sequence becomes the replacement character.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead * 100 / r.Total)
	if p > 100 {
		p = 100
	}
	return p
}

// WrapForStreaming counts raw bytes from r and decodes them to UTF-8.
//
// Counting sits below decoding so Progress compares like with like: bytes
// on disk against the file size.
func WrapForStreaming(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, totalSize)
	return NewDecodingReader(counter), counter
}
