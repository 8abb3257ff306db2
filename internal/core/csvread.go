package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvusers/internal/config"
	"github.com/JonMunkholm/csvusers/internal/logging"
)

// DefaultBatchSize is the number of records handed to a batch callback
// when the caller does not choose one.
const DefaultBatchSize = 1000

const opReadCSV = "read csv"

// ReadOption customizes CSV parsing.
type ReadOption func(*readOptions)

type readOptions struct {
	comma      rune
	lazyQuotes bool
}

func newReadOptions(opts []ReadOption) readOptions {
	o := readOptions{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) ReadOption {
	return func(o *readOptions) { o.comma = r }
}

// WithLazyQuotes allows quotes to appear in unquoted fields and
// non-doubled quotes in quoted fields. Parsing is strict by default.
func WithLazyQuotes(lazy bool) ReadOption {
	return func(o *readOptions) { o.lazyQuotes = lazy }
}

// IngestOptions returns the read options selected by cfg.
func IngestOptions(cfg *config.IngestConfig) []ReadOption {
	return []ReadOption{WithComma(cfg.Comma()), WithLazyQuotes(cfg.LazyQuotes)}
}

// Records returns a lazy, single-pass sequence of the rows in the CSV file
// at path, keyed by the header row.
//
// The file is opened when iteration starts and closed when it ends, breaks
// early, or fails. Headers and values are whitespace-trimmed and blank
// lines are skipped. A row shorter than the header yields only the columns
// present; columns beyond the header are keyed "_<index>". When a header
// name repeats, the key keeps its first position and takes the last value.
//
// Errors are yielded once, as the final element, and are *Error values of
// kind KindFileNotFound, KindRead or KindParse.
func Records(path string, opts ...ReadOption) iter.Seq2[RawRecord, error] {
	o := newReadOptions(opts)
	return func(yield func(RawRecord, error) bool) {
		scanRecords(path, o, nil, yield)
	}
}

// ReadAll collects every record of the CSV file at path.
func ReadAll(path string, opts ...ReadOption) ([]RawRecord, error) {
	var out []RawRecord
	for rec, err := range Records(path, opts...) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// BatchFunc receives one batch of records. The slice is owned by the callee.
type BatchFunc func(ctx context.Context, batch []RawRecord) error

// StreamRecords reads the CSV file at path and hands records to fn in
// batches of batchSize, flushing the final partial batch at end of file.
// Reading resumes only after fn returns, so at most one batch is held in
// memory.
//
// An error from fn stops the stream and is returned unchanged. The context
// is checked before each batch is handed over. The count returned is the
// number of records in batches fn accepted.
func StreamRecords(ctx context.Context, path string, batchSize int, fn BatchFunc, opts ...ReadOption) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	o := newReadOptions(opts)
	logger := logging.WithFields(ctx, "path", path, "batch_size", batchSize)

	var (
		counter   *CountingReader
		processed int
		batches   int
		streamErr error
	)

	batch := make([]RawRecord, 0, batchSize)
	flush := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		processed += len(batch)
		batches++
		if counter != nil {
			logger.Debug("batch streamed",
				"batch", batches,
				"records", processed,
				"progress_pct", counter.Progress(),
			)
		}
		batch = make([]RawRecord, 0, batchSize)
		return nil
	}

	scanRecords(path, o, func(c *CountingReader) { counter = c }, func(rec RawRecord, err error) bool {
		if err != nil {
			streamErr = err
			return false
		}
		batch = append(batch, rec)
		if len(batch) < batchSize {
			return true
		}
		if err := flush(); err != nil {
			streamErr = err
			return false
		}
		return true
	})
	if streamErr != nil {
		return processed, streamErr
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

// scanRecords drives one pass over the file. onOpen, if set, receives the
// byte counter once the file is open.
func scanRecords(path string, o readOptions, onOpen func(*CountingReader), yield func(RawRecord, error) bool) {
	f, size, err := openCSV(path)
	if err != nil {
		yield(nil, err)
		return
	}
	defer f.Close()

	decoded, counter := WrapForStreaming(f, size)
	if onOpen != nil {
		onOpen(counter)
	}

	r := csv.NewReader(decoded)
	r.Comma = o.comma
	r.LazyQuotes = o.lazyQuotes
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return
	}
	if err != nil {
		yield(nil, classifyReadErr(path, err))
		return
	}
	header = trimAll(header)

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(nil, classifyReadErr(path, err))
			return
		}
		if !yield(toRecord(header, row), nil) {
			return
		}
	}
}

// openCSV opens path for reading. Only a missing path is reported as
// KindFileNotFound; directories and permission problems are read errors.
func openCSV(path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, E(opReadCSV, KindFileNotFound, path, err)
		}
		return nil, 0, E(opReadCSV, KindRead, path, err)
	}
	if info.IsDir() {
		return nil, 0, E(opReadCSV, KindRead, path, errors.New("is a directory"))
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, E(opReadCSV, KindFileNotFound, path, err)
		}
		return nil, 0, E(opReadCSV, KindRead, path, err)
	}
	return f, info.Size(), nil
}

// FileExists reports whether path names an existing CSV file. A missing
// path yields a KindFileNotFound error; any other problem is KindRead.
func FileExists(path string) error {
	f, _, err := openCSV(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func classifyReadErr(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return E(opReadCSV, KindParse, path, err)
	}
	return E(opReadCSV, KindRead, path, err)
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func toRecord(header, row []string) RawRecord {
	rec := make(RawRecord, 0, len(row))
	for i, cell := range row {
		key := "_" + strconv.Itoa(i)
		if i < len(header) {
			key = header[i]
		}
		rec.Set(key, strings.TrimSpace(cell))
	}
	return rec
}
