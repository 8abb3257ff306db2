package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvusers/internal/logging"
)

// SaveUpload stores an uploaded CSV in the upload directory as
// "<uuid>-<name>" and returns the stored path. Only names ending in .csv
// (any case) are accepted; content past maxFileSize is rejected and the
// partial file removed.
func (s *Service) SaveUpload(ctx context.Context, name string, r io.Reader) (string, error) {
	const op = "save upload"

	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", Validationf(op, "no file provided")
	}
	if !strings.EqualFold(filepath.Ext(base), ".csv") {
		return "", Validationf(op, "%s is not a csv file", base)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("%s: create directory: %w", op, err)
	}

	dest := filepath.Join(s.uploadDir, uuid.NewString()+"-"+base)
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	written, copyErr := io.Copy(f, io.LimitReader(r, s.maxFileSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("%s: write %s: %w", op, base, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("%s: close %s: %w", op, base, closeErr)
	case written > s.maxFileSize:
		err = Validationf(op, "file too large: %s exceeds %d bytes", base, s.maxFileSize)
	}
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove partial upload", "path", dest, "error", rmErr)
		}
		return "", err
	}

	logging.FromContext(ctx).Info("upload saved", "path", dest, "bytes", written)
	return dest, nil
}

// ProcessUpload saves an uploaded CSV and ingests it like ProcessFile.
func (s *Service) ProcessUpload(ctx context.Context, name string, r io.Reader) (IngestResult, error) {
	path, err := s.SaveUpload(ctx, name, r)
	if err != nil {
		return IngestResult{}, err
	}
	return s.ingest(ctx, path, SourceUpload)
}
