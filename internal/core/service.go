package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvusers/internal/config"
	"github.com/JonMunkholm/csvusers/internal/logging"
	"github.com/JonMunkholm/csvusers/internal/metrics"
)

// ResetTimeout is the maximum duration for a reset operation.
var ResetTimeout = 30 * time.Second

// Ingestion sources, used as metric labels.
const (
	SourceFile   = "file"
	SourceUpload = "upload"
	SourceAPI    = "api"
)

// Service provides the business logic behind the HTTP API and the CLI.
type Service struct {
	store    *Store
	limiter  *IngestLimiter
	readOpts []ReadOption

	defaultPath   string
	uploadDir     string
	maxFileSize   int64
	ingestTimeout time.Duration
}

// NewService creates a Service over db using the ingest settings in cfg.
// The upload directory is created if missing.
func NewService(db TxBeginner, cfg *config.Config) (*Service, error) {
	if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &Service{
		store:         NewStore(db, cfg.Ingest.BatchSize),
		limiter:       NewIngestLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWait),
		readOpts:      IngestOptions(&cfg.Ingest),
		defaultPath:   cfg.Ingest.CSVFilePath,
		uploadDir:     cfg.Ingest.UploadDir,
		maxFileSize:   cfg.Ingest.MaxFileSize,
		ingestTimeout: cfg.Ingest.Timeout,
	}, nil
}

// ResolvePath returns path, or the configured default CSV path when path
// is blank.
func (s *Service) ResolvePath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	return s.defaultPath
}

// Convert reads the CSV file at path (or the default) and returns its raw
// records without touching the database.
func (s *Service) Convert(ctx context.Context, path string) ([]RawRecord, error) {
	path = s.ResolvePath(path)
	logger := logging.WithFields(ctx, "path", path)

	records, err := ReadAll(path, s.readOpts...)
	if err != nil {
		logger.Warn("convert failed", "error", err)
		return nil, err
	}

	logger.Info("csv converted", "records", len(records))
	return records, nil
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	RunID            string          `json:"runId"`
	Path             string          `json:"path"`
	RecordsProcessed int             `json:"recordsProcessed"`
	Duration         time.Duration   `json:"-"`
	AgeDistribution  AgeDistribution `json:"ageDistribution"`
}

// ProcessFile streams the CSV file at path (or the default) into the
// database and returns the age distribution afterwards.
func (s *Service) ProcessFile(ctx context.Context, path string) (IngestResult, error) {
	return s.ingest(ctx, s.ResolvePath(path), SourceFile)
}

// ingest runs one ingestion: reshape each streamed batch and commit it in
// a single transaction. Batches committed before a failure stay committed.
func (s *Service) ingest(ctx context.Context, path, source string) (IngestResult, error) {
	if err := FileExists(path); err != nil {
		return IngestResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return IngestResult{}, fmt.Errorf("process %s: %w", path, err)
	}
	defer s.limiter.Release()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx, cancel := context.WithTimeout(ctx, s.ingestTimeout)
	defer cancel()

	logger := logging.WithFields(ctx, "path", path, "source", source)
	logger.Info("ingest started", "batch_size", s.store.BatchSize())
	start := time.Now()

	processed, err := StreamRecords(ctx, path, s.store.BatchSize(), func(ctx context.Context, batch []RawRecord) error {
		users := make([]User, len(batch))
		for i, rec := range batch {
			users[i] = Reshape(rec)
		}
		_, err := s.store.SaveUsers(ctx, users)
		return err
	}, s.readOpts...)
	metrics.RecordIngest(source, processed, err)
	if err != nil {
		logger.Error("ingest failed", "records_committed", processed, "error", err)
		return IngestResult{RunID: runID, Path: path, RecordsProcessed: processed}, err
	}

	dist, _, err := s.AgeDistribution(ctx)
	if err != nil {
		return IngestResult{RunID: runID, Path: path, RecordsProcessed: processed}, err
	}

	result := IngestResult{
		RunID:            runID,
		Path:             path,
		RecordsProcessed: processed,
		Duration:         time.Since(start),
		AgeDistribution:  dist,
	}
	logger.Info("ingest completed",
		"records", processed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	LogAgeReport(ctx, dist)

	return result, nil
}

// IngestStatus reports how many ingestion runs are in flight.
func (s *Service) IngestStatus() IngestLimiterStatus {
	return s.limiter.Status()
}

// WaitForIngests blocks until running ingests finish or ctx is done.
func (s *Service) WaitForIngests(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
