package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ChunkedFileThreshold is the file size above which uploads take the chunked
// path. Distinct from the hard ceiling: files between the two still ingest,
// just in streaming chunks.
const ChunkedFileThreshold int64 = 10 * 1024 * 1024

// MaxCatalogFileSize is the hard reject ceiling for uploads.
const MaxCatalogFileSize int64 = 50 * 1024 * 1024

// Config tunes the ingestion pipeline. Zero values fall back to defaults.
type Config struct {
	MaxFileSize    int64 // hard ceiling in bytes
	ChunkThreshold int64 // dual-path dispatch boundary in bytes
	ChunkSize      int   // rows per transaction on the chunked path
	BatchSize      int   // rows per transaction on the regular path
	MaxConcurrent  int   // parallel uploads across all manufacturers
	MaxWait        time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = MaxCatalogFileSize
	}
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = ChunkedFileThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// Service orchestrates catalog ingestion and rollback. One upload runs as a
// single worker: chunk i+1 does not begin until chunk i's transaction has
// committed or aborted.
type Service struct {
	store   TxStore
	cfg     Config
	limiter *UploadLimiter
	locks   *manufacturerLocks
}

// NewService creates a Service over the given store.
func NewService(store TxStore, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		store:   store,
		cfg:     cfg,
		limiter: NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		locks:   newManufacturerLocks(),
	}
}

// WaitForUploads blocks until in-flight uploads finish, for graceful
// shutdown.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveUploads reports how many uploads are currently running.
func (s *Service) ActiveUploads() int {
	return s.limiter.ActiveCount()
}

// Upload ingests one catalog file: allocate a session, capture the backup
// snapshot, then upsert rows either in streaming chunks or eagerly depending
// on file size. Uploads for the same manufacturer are serialized.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	unlock := s.locks.Lock(req.ManufacturerID)
	defer unlock()

	src, err := OpenSource(req.Path, req.ContentType, s.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	method := MethodRegular
	if req.Size > s.cfg.ChunkThreshold {
		method = MethodChunked
	}

	logger := slog.Default().With(
		"session_id", sessionID,
		"manufacturer_id", req.ManufacturerID,
		"file", req.OriginalName,
		"method", method,
	)
	start := time.Now()

	// Snapshot the current catalog before any mutation. A failure here
	// aborts the upload with nothing touched.
	snapshotSize, err := s.captureBackup(ctx, sessionID, req)
	if err != nil {
		return nil, &BackupError{Err: err}
	}
	logger.Info("backup captured", "snapshot_items", snapshotSize)

	stats := UploadStats{
		BackupCreated:    true,
		FileSize:         req.Size,
		ProcessingMethod: method,
	}

	var total, committedChunks int
	if method == MethodChunked {
		total, committedChunks, err = s.ingestChunked(ctx, req.ManufacturerID, src, &stats, logger)
	} else {
		logger.Info("processing started")
		total, committedChunks, err = s.ingestRegular(ctx, req.ManufacturerID, src, &stats)
	}
	if err != nil {
		s.cleanupFailedUpload(ctx, sessionID, committedChunks, logger, err)
		return nil, err
	}
	stats.TotalProcessed = total

	if err := s.store.SetBackupItemsCount(ctx, sessionID, total); err != nil {
		// The catalog is already committed; a stale count is not worth
		// failing the upload over.
		logger.Warn("update session item count", "error", err)
	}

	logger.Info("upload complete",
		"total", total,
		"created", stats.Created,
		"updated", stats.Updated,
		"duration", time.Since(start),
	)
	return &UploadResult{SessionID: sessionID, Stats: stats}, nil
}

// ingestChunked streams the source through the chunk assembler, one
// transaction per chunk.
func (s *Service) ingestChunked(ctx context.Context, manufacturerID int64, src RowSource, stats *UploadStats, logger *slog.Logger) (total, committed int, err error) {
	chunkIndex := 0
	total, err = Chunks(src, s.cfg.ChunkSize, func(chunk []CatalogRow, before, totalRows int) error {
		if err := s.upsertChunk(ctx, manufacturerID, chunk, stats); err != nil {
			return &ChunkError{
				Index: chunkIndex,
				Start: before + 1,
				End:   before + len(chunk),
				Err:   err,
			}
		}
		chunkIndex++
		committed++
		logger.Info("chunk committed",
			"chunk", chunkIndex,
			"rows", len(chunk),
			"processed", before+len(chunk),
			"total", totalRows,
		)
		return nil
	})
	return total, committed, err
}

// ingestRegular parses the full row sequence eagerly, then upserts it in
// fixed batches with a single start/end progress transition.
func (s *Service) ingestRegular(ctx context.Context, manufacturerID int64, src RowSource, stats *UploadStats) (total, committed int, err error) {
	rows, err := ReadAll(src)
	if err != nil {
		return 0, 0, err
	}

	for start := 0; start < len(rows); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.upsertChunk(ctx, manufacturerID, rows[start:end], stats); err != nil {
			return len(rows), committed, fmt.Errorf("process rows %d-%d: %w", start+1, end, err)
		}
		committed++
	}
	return len(rows), committed, nil
}

// cleanupFailedUpload decides what happens to the session's backup after a
// failed ingestion. If any chunk committed, the backup is the only recovery
// path and is kept for an explicit rollback. If nothing was mutated there is
// nothing to recover, so the record is removed (best-effort).
func (s *Service) cleanupFailedUpload(ctx context.Context, sessionID string, committedChunks int, logger *slog.Logger, cause error) {
	if committedChunks > 0 {
		logger.Error("upload failed after partial commit; backup retained for rollback",
			"committed_chunks", committedChunks,
			"error", cause,
		)
		return
	}
	logger.Error("upload failed before any commit; removing backup record", "error", cause)
	if err := s.store.DeleteBackup(ctx, sessionID); err != nil {
		logger.Warn("delete backup record", "error", err)
	}
}
