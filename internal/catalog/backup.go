package catalog

// backup.go captures the pre-upload snapshot: every catalog row the
// manufacturer currently owns, serialized verbatim into the session's backup
// payload. Runs exactly once per upload, strictly before the first upsert.

import (
	"context"
	"fmt"
)

func (s *Service) captureBackup(ctx context.Context, sessionID string, req UploadRequest) (int, error) {
	items, err := s.store.ListItems(ctx, req.ManufacturerID)
	if err != nil {
		return 0, fmt.Errorf("read current catalog: %w", err)
	}

	snapshot := make([]BackupItem, len(items))
	for i, it := range items {
		snapshot[i] = it.backupTuple()
	}

	err = s.store.CreateBackup(ctx, CreateBackupParams{
		SessionID:      sessionID,
		ManufacturerID: req.ManufacturerID,
		Filename:       req.StoredName,
		OriginalName:   req.OriginalName,
		UploadedBy:     req.UploadedBy,
		Items:          snapshot,
		ItemsCount:     len(snapshot),
	})
	if err != nil {
		return 0, fmt.Errorf("store snapshot: %w", err)
	}
	return len(snapshot), nil
}
