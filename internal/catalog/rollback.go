package catalog

// rollback.go restores a manufacturer's catalog to the state captured in one
// session's backup snapshot. The whole restore runs in a single transaction:
// if anything fails, no partial deletion or restoration is visible.
//
// Rollback is destructive toward manual edits made after the original
// upload; that trade-off is inherent to snapshot-based recovery.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MaxBackupListing caps how many rollback candidates are returned.
const MaxBackupListing = 10

// Rollback reverts the manufacturer's catalog rows to the snapshot captured
// for sessionID and marks the session rolled back. A session can be rolled
// back exactly once.
func (s *Service) Rollback(ctx context.Context, manufacturerID int64, sessionID string) (*RollbackResult, error) {
	unlock := s.locks.Lock(manufacturerID)
	defer unlock()

	var restored int
	err := s.store.WithTx(ctx, func(tx Store) error {
		backup, err := tx.GetBackup(ctx, manufacturerID, sessionID)
		if err != nil {
			return fmt.Errorf("load backup: %w", err)
		}
		if backup == nil {
			return ErrSessionNotFound
		}
		if backup.IsRolledBack {
			return ErrAlreadyRolledBack
		}

		if _, err := tx.DeleteItems(ctx, manufacturerID); err != nil {
			return fmt.Errorf("clear current catalog: %w", err)
		}
		if len(backup.Items) > 0 {
			if err := tx.RestoreItems(ctx, backup.Items); err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
		}
		if err := tx.MarkRolledBack(ctx, sessionID, time.Now().UTC()); err != nil {
			return fmt.Errorf("mark session rolled back: %w", err)
		}

		restored = len(backup.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("catalog rolled back",
		"session_id", sessionID,
		"manufacturer_id", manufacturerID,
		"restored_items", restored,
	)
	return &RollbackResult{SessionID: sessionID, RestoredItems: restored}, nil
}

// ListBackups returns the most recent sessions still eligible for rollback,
// newest first, capped at MaxBackupListing.
func (s *Service) ListBackups(ctx context.Context, manufacturerID int64) ([]BackupSummary, error) {
	return s.store.ListBackups(ctx, manufacturerID, MaxBackupListing)
}
