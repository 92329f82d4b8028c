package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cabinetworks/catalog/internal/catalog"
)

const createUploadBackup = `
INSERT INTO catalog_upload_backups
	(upload_session_id, manufacturer_id, filename, original_name, backup_data, items_count, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *queries) CreateBackup(ctx context.Context, p catalog.CreateBackupParams) error {
	payload, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("encode backup payload: %w", err)
	}
	_, err = q.db.Exec(ctx, createUploadBackup,
		p.SessionID, p.ManufacturerID, p.Filename, p.OriginalName,
		payload, p.ItemsCount, p.UploadedBy,
	)
	if err != nil {
		return fmt.Errorf("insert upload backup: %w", err)
	}
	return nil
}

const getUploadBackup = `
SELECT id, upload_session_id, manufacturer_id, filename, original_name,
       backup_data, items_count, uploaded_by, is_rolled_back, rolled_back_at, created_at
FROM catalog_upload_backups
WHERE manufacturer_id = $1 AND upload_session_id = $2`

func (q *queries) GetBackup(ctx context.Context, manufacturerID int64, sessionID string) (*catalog.UploadBackup, error) {
	rows, err := q.db.Query(ctx, getUploadBackup, manufacturerID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get upload backup: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		b       catalog.UploadBackup
		payload []byte
	)
	err = rows.Scan(
		&b.ID, &b.SessionID, &b.ManufacturerID, &b.Filename, &b.OriginalName,
		&payload, &b.ItemsCount, &b.UploadedBy, &b.IsRolledBack, &b.RolledBackAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan upload backup: %w", err)
	}
	if err := json.Unmarshal(payload, &b.Items); err != nil {
		return nil, fmt.Errorf("decode backup payload: %w", err)
	}
	return &b, nil
}

const setBackupItemsCount = `
UPDATE catalog_upload_backups SET items_count = $2 WHERE upload_session_id = $1`

func (q *queries) SetBackupItemsCount(ctx context.Context, sessionID string, count int) error {
	_, err := q.db.Exec(ctx, setBackupItemsCount, sessionID, count)
	if err != nil {
		return fmt.Errorf("update backup items count: %w", err)
	}
	return nil
}

const markBackupRolledBack = `
UPDATE catalog_upload_backups SET is_rolled_back = TRUE, rolled_back_at = $2
WHERE upload_session_id = $1`

func (q *queries) MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error {
	_, err := q.db.Exec(ctx, markBackupRolledBack, sessionID, at)
	if err != nil {
		return fmt.Errorf("mark backup rolled back: %w", err)
	}
	return nil
}

const deleteUploadBackup = `
DELETE FROM catalog_upload_backups WHERE upload_session_id = $1`

func (q *queries) DeleteBackup(ctx context.Context, sessionID string) error {
	_, err := q.db.Exec(ctx, deleteUploadBackup, sessionID)
	if err != nil {
		return fmt.Errorf("delete upload backup: %w", err)
	}
	return nil
}

const listUploadBackups = `
SELECT id, upload_session_id, filename, original_name, items_count, uploaded_by, created_at
FROM catalog_upload_backups
WHERE manufacturer_id = $1 AND NOT is_rolled_back
ORDER BY created_at DESC
LIMIT $2`

func (q *queries) ListBackups(ctx context.Context, manufacturerID int64, limit int) ([]catalog.BackupSummary, error) {
	rows, err := q.db.Query(ctx, listUploadBackups, manufacturerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list upload backups: %w", err)
	}
	defer rows.Close()

	summaries := make([]catalog.BackupSummary, 0)
	for rows.Next() {
		var s catalog.BackupSummary
		err := rows.Scan(
			&s.ID, &s.SessionID, &s.Filename, &s.OriginalName,
			&s.ItemsCount, &s.UploadedBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan upload backup: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
