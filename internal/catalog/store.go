package catalog

// store.go declares the persistence contract the pipeline runs against.
// internal/database provides the Postgres implementation; tests substitute
// in-memory fakes.

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemParams are the fields for a newly ingested catalog item.
type CreateItemParams struct {
	ManufacturerID int64
	Code           string
	Style          string
	Description    *string
	Color          *string
	Type           *string
	Price          decimal.Decimal
	Discontinued   bool
}

// UpdateItemParams are the fields overwritten on an existing item during
// upsert. Style and manufacturer are identity and never overwritten.
type UpdateItemParams struct {
	ID           int64
	Code         string
	Description  *string
	Type         *string
	Price        decimal.Decimal
	Discontinued bool
}

// CreateBackupParams describe a new upload session with its snapshot payload.
type CreateBackupParams struct {
	SessionID      string
	ManufacturerID int64
	Filename       string
	OriginalName   string
	UploadedBy     string
	Items          []BackupItem
	ItemsCount     int
}

// Store is the set of catalog persistence operations the pipeline needs.
// Implementations must honor context cancellation.
type Store interface {
	ListItems(ctx context.Context, manufacturerID int64) ([]Item, error)

	// GetItemByKey resolves the natural key (manufacturer, code, style).
	// Returns (nil, nil) when no item matches.
	GetItemByKey(ctx context.Context, manufacturerID int64, code, style string) (*Item, error)

	CreateItem(ctx context.Context, params CreateItemParams) error
	UpdateItem(ctx context.Context, params UpdateItemParams) error

	// DeleteItems removes every item the manufacturer owns and reports how
	// many were deleted.
	DeleteItems(ctx context.Context, manufacturerID int64) (int64, error)

	// RestoreItems bulk-inserts snapshot rows verbatim, preserving original
	// ids and timestamps.
	RestoreItems(ctx context.Context, items []BackupItem) error

	CreateBackup(ctx context.Context, params CreateBackupParams) error

	// GetBackup loads a session with its payload. Returns (nil, nil) when
	// the session does not exist for the manufacturer.
	GetBackup(ctx context.Context, manufacturerID int64, sessionID string) (*UploadBackup, error)

	SetBackupItemsCount(ctx context.Context, sessionID string, count int) error
	MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error
	DeleteBackup(ctx context.Context, sessionID string) error
	ListBackups(ctx context.Context, manufacturerID int64, limit int) ([]BackupSummary, error)
}

// TxStore is a Store that can also run operations inside one all-or-nothing
// transaction.
type TxStore interface {
	Store

	// WithTx runs fn against a transactional Store. A non-nil error from fn
	// rolls everything back; otherwise the transaction commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
