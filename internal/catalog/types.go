// Package catalog implements the dealer catalog ingestion pipeline:
// parsing uploaded CSV/Excel catalogs, normalizing rows, upserting them
// against a manufacturer's existing catalog in chunked transactions, and
// point-in-time rollback from a pre-upload snapshot.
// This package has no HTTP dependencies and can be driven by any frontend.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProcessingMethod identifies which ingestion path handled an upload.
type ProcessingMethod string

const (
	// MethodRegular parses the whole row sequence eagerly. Used for small
	// files, where bounded memory is guaranteed by the file-size ceiling.
	MethodRegular ProcessingMethod = "regular"

	// MethodChunked streams rows and commits them in fixed-size chunks,
	// with a pre-count pass for accurate progress totals.
	MethodChunked ProcessingMethod = "chunked"
)

// CatalogRow is one normalized product line parsed from an uploaded file.
// It is transient: rows are never persisted in this shape.
type CatalogRow struct {
	Code         string
	Style        *string
	Description  *string
	Color        *string
	Type         *string
	Price        decimal.Decimal
	Discontinued bool
}

// StyleKey returns the style component of the natural key. A missing style
// participates in identity as the empty string.
func (r CatalogRow) StyleKey() string {
	if r.Style == nil {
		return ""
	}
	return strings.TrimSpace(*r.Style)
}

// Item is a persisted catalog line owned by exactly one manufacturer.
// Identity for upsert purposes is the (ManufacturerID, Code, Style) triple.
type Item struct {
	ID             int64
	ManufacturerID int64
	Code           string
	Style          string
	Description    *string
	Color          *string
	Type           *string
	Price          decimal.Decimal
	Discontinued   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BackupItem is the field tuple captured verbatim into an upload's backup
// snapshot. Color is intentionally absent: it is not part of the snapshot
// contract, so a restore leaves it NULL.
type BackupItem struct {
	ID             int64           `json:"id"`
	ManufacturerID int64           `json:"manufacturerId"`
	Code           string          `json:"code"`
	Description    *string         `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Discontinued   bool            `json:"discontinued"`
	Style          string          `json:"style"`
	Type           *string         `json:"type"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (it Item) backupTuple() BackupItem {
	return BackupItem{
		ID:             it.ID,
		ManufacturerID: it.ManufacturerID,
		Code:           it.Code,
		Description:    it.Description,
		Price:          it.Price,
		Discontinued:   it.Discontinued,
		Style:          it.Style,
		Type:           it.Type,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

// UploadBackup is the tracked unit of work for one ingestion attempt,
// correlating the upload with its snapshot and rollback state.
type UploadBackup struct {
	ID             int64
	SessionID      string
	ManufacturerID int64
	Filename       string // stored filename on disk
	OriginalName   string // filename as uploaded by the dealer
	Items          []BackupItem
	ItemsCount     int
	UploadedBy     string
	IsRolledBack   bool
	RolledBackAt   *time.Time
	CreatedAt      time.Time
}

// BackupSummary is the listing view of a session, without the payload.
type BackupSummary struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"uploadSessionId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	ItemsCount   int       `json:"itemsCount"`
	UploadedBy   string    `json:"uploadedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UploadStats are the outcome counters for one upload.
type UploadStats struct {
	TotalProcessed   int              `json:"totalProcessed"`
	Created          int              `json:"created"`
	Updated          int              `json:"updated"`
	BackupCreated    bool             `json:"backupCreated"`
	FileSize         int64            `json:"fileSize"`
	ProcessingMethod ProcessingMethod `json:"processingMethod"`
}

// UploadResult is returned to the caller after a successful ingestion.
type UploadResult struct {
	SessionID string
	Stats     UploadStats
}

// RollbackResult reports a completed rollback.
type RollbackResult struct {
	SessionID     string
	RestoredItems int
}

// UploadRequest describes one file upload to ingest. Path must point at the
// spooled file on local disk.
type UploadRequest struct {
	ManufacturerID int64
	Path           string
	OriginalName   string
	StoredName     string
	ContentType    string
	Size           int64
	UploadedBy     string
}
