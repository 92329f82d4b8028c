package catalog

// upsert.go applies one chunk of normalized rows against the manufacturer's
// catalog inside a single all-or-nothing transaction.
//
// Each row resolves against the natural key (manufacturer, code, style):
// absent rows are created with all normalized fields; present rows have their
// description, price, discontinued flag, code and type overwritten, leaving
// identity fields alone. A failed row aborts the whole chunk's transaction
// and the remaining chunks; chunks committed earlier stay committed and are
// recoverable only via the session backup.

import (
	"context"
	"fmt"
)

func (s *Service) upsertChunk(ctx context.Context, manufacturerID int64, chunk []CatalogRow, stats *UploadStats) error {
	// Counters are accumulated locally so an aborted transaction leaves
	// stats untouched.
	var created, updated int

	err := s.store.WithTx(ctx, func(tx Store) error {
		for _, row := range chunk {
			wasCreated, err := upsertRow(ctx, tx, manufacturerID, row)
			if err != nil {
				return err
			}
			if wasCreated {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	stats.Created += created
	stats.Updated += updated
	return nil
}

func upsertRow(ctx context.Context, tx Store, manufacturerID int64, row CatalogRow) (created bool, err error) {
	style := row.StyleKey()

	item, err := tx.GetItemByKey(ctx, manufacturerID, row.Code, style)
	if err != nil {
		return false, fmt.Errorf("look up item %q: %w", row.Code, err)
	}

	if item == nil {
		err := tx.CreateItem(ctx, CreateItemParams{
			ManufacturerID: manufacturerID,
			Code:           row.Code,
			Style:          style,
			Description:    row.Description,
			Color:          row.Color,
			Type:           row.Type,
			Price:          row.Price,
			Discontinued:   row.Discontinued,
		})
		if err != nil {
			return false, fmt.Errorf("create item %q: %w", row.Code, err)
		}
		return true, nil
	}

	err = tx.UpdateItem(ctx, UpdateItemParams{
		ID:           item.ID,
		Code:         row.Code,
		Description:  row.Description,
		Type:         row.Type,
		Price:        row.Price,
		Discontinued: row.Discontinued,
	})
	if err != nil {
		return false, fmt.Errorf("update item %q: %w", row.Code, err)
	}
	return false, nil
}
