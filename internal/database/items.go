package database

import (
	"context"
	"fmt"

	"github.com/cabinetworks/catalog/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Prices travel as text on both sides of the wire: Postgres casts the
// parameter to numeric, and numeric columns are selected with ::text so they
// scan losslessly into decimal.Decimal.

const listCatalogItems = `
SELECT id, manufacturer_id, code, style, description, color, item_type,
       price::text, discontinued, created_at, updated_at
FROM catalog_items
WHERE manufacturer_id = $1
ORDER BY id`

func (q *queries) ListItems(ctx context.Context, manufacturerID int64) ([]catalog.Item, error) {
	rows, err := q.db.Query(ctx, listCatalogItems, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const getCatalogItemByKey = `
SELECT id, manufacturer_id, code, style, description, color, item_type,
       price::text, discontinued, created_at, updated_at
FROM catalog_items
WHERE manufacturer_id = $1 AND code = $2 AND style = $3`

func (q *queries) GetItemByKey(ctx context.Context, manufacturerID int64, code, style string) (*catalog.Item, error) {
	rows, err := q.db.Query(ctx, getCatalogItemByKey, manufacturerID, code, style)
	if err != nil {
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	item, err := scanItem(rows)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const createCatalogItem = `
INSERT INTO catalog_items (manufacturer_id, code, style, description, color, item_type, price, discontinued)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *queries) CreateItem(ctx context.Context, p catalog.CreateItemParams) error {
	_, err := q.db.Exec(ctx, createCatalogItem,
		p.ManufacturerID, p.Code, p.Style, p.Description, p.Color, p.Type,
		p.Price.String(), p.Discontinued,
	)
	if err != nil {
		return fmt.Errorf("insert catalog item: %w", err)
	}
	return nil
}

const updateCatalogItem = `
UPDATE catalog_items
SET code = $2, description = $3, item_type = $4, price = $5, discontinued = $6, updated_at = now()
WHERE id = $1`

func (q *queries) UpdateItem(ctx context.Context, p catalog.UpdateItemParams) error {
	_, err := q.db.Exec(ctx, updateCatalogItem,
		p.ID, p.Code, p.Description, p.Type, p.Price.String(), p.Discontinued,
	)
	if err != nil {
		return fmt.Errorf("update catalog item: %w", err)
	}
	return nil
}

const deleteCatalogItems = `
DELETE FROM catalog_items WHERE manufacturer_id = $1`

func (q *queries) DeleteItems(ctx context.Context, manufacturerID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCatalogItems, manufacturerID)
	if err != nil {
		return 0, fmt.Errorf("delete catalog items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// bumpItemSequence keeps the id sequence ahead of restored ids so later
// inserts cannot collide.
const bumpItemSequence = `
SELECT setval('catalog_items_id_seq', (SELECT COALESCE(MAX(id), 1) FROM catalog_items))`

var restoreColumns = []string{
	"id", "manufacturer_id", "code", "style", "description",
	"item_type", "price", "discontinued", "created_at", "updated_at",
}

func (q *queries) RestoreItems(ctx context.Context, items []catalog.BackupItem) error {
	if len(items) > 0 {
		rows := make([][]any, len(items))
		for i, it := range items {
			// COPY runs in binary format, so the price has to be a real
			// numeric rather than the text bridge the row queries use.
			var price pgtype.Numeric
			if err := price.Scan(it.Price.String()); err != nil {
				return fmt.Errorf("encode price for item %d: %w", it.ID, err)
			}
			rows[i] = []any{
				it.ID, it.ManufacturerID, it.Code, it.Style, it.Description,
				it.Type, price, it.Discontinued, it.CreatedAt, it.UpdatedAt,
			}
		}
		n, err := q.db.CopyFrom(ctx, pgx.Identifier{"catalog_items"}, restoreColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("restore catalog items: %w", err)
		}
		if n != int64(len(items)) {
			return fmt.Errorf("restore catalog items: copied %d of %d rows", n, len(items))
		}
	}
	if _, err := q.db.Exec(ctx, bumpItemSequence); err != nil {
		return fmt.Errorf("advance id sequence: %w", err)
	}
	return nil
}

func scanItem(rows pgx.Rows) (catalog.Item, error) {
	var (
		item     catalog.Item
		priceRaw string
	)
	err := rows.Scan(
		&item.ID, &item.ManufacturerID, &item.Code, &item.Style,
		&item.Description, &item.Color, &item.Type,
		&priceRaw, &item.Discontinued, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("scan catalog item: %w", err)
	}
	item.Price, err = decimal.NewFromString(priceRaw)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("parse price %q: %w", priceRaw, err)
	}
	return item, nil
}
