package catalog

// chunker.go batches normalized rows into fixed-size chunks, decoupling
// parsing cadence from persistence cadence. Totals for progress reporting
// come from a lightweight pre-count pass over the source: one extra read of
// the file buys accurate (processed, total) numbers for the streaming CSV
// path, where the row count is otherwise unknown until the end.

import "fmt"

// DefaultChunkSize is the per-transaction row batch for the chunked path.
const DefaultChunkSize = 500

// DefaultBatchSize is the per-transaction row batch for the regular path.
const DefaultBatchSize = 100

// ChunkFunc consumes one chunk. processedBefore is the number of rows handed
// to previous invocations and total is the full normalized row count.
type ChunkFunc func(chunk []CatalogRow, processedBefore, total int) error

// NormalizedEach streams normalized rows from src, excluding rows whose code
// is empty after trimming.
func NormalizedEach(src RowSource, fn func(CatalogRow) error) error {
	return src.Each(func(raw map[string]string) error {
		row, ok := Normalize(raw)
		if !ok {
			return nil
		}
		return fn(row)
	})
}

// Chunks drives fn once per chunk of up to size normalized rows, in file
// order. After the final chunk the cumulative processed count equals the
// total normalized row count. Returns that total.
//
// An error from fn stops the run immediately; rows already handed to fn are
// not revisited.
func Chunks(src RowSource, size int, fn ChunkFunc) (int, error) {
	if size < 1 {
		size = DefaultChunkSize
	}

	total := 0
	err := NormalizedEach(src, func(CatalogRow) error {
		total++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}

	chunk := make([]CatalogRow, 0, size)
	processed := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := fn(chunk, processed, total); err != nil {
			return err
		}
		processed += len(chunk)
		chunk = make([]CatalogRow, 0, size)
		return nil
	}

	err = NormalizedEach(src, func(row CatalogRow) error {
		chunk = append(chunk, row)
		if len(chunk) >= size {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// ReadAll eagerly parses the full normalized row sequence. Used by the
// regular path, where the file-size ceiling bounds memory.
func ReadAll(src RowSource) ([]CatalogRow, error) {
	var rows []CatalogRow
	err := NormalizedEach(src, func(row CatalogRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
