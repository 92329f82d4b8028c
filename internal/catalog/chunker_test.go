package catalog

import (
	"errors"
	"fmt"
	"testing"
)

// sliceSource is an in-memory RowSource for chunker tests.
type sliceSource struct {
	rows []map[string]string
}

func (s *sliceSource) Each(fn func(map[string]string) error) error {
	for _, row := range s.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func codeRows(n int) []map[string]string {
	rows := make([]map[string]string, n)
	for i := range rows {
		rows[i] = map[string]string{"Item": fmt.Sprintf("SKU-%04d", i)}
	}
	return rows
}

func TestChunks_Invariant(t *testing.T) {
	tests := []struct {
		name       string
		rows       int
		size       int
		wantChunks int
	}{
		{"empty source", 0, 500, 0},
		{"single partial chunk", 3, 500, 1},
		{"exact multiple", 10, 5, 2},
		{"remainder chunk", 11, 5, 3},
		{"size one", 4, 1, 4},
		{"default size when invalid", 3, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sliceSource{rows: codeRows(tt.rows)}

			var chunks int
			processed := 0
			total, err := Chunks(src, tt.size, func(chunk []CatalogRow, before, totalRows int) error {
				chunks++
				if before != processed {
					t.Errorf("processedBefore = %d, want %d", before, processed)
				}
				if totalRows != tt.rows {
					t.Errorf("total = %d, want %d", totalRows, tt.rows)
				}
				processed += len(chunk)
				return nil
			})
			if err != nil {
				t.Fatalf("Chunks() error = %v", err)
			}
			if total != tt.rows {
				t.Errorf("Chunks() total = %d, want %d", total, tt.rows)
			}
			if processed != tt.rows {
				t.Errorf("sum of chunk lengths = %d, want %d", processed, tt.rows)
			}
			if chunks != tt.wantChunks {
				t.Errorf("chunk count = %d, want %d", chunks, tt.wantChunks)
			}
		})
	}
}

func TestChunks_ExcludesRowsWithoutCode(t *testing.T) {
	src := &sliceSource{rows: []map[string]string{
		{"Item": "A"},
		{"Description": "no code here"},
		{"Item": "  "},
		{"Item": "B"},
	}}

	var seen []string
	total, err := Chunks(src, 10, func(chunk []CatalogRow, _, _ int) error {
		for _, row := range chunk {
			seen = append(seen, row.Code)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 (code-less rows excluded from the count)", total)
	}
	if len(seen) != 2 || seen[0] != "A" || seen[1] != "B" {
		t.Errorf("seen = %v, want [A B]", seen)
	}
}

func TestChunks_PreservesFileOrder(t *testing.T) {
	src := &sliceSource{rows: codeRows(7)}

	var seen []string
	_, err := Chunks(src, 3, func(chunk []CatalogRow, _, _ int) error {
		for _, row := range chunk {
			seen = append(seen, row.Code)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, code := range seen {
		want := fmt.Sprintf("SKU-%04d", i)
		if code != want {
			t.Fatalf("seen[%d] = %q, want %q", i, code, want)
		}
	}
}

func TestChunks_CallbackErrorStops(t *testing.T) {
	src := &sliceSource{rows: codeRows(10)}

	boom := errors.New("tx failed")
	calls := 0
	total, err := Chunks(src, 3, func([]CatalogRow, int, int) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Chunks() error = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
	if total != 10 {
		t.Errorf("total = %d, want 10 (pre-count still reported)", total)
	}
}

func TestChunks_FreshSlicePerChunk(t *testing.T) {
	src := &sliceSource{rows: codeRows(6)}

	var held [][]CatalogRow
	_, err := Chunks(src, 2, func(chunk []CatalogRow, _, _ int) error {
		held = append(held, chunk)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Retained chunks must stay intact after later chunks are assembled.
	if held[0][0].Code != "SKU-0000" || held[1][0].Code != "SKU-0002" {
		t.Errorf("retained chunks were clobbered: %v, %v", held[0][0].Code, held[1][0].Code)
	}
}

func TestReadAll(t *testing.T) {
	src := &sliceSource{rows: []map[string]string{
		{"Item": "A", "Price": "1.00"},
		{"Description": "skipped"},
		{"Item": "B", "Price": "2.00"},
	}}

	rows, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Code != "A" || rows[1].Code != "B" {
		t.Errorf("rows = %v", rows)
	}
}

// failingSource errors partway through iteration.
type failingSource struct {
	rows    []map[string]string
	failAt  int
	failErr error
}

func (s *failingSource) Each(fn func(map[string]string) error) error {
	for i, row := range s.rows {
		if i == s.failAt {
			return s.failErr
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func TestChunks_SourceErrorDuringCount(t *testing.T) {
	parseErr := errors.New("read row: bad quoting")
	src := &failingSource{rows: codeRows(5), failAt: 3, failErr: parseErr}

	_, err := Chunks(src, 2, func([]CatalogRow, int, int) error {
		t.Fatal("callback should not run when the count pass fails")
		return nil
	})
	if !errors.Is(err, parseErr) {
		t.Fatalf("Chunks() error = %v, want parse error", err)
	}
}
