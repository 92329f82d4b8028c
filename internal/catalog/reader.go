package catalog

// reader.go provides format-specific row sources for uploaded catalog files.
//
// Both sources yield raw header-keyed rows lazily. The CSV source re-reads
// the file on every pass and keeps O(1) rows in memory; the Excel source has
// an unavoidable full sheet parse, bounded by the file-size ceiling, and
// caches the parsed rows so repeated passes are cheap.

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Accepted upload content types. application/octet-stream falls back to
// extension dispatch; anything else is rejected before a row is read.
const (
	contentTypeCSV   = "text/csv"
	contentTypeXLS   = "application/vnd.ms-excel"
	contentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeOctet = "application/octet-stream"
)

// RowSource yields raw rows from a catalog file. Each is restartable: every
// call re-streams the rows from the beginning.
type RowSource interface {
	Each(fn func(row map[string]string) error) error
}

// OpenSource dispatches a file to the matching reader by content type (with
// extension fallback for octet-stream uploads). Files over maxSize are
// rejected with ErrFileTooLarge before any parsing work begins.
func OpenSource(path, contentType string, maxSize int64) (RowSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, info.Size(), maxSize)
	}

	switch normalizeContentType(contentType, path) {
	case contentTypeCSV:
		return &csvSource{path: path}, nil
	case contentTypeXLS, contentTypeXLSX:
		return &xlsxSource{path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
}

// normalizeContentType strips media-type parameters and resolves
// octet-stream uploads by file extension.
func normalizeContentType(contentType, path string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	if ct == contentTypeOctet || ct == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			return contentTypeCSV
		case ".xlsx":
			return contentTypeXLSX
		case ".xls":
			return contentTypeXLS
		}
	}
	return ct
}

// csvSource streams a delimited-text file one row at a time. Row emission is
// paced by file I/O, so downstream chunking is naturally backpressured.
type csvSource struct {
	path string
}

func (s *csvSource) Each(fn func(map[string]string) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(NewUTF8SanitizingReader(NewBOMSkippingReader(f)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	keys := headerKeys(header)

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if err := fn(zipRow(keys, rec)); err != nil {
			return err
		}
	}
}

// xlsxSource reads the first sheet of a workbook. The sheet is parsed in full
// on first use and cached for subsequent passes.
type xlsxSource struct {
	path   string
	rows   []map[string]string
	loaded bool
}

func (s *xlsxSource) Each(fn func(map[string]string) error) error {
	if err := s.load(); err != nil {
		return err
	}
	for _, row := range s.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *xlsxSource) load() error {
	if s.loaded {
		return nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		s.loaded = true
		return nil
	}

	// GetRows returns display text for every cell, which is what the
	// normalizer expects.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		s.loaded = true
		return nil
	}

	keys := headerKeys(rows[0])
	s.rows = make([]map[string]string, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		s.rows = append(s.rows, zipRow(keys, rec))
	}
	s.loaded = true
	return nil
}

func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("COL_%d", i+1)
		}
		keys[i] = h
	}
	return keys
}

func zipRow(keys, rec []string) map[string]string {
	row := make(map[string]string, len(keys))
	for i, v := range rec {
		if i >= len(keys) {
			break
		}
		row[keys[i]] = v
	}
	return row
}
