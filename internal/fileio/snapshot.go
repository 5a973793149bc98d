package fileio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"alias-service/internal/alias/model"
)

// Columns picks the id/name/norm_name columns of a tabular file.
// Empty fields fall back to common header names.
type Columns struct {
	ID        string
	Name      string
	NormName  string
	HeaderRow int
}

// ReadRecords reads one store's file into product records. Rows without
// an id column get "<store>-<n>" ids in file order.
func ReadRecords(r io.Reader, filename, store string, cols Columns) ([]model.ProductRecord, error) {
	if store == "" {
		return nil, fmt.Errorf("%s: store tag is empty", filename)
	}
	hr := cols.HeaderRow
	if hr <= 0 {
		hr = 1
	}
	rows, err := ReadAnyMaps(r, filename, hr)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.ProductRecord{}, nil
	}

	nameKey := resolveKey(rows[0], cols.Name, nameColumns...)
	if nameKey == "" {
		return nil, fmt.Errorf("%s: no name column among %v", filename, headersOf(rows[0]))
	}
	idKey := resolveKey(rows[0], cols.ID, idColumns...)
	normKey := resolveKey(rows[0], cols.NormName, normColumns...)
	if normKey == nameKey {
		normKey = ""
	}

	out := make([]model.ProductRecord, 0, len(rows))
	for i, row := range rows {
		id := ""
		if idKey != "" {
			id = strings.TrimSpace(row[idKey])
		}
		if id == "" {
			id = store + "-" + strconv.Itoa(i+1)
		}
		rec := model.ProductRecord{ID: id, Name: row[nameKey], Store: store}
		if normKey != "" {
			rec.NormName = strings.TrimSpace(row[normKey])
		}
		out = append(out, rec)
	}
	return out, nil
}

func headersOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// StoreFile binds a snapshot file to the store it came from.
type StoreFile struct {
	Store string
	Path  string
}

// ParseStoreFile parses "store=path".
func ParseStoreFile(s string) (StoreFile, error) {
	store, path, ok := strings.Cut(s, "=")
	store, path = strings.TrimSpace(store), strings.TrimSpace(path)
	if !ok || store == "" || path == "" {
		return StoreFile{}, fmt.Errorf("expected store=path, got %q", s)
	}
	return StoreFile{Store: store, Path: path}, nil
}

// Snapshot is a file-backed product source for offline runs.
type Snapshot struct {
	files []StoreFile
	cols  Columns
}

func NewSnapshot(files []StoreFile, cols Columns) *Snapshot {
	return &Snapshot{files: files, cols: cols}
}

// LoadProducts concatenates the files in the order given.
func (s *Snapshot) LoadProducts(ctx context.Context) ([]model.ProductRecord, error) {
	var out []model.ProductRecord
	for _, f := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readStoreFile(f, s.cols)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readStoreFile(f StoreFile, cols Columns) ([]model.ProductRecord, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	recs, err := ReadRecords(fh, f.Path, f.Store, cols)
	if err != nil {
		return nil, fmt.Errorf("read %s snapshot: %w", f.Store, err)
	}
	return recs, nil
}
