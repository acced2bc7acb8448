package store

import (
	"context"
	"encoding/csv"
	"os"
)

// CSVTable keeps signatures in a local delimited file with a header row.
type CSVTable struct {
	path string
}

func NewCSVTable(path string) *CSVTable {
	return &CSVTable{path: path}
}

func (t *CSVTable) ReadAll(ctx context.Context) ([][]string, error) {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		records = records[1:] // drop header
	}
	return records, nil
}

func (t *CSVTable) Overwrite(ctx context.Context, rows [][]string) error {
	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, t.path)
}
