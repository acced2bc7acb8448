package store

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsTable keeps signatures in a Google Sheets worksheet, addressed
// by spreadsheet ID and worksheet name.
type SheetsTable struct {
	srv       *sheets.Service
	sheetID   string
	worksheet string
}

func NewSheetsTable(ctx context.Context, credentialsFile, sheetID, worksheet string) (*SheetsTable, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	return &SheetsTable{srv: srv, sheetID: sheetID, worksheet: worksheet}, nil
}

func (t *SheetsTable) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := t.srv.Spreadsheets.Values.Get(t.sheetID, t.worksheet).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, raw := range resp.Values {
		if i == 0 {
			continue // header
		}
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (t *SheetsTable) Overwrite(ctx context.Context, rows [][]string) error {
	values := make([][]interface{}, 0, len(rows)+1)
	hdr := make([]interface{}, len(Header))
	for i, h := range Header {
		hdr[i] = h
	}
	values = append(values, hdr)
	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, c := range row {
			cells[i] = c
		}
		values = append(values, cells)
	}

	if _, err := t.srv.Spreadsheets.Values.Clear(t.sheetID, t.worksheet, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return err
	}
	_, err := t.srv.Spreadsheets.Values.Update(t.sheetID, t.worksheet, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
