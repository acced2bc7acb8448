package store

import "context"

// Header is the sheet column order. Every backend writes it as row one.
var Header = []string{"Timestamp", "Name", "Email", "District", "Rep"}

// Column indexes into a data row.
const (
	colTimestamp = iota
	colName
	colEmail
	colDistrict
	colRep
)

// Table is a whole-table tabular backend: a remote worksheet or a local
// delimited file. Rows exclude the header. Overwrite replaces the entire
// table contents; the shrink and monotonicity guards that make that safe
// live in Store, which is the only caller.
type Table interface {
	ReadAll(ctx context.Context) ([][]string, error)
	Overwrite(ctx context.Context, rows [][]string) error
}
