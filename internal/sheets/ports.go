// Package sheets mirrors transactions into a spreadsheet, one row per
// transaction keyed by its ID.
package sheets

import (
	"context"
	"strconv"

	"stephly/internal/core"
)

// Header is the first row of the export sheet.
var Header = []any{"ID", "Date", "Type", "Title", "Category", "Amount", "Note"}

// Exporter is the outbound port used by the worker.
type Exporter interface {
	// Upsert writes the transaction row, replacing an existing row with the
	// same ID.
	Upsert(ctx context.Context, t core.Transaction) error
	// Delete removes the row for id. Deleting a missing row is not an error.
	Delete(ctx context.Context, id int64) error
}

// Row renders t in Header order. Amounts are in major units.
func Row(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.Date.String(),
		string(t.Type),
		t.Title,
		t.Category,
		t.Amount.Float(),
		t.Note,
	}
}
