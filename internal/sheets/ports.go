// Package sheets mirrors transactions into a spreadsheet.
package sheets

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// ErrNoService is returned by a mirror that was never connected.
var ErrNoService = errors.New("sheets service not initialized")

// Ports for outbound adapters.
type (
	// RowWriter appends one transaction row. Appending an id that is already
	// mirrored returns the existing row reference.
	RowWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// RowRemover clears the row holding id. Unknown ids are not an error.
	RowRemover interface {
		Remove(ctx context.Context, id string) error
	}

	TransactionMirror interface {
		RowWriter
		RowRemover
	}
)

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "Date", "Type", "Category", "Title", "Amount"}

// Row renders tx in column order A..F.
func Row(tx core.Transaction) []string {
	return []string{
		tx.ID,
		tx.Date,
		string(tx.Type),
		tx.Category.Info().Label,
		tx.Title,
		tx.Amount.String(),
	}
}
