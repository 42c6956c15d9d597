// Package store defines the gateway to wherever transactions live.
//
// Every operation is scoped to an owner identifier. Deletes match on both id
// and owner, so a request carrying someone else's id finds nothing. The
// owner identifier is a capability token, not an authenticated principal.
package store

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// Collection is the name of the remote collection/table.
const Collection = "transactions"

var (
	// ErrNotFound is returned when no transaction matches id and owner.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidRecord is returned when an insert is missing required fields.
	ErrInvalidRecord = errors.New("invalid transaction record")
)

// Ports for outbound adapters.
type (
	Lister interface {
		// List returns every transaction of ownerID in no particular order.
		List(ctx context.Context, ownerID string) ([]core.Transaction, error)
	}

	Inserter interface {
		// Insert stores tx and returns it with the backend-assigned ID.
		Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	Deleter interface {
		// DeleteByID removes the transaction id owned by ownerID.
		DeleteByID(ctx context.Context, ownerID, id string) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Gateway is the full set of operations a backend provides.
	Gateway interface {
		Lister
		Inserter
		Deleter
		Pinger
	}
)

// CheckInsert rejects records a backend must not store.
func CheckInsert(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	return nil
}
