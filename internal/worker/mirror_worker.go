// Package worker applies transaction events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// MirrorWorker keeps a spreadsheet in step with the ledger.
type MirrorWorker struct {
	mirror sheets.TransactionMirror
	lister store.Lister
	logger *log.Logger
}

// NewMirrorWorker builds a worker. lister is only needed by Reconcile and
// may be nil.
func NewMirrorWorker(mirror sheets.TransactionMirror, lister store.Lister, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		mirror: mirror,
		lister: lister,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one event. Errors cause the delivery to be requeued.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	id := evt.Transaction.ID

	switch evt.Kind {
	case amqp.EventCreated:
		ref, err := w.mirror.Append(ctx, evt.Transaction.Core())
		if err != nil {
			return fmt.Errorf("append %s to sheet: %w", id, err)
		}
		w.logger.InfoContext(ctx, "Mirrored transaction",
			log.FieldOperation, log.OpMirror,
			log.FieldTransactionID, id,
			"row", ref)
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove %s from sheet: %w", id, err)
		}
		w.logger.InfoContext(ctx, "Removed mirrored transaction",
			log.FieldOperation, log.OpMirror,
			log.FieldTransactionID, id)
	default:
		return fmt.Errorf("unsupported event kind %q", evt.Kind)
	}
	return nil
}

// Reconcile appends every stored transaction of ownerID that the sheet does
// not have yet. It recovers events lost while the worker was down; rows of
// deletions missed in that window are not removed.
func (w *MirrorWorker) Reconcile(ctx context.Context, ownerID string) (int, error) {
	if w.lister == nil {
		return 0, nil
	}
	txs, err := w.lister.List(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list transactions for reconcile: %w", err)
	}

	synced, failed := 0, 0
	for _, tx := range txs {
		if _, err := w.mirror.Append(ctx, tx); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "Failed to mirror transaction during reconcile",
				log.FieldTransactionID, tx.ID,
				log.FieldError, err)
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Reconcile completed",
		log.FieldOwnerID, ownerID,
		"total", len(txs),
		"synced", synced,
		"errors", failed)
	return synced, nil
}
