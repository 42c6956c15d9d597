package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// OwnerSource supplies the owner identifier every operation is scoped to.
type OwnerSource interface {
	OwnerID() string
	Ephemeral() bool
}

// EventPublisher announces stored and removed transactions.
type EventPublisher interface {
	Publish(ctx context.Context, evt *amqp.TransactionEvent) error
}

// loadSeq orders concurrent loads of one owner's snapshot.
type loadSeq struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// LedgerService orchestrates transaction operations across the backend, the
// snapshot cache and the event publisher.
type LedgerService struct {
	gateway   store.Gateway
	owner     OwnerSource
	publisher EventPublisher
	snapshots cache.Cache[*core.Ledger]
	logger    *log.Logger

	mu   sync.Mutex
	seqs map[string]*loadSeq
}

// NewLedgerService wires the service. publisher may be nil; snapshots may be
// nil, in which case every read goes to the backend.
func NewLedgerService(gateway store.Gateway, owner OwnerSource, publisher EventPublisher, snapshots cache.Cache[*core.Ledger], logger *log.Logger) *LedgerService {
	if snapshots == nil {
		snapshots = cache.Noop[*core.Ledger]{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		gateway:   gateway,
		owner:     owner,
		publisher: publisher,
		snapshots: snapshots,
		logger:    logger.WithComponent(log.ComponentLedger),
		seqs:      make(map[string]*loadSeq),
	}
}

func (s *LedgerService) OwnerID() string { return s.owner.OwnerID() }

// Ephemeral reports whether the owner identifier will be lost on restart.
func (s *LedgerService) Ephemeral() bool { return s.owner.Ephemeral() }

func (s *LedgerService) seq(owner string) *loadSeq {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.seqs[owner]
	if !ok {
		q = &loadSeq{}
		s.seqs[owner] = q
	}
	return q
}

// Load fetches the owner's transactions and replaces the snapshot. A result
// older than one already applied is discarded and the newer snapshot is
// returned instead.
func (s *LedgerService) Load(ctx context.Context) (*core.Ledger, error) {
	owner := s.owner.OwnerID()
	q := s.seq(owner)

	q.mu.Lock()
	q.issued++
	ticket := q.issued
	q.mu.Unlock()

	txs, err := s.gateway.List(ctx, owner)
	if err != nil {
		s.logger.LogOperation(ctx, "Failed to load transactions", log.OpLoad, err, log.NewFields().WithOwner(owner))
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	ledger := core.NewLedger(txs)

	q.mu.Lock()
	defer q.mu.Unlock()
	if ticket < q.applied {
		s.logger.DebugContext(ctx, "Discarded stale load", "ticket", ticket, "applied", q.applied)
		if current, ok := s.snapshots.Get(owner); ok {
			return current, nil
		}
		return ledger, nil
	}
	q.applied = ticket
	s.snapshots.Set(owner, ledger)

	s.logger.DebugContext(ctx, "Loaded transactions",
		log.FieldOwnerID, owner,
		"count", ledger.Len())
	return ledger, nil
}

// Ledger returns the cached snapshot, loading it on a miss.
func (s *LedgerService) Ledger(ctx context.Context) (*core.Ledger, error) {
	if l, ok := s.snapshots.Get(s.owner.OwnerID()); ok {
		return l, nil
	}
	return s.Load(ctx)
}

// Invalidate drops the cached snapshot.
func (s *LedgerService) Invalidate() {
	s.snapshots.Delete(s.owner.OwnerID())
}

// Create validates input, stores it and refreshes the snapshot. Validation
// errors are returned before the backend is contacted.
func (s *LedgerService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	owner := s.owner.OwnerID()
	tx, err := in.Transaction(owner)
	if err != nil {
		return core.Transaction{}, err
	}

	rec, err := s.gateway.Insert(ctx, tx)
	if err != nil {
		s.logger.LogOperation(ctx, "Failed to save transaction", log.OpCreate, err, log.NewFields().WithOwner(owner))
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	s.logger.LogOperation(ctx, "Transaction saved", log.OpCreate, nil, log.NewFields().
		WithOwner(owner).
		WithTransaction(rec.ID, rec.Date, string(rec.Type), rec.Amount.String(), string(rec.Category)))

	s.publish(ctx, amqp.EventCreated, rec)
	s.refresh(ctx)
	return rec, nil
}

// Delete removes one of the owner's transactions and refreshes the snapshot.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	owner := s.owner.OwnerID()

	removed := core.Transaction{ID: id, OwnerID: owner}
	if l, ok := s.snapshots.Get(owner); ok {
		if tx, found := l.Find(id); found {
			removed = tx
		}
	}

	if err := s.gateway.DeleteByID(ctx, owner, id); err != nil {
		fields := log.NewFields().WithOwner(owner)
		fields[log.FieldTransactionID] = id
		s.logger.LogOperation(ctx, "Failed to delete transaction", log.OpDelete, err, fields)
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldOwnerID, owner,
		log.FieldTransactionID, id)

	s.publish(ctx, amqp.EventDeleted, removed)
	s.refresh(ctx)
	return nil
}

// refresh reloads after a write. A failed reload drops the snapshot so the
// next read goes to the backend.
func (s *LedgerService) refresh(ctx context.Context) {
	if _, err := s.Load(ctx); err != nil {
		s.Invalidate()
	}
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			"kind", kind,
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
	}
}

// Ping checks the backend.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}
