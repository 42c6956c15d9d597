package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/store"
)

var _ store.Gateway = (*Store)(nil)

// Store keeps transactions in process memory, in insertion order.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	newID func() string
}

func New(seed ...core.Transaction) *Store {
	s := &Store{newID: uuid.NewString}
	s.items = append(s.items, seed...)
	return s
}

// WithIDs overrides id generation.
func (s *Store) WithIDs(fn func() string) *Store {
	s.newID = fn
	return s
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	if err := store.CheckInsert(tx); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.newID()
	s.items = append(s.items, tx)
	return tx, nil
}

func (s *Store) DeleteByID(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.OwnerID == ownerID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
