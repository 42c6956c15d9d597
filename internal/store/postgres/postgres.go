// Package postgres stores transactions in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ store.Gateway = (*Store)(nil)

type Store struct {
	pool  *pgxpool.Pool
	newID func() string
}

// Connect opens a pool, verifies it and applies pending migrations.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrateUp(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, newID: uuid.NewString}, nil
}

func migrateUp(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	query := `
		SELECT id, user_id, date, type, amount::text, category, title
		FROM transactions WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx              core.Transaction
			typ, cat, amtxt string
		)
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.Date, &typ, &amtxt, &cat, &tx.Title); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		amount, err := decimal.NewFromString(amtxt)
		if err != nil {
			return nil, fmt.Errorf("decode amount of %s: %w", tx.ID, err)
		}
		tx.Type = core.TxType(typ)
		tx.Category = core.Category(cat)
		tx.Amount = amount
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := store.CheckInsert(tx); err != nil {
		return core.Transaction{}, err
	}
	query := `
		INSERT INTO transactions (id, user_id, date, type, amount, category, title)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		s.newID(), tx.OwnerID, tx.Date, string(tx.Type), tx.Amount.String(), string(tx.Category), tx.Title).
		Scan(&tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) DeleteByID(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
