// Package storage keeps transactions in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Gateway = (*SQLiteRepository)(nil)

const (
	listQuery = `SELECT id, user_id, date, type, amount, category, title
FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`
	insertQuery = `INSERT INTO transactions (id, user_id, date, type, amount, category, title)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	deleteQuery = `DELETE FROM transactions WHERE id = ? AND user_id = ?`
)

type SQLiteRepository struct {
	db    *sql.DB
	newID func() string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, newID: uuid.NewString}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, listQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx         core.Transaction
			typ, cat   string
			amountText string
		)
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.Date, &typ, &amountText, &cat, &tx.Title); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		amount, err := decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("decode amount of %s: %w", tx.ID, err)
		}
		tx.Type = core.TxType(typ)
		tx.Category = core.Category(cat)
		tx.Amount = amount
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := store.CheckInsert(tx); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = r.newID()
	_, err := r.db.ExecContext(ctx, insertQuery,
		tx.ID, tx.OwnerID, tx.Date, string(tx.Type), tx.Amount.String(), string(tx.Category), tx.Title)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"date", tx.Date,
		"type", tx.Type,
		"amount", tx.Amount.String())

	return tx, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteQuery, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
