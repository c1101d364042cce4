package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"filmdex/internal/promotion"
	"filmdex/pkg/models"
)

// querier is the query surface shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transact runs fn's promotion reads and writes on a single database
// transaction. The connection opens write transactions with an immediate
// lock (see pkg/database), so two writer processes sharing the file queue
// behind each other instead of interleaving a read-compare-promote sequence.
func (r *Repo) Transact(ctx context.Context, fn func(promotion.Ops) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promotion tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txOps{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion tx: %w", err)
	}
	return nil
}

// txOps is the transaction-bound view of the promotion store surface.
type txOps struct {
	tx *sql.Tx
}

func (t txOps) PrimaryCopy(ctx context.Context, groupID string) (*models.Copy, error) {
	return primaryCopy(ctx, t.tx, groupID)
}

func (t txOps) CopiesByGroup(ctx context.Context, groupID string) ([]models.Copy, error) {
	return copiesByGroup(ctx, t.tx, groupID)
}

func (t txOps) SetPrimary(ctx context.Context, copyID string) error {
	return setPrimary(ctx, t.tx, copyID)
}

func (t txOps) ClearPrimary(ctx context.Context, copyID string) error {
	return clearPrimary(ctx, t.tx, copyID)
}
