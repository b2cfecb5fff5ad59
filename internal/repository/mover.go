package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

// MoverRepository persists the withdrawal allow-list: wallets
// permitted to call the treasury withdraw operation directly.
type MoverRepository struct {
	db *sql.DB
}

func NewMoverRepository(db *sql.DB) *MoverRepository {
	return &MoverRepository{db: db}
}

func (r *MoverRepository) Add(ctx context.Context, wallet, addedBy domain.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO treasury_movers (wallet, added_by, created_at) VALUES ($1, $2, $3)`,
		wallet, addedBy, time.Now().UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("Add: %w", domain.ErrMoverExists)
		}
		return fmt.Errorf("Add: %w", err)
	}
	return nil
}

func (r *MoverRepository) Remove(ctx context.Context, wallet domain.Wallet) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM treasury_movers WHERE wallet = $1`, wallet,
	)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Remove: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Remove: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *MoverRepository) Exists(ctx context.Context, wallet domain.Wallet) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM treasury_movers WHERE wallet = $1)`, wallet,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (r *MoverRepository) List(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT wallet FROM treasury_movers ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return wallets, nil
}
