package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

const ledgerColumns = `company_id, project_id, asset, balance, version, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Get(ctx context.Context, key domain.LedgerKey) (*domain.SubLedger, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM sub_ledgers
		WHERE company_id = $1 AND project_id = $2 AND asset = $3`,
		key.CompanyID, key.ProjectID, key.Asset,
	)
	l, err := scanSubLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return l, nil
}

func (r *LedgerRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (*domain.SubLedger, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM sub_ledgers
		WHERE company_id = $1 AND project_id = $2 AND asset = $3 FOR UPDATE`,
		key.CompanyID, key.ProjectID, key.Asset,
	)
	l, err := scanSubLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

// EnsureForUpdate creates the sub-ledger row on first use, then
// returns it locked. Rows are never deleted so the insert races only
// with itself.
func (r *LedgerRepository) EnsureForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (*domain.SubLedger, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sub_ledgers (company_id, project_id, asset, balance, version)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (company_id, project_id, asset) DO NOTHING`,
		key.CompanyID, key.ProjectID, key.Asset,
	)
	if err != nil {
		return nil, fmt.Errorf("EnsureForUpdate: insert: %w", err)
	}
	l, err := r.GetForUpdate(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("EnsureForUpdate: %w", err)
	}
	return l, nil
}

func (r *LedgerRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, key domain.LedgerKey, newBalance, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE sub_ledgers SET balance = $1, version = $2
		WHERE company_id = $3 AND project_id = $4 AND asset = $5 AND version = $6`,
		newBalance, newVersion, key.CompanyID, key.ProjectID, key.Asset, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanSubLedger(s scanner) (*domain.SubLedger, error) {
	var l domain.SubLedger
	err := s.Scan(&l.CompanyID, &l.ProjectID, &l.Asset, &l.Balance, &l.Version, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
