package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

const entryColumns = `id, company_id, project_id, asset, entry_type, reason,
	amount, balance_before, balance_after, counterparty, stream_id, created_at`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.TreasuryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO treasury_entries (
			id, company_id, project_id, asset, entry_type, reason,
			amount, balance_before, balance_after, counterparty, stream_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.CompanyID, e.ProjectID, e.Asset, e.EntryType, e.Reason,
		e.Amount, e.BalanceBefore, e.BalanceAfter, e.Counterparty, e.StreamID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *EntryRepository) ListByKey(ctx context.Context, key domain.LedgerKey, limit, offset int) ([]domain.TreasuryEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM treasury_entries
		WHERE company_id = $1 AND project_id = $2 AND asset = $3`,
		key.CompanyID, key.ProjectID, key.Asset,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByKey: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM treasury_entries
		WHERE company_id = $1 AND project_id = $2 AND asset = $3
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		key.CompanyID, key.ProjectID, key.Asset, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByKey: %w", err)
	}
	defer rows.Close()

	var entries []domain.TreasuryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByKey: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByKey: rows: %w", err)
	}
	return entries, total, nil
}

func (r *EntryRepository) ListByStream(ctx context.Context, streamID int64) ([]domain.TreasuryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM treasury_entries
		WHERE stream_id = $1 ORDER BY created_at`, streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStream: %w", err)
	}
	defer rows.Close()

	var entries []domain.TreasuryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStream: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStream: rows: %w", err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.TreasuryEntry, error) {
	var e domain.TreasuryEntry
	err := s.Scan(
		&e.ID, &e.CompanyID, &e.ProjectID, &e.Asset, &e.EntryType, &e.Reason,
		&e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.Counterparty, &e.StreamID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
