package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

const streamColumns = `id, company_id, project_id, asset, recipient, total_amount,
	start_time, end_time, withdrawn, is_bonus, is_active, is_paused,
	created_at, updated_at`

type StreamRepository struct {
	db *sql.DB
}

func NewStreamRepository(db *sql.DB) *StreamRepository {
	return &StreamRepository{db: db}
}

// Create inserts the stream and fills in its serial id, so ids are
// assigned monotonically by the database.
func (r *StreamRepository) Create(ctx context.Context, tx *sql.Tx, s *domain.Stream) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO streams (
			company_id, project_id, asset, recipient, total_amount,
			start_time, end_time, withdrawn, is_bonus, is_active, is_paused,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		s.CompanyID, s.ProjectID, s.Asset, s.Recipient, s.TotalAmount,
		s.StartTime, s.EndTime, s.Withdrawn, s.IsBonus, s.IsActive, s.IsPaused,
		s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *StreamRepository) GetByID(ctx context.Context, id int64) (*domain.Stream, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE id = $1`, id,
	)
	s, err := scanStream(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return s, nil
}

func (r *StreamRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Stream, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE id = $1 FOR UPDATE`, id,
	)
	s, err := scanStream(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return s, nil
}

// Update persists every mutable stream field. Callers hold the row
// lock from GetForUpdate.
func (r *StreamRepository) Update(ctx context.Context, tx *sql.Tx, s *domain.Stream) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE streams SET
			total_amount = $1, start_time = $2, end_time = $3, withdrawn = $4,
			is_active = $5, is_paused = $6, updated_at = $7
		WHERE id = $8`,
		s.TotalAmount, s.StartTime, s.EndTime, s.Withdrawn,
		s.IsActive, s.IsPaused, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *StreamRepository) ListByProject(ctx context.Context, companyID, projectID uuid.UUID, limit, offset int) ([]domain.Stream, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM streams WHERE company_id = $1 AND project_id = $2`,
		companyID, projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByProject: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+streamColumns+` FROM streams
		WHERE company_id = $1 AND project_id = $2
		ORDER BY id DESC LIMIT $3 OFFSET $4`,
		companyID, projectID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByProject: %w", err)
	}
	defer rows.Close()

	streams, err := collectStreams(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByProject: %w", err)
	}
	return streams, total, nil
}

func (r *StreamRepository) ListByRecipient(ctx context.Context, recipient domain.Wallet, limit, offset int) ([]domain.Stream, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM streams WHERE recipient = $1`, recipient,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByRecipient: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+streamColumns+` FROM streams
		WHERE recipient = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		recipient, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByRecipient: %w", err)
	}
	defer rows.Close()

	streams, err := collectStreams(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByRecipient: %w", err)
	}
	return streams, total, nil
}

func collectStreams(rows *sql.Rows) ([]domain.Stream, error) {
	var streams []domain.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("collectStreams: scan: %w", err)
		}
		streams = append(streams, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collectStreams: rows: %w", err)
	}
	return streams, nil
}

func scanStream(s scanner) (*domain.Stream, error) {
	var st domain.Stream
	err := s.Scan(
		&st.ID, &st.CompanyID, &st.ProjectID, &st.Asset, &st.Recipient, &st.TotalAmount,
		&st.StartTime, &st.EndTime, &st.Withdrawn, &st.IsBonus, &st.IsActive, &st.IsPaused,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
