package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

func SeedSubLedger(t *testing.T, db *sql.DB, key domain.LedgerKey, balance int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO sub_ledgers (company_id, project_id, asset, balance, version)
		 VALUES ($1, $2, $3, $4, 0)
		 ON CONFLICT (company_id, project_id, asset)
		 DO UPDATE SET balance = EXCLUDED.balance`,
		key.CompanyID, key.ProjectID, key.Asset, balance,
	)
	if err != nil {
		t.Fatalf("seed sub ledger: %v", err)
	}
}

func SeedMover(t *testing.T, db *sql.DB, wallet domain.Wallet) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO treasury_movers (wallet, added_by, created_at)
		 VALUES ($1, 'test-fixture', $2)
		 ON CONFLICT (wallet) DO NOTHING`,
		wallet, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed mover %s: %v", wallet, err)
	}
}

func SeedStream(t *testing.T, db *sql.DB, s *domain.Stream) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(
		`INSERT INTO streams (
			company_id, project_id, asset, recipient, total_amount,
			start_time, end_time, withdrawn, is_bonus, is_active, is_paused,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id`,
		s.CompanyID, s.ProjectID, s.Asset, s.Recipient, s.TotalAmount,
		s.StartTime, s.EndTime, s.Withdrawn, s.IsBonus, s.IsActive, s.IsPaused,
		now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed stream: %v", err)
	}
	s.ID = id
	return id
}

func GetLedgerBalance(t *testing.T, db *sql.DB, key domain.LedgerKey) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(
		`SELECT balance FROM sub_ledgers
		 WHERE company_id = $1 AND project_id = $2 AND asset = $3`,
		key.CompanyID, key.ProjectID, key.Asset,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("get ledger balance: %v", err)
	}
	return balance
}

func CountTreasuryEntries(t *testing.T, db *sql.DB, key domain.LedgerKey) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM treasury_entries
		 WHERE company_id = $1 AND project_id = $2 AND asset = $3`,
		key.CompanyID, key.ProjectID, key.Asset,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count treasury entries: %v", err)
	}
	return count
}

func CountStreams(t *testing.T, db *sql.DB, projectID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM streams WHERE project_id = $1`, projectID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count streams: %v", err)
	}
	return count
}
