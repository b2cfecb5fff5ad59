// Package treasury owns the per-(company, project, asset) balance
// ledger. Every balance mutation pairs with an asset transfer through
// the custodian, and the pair commits or rolls back as one unit.
package treasury

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

type ledgerRepo interface {
	Get(ctx context.Context, key domain.LedgerKey) (*domain.SubLedger, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (*domain.SubLedger, error)
	EnsureForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (*domain.SubLedger, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, key domain.LedgerKey, newBalance, newVersion int64) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.TreasuryEntry) error
	ListByKey(ctx context.Context, key domain.LedgerKey, limit, offset int) ([]domain.TreasuryEntry, int, error)
}

type moverRepo interface {
	Add(ctx context.Context, wallet, addedBy domain.Wallet) error
	Remove(ctx context.Context, wallet domain.Wallet) error
	Exists(ctx context.Context, wallet domain.Wallet) (bool, error)
	List(ctx context.Context) ([]domain.Wallet, error)
}

type custodianClient interface {
	Pull(ctx context.Context, asset domain.Asset, from domain.Wallet, amount int64) error
	Push(ctx context.Context, asset domain.Asset, to domain.Wallet, amount int64) error
}

type roleClient interface {
	HasGlobalRole(ctx context.Context, role domain.Role, wallet domain.Wallet) (bool, error)
}

type Service struct {
	ledger      ledgerRepo
	entries     entryRepo
	movers      moverRepo
	custodian   custodianClient
	roles       roleClient
	db          *sql.DB
	nativeAsset domain.Asset

	// now stamps audit entries; swapped in tests.
	now func() time.Time
}

func NewService(
	ledger ledgerRepo,
	entries entryRepo,
	movers moverRepo,
	custodianSvc custodianClient,
	roles roleClient,
	db *sql.DB,
	nativeAsset domain.Asset,
) *Service {
	return &Service{
		ledger:      ledger,
		entries:     entries,
		movers:      movers,
		custodian:   custodianSvc,
		roles:       roles,
		db:          db,
		nativeAsset: nativeAsset,
		now:         time.Now,
	}
}

// GetBalance is a pure read: zero for a key that was never funded.
func (s *Service) GetBalance(ctx context.Context, key domain.LedgerKey) (int64, error) {
	l, err := s.ledger.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return l.Balance, nil
}

// BalanceForUpdate reads the key's balance under the caller's
// transaction, locking the row. Used by the stream engine so its
// balance check and subsequent fee withdrawal are race-free.
func (s *Service) BalanceForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (int64, error) {
	l, err := s.ledger.GetForUpdate(ctx, tx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("BalanceForUpdate: %w", err)
	}
	return l.Balance, nil
}

func (s *Service) Entries(ctx context.Context, key domain.LedgerKey, limit, offset int) ([]domain.TreasuryEntry, int, error) {
	entries, total, err := s.entries.ListByKey(ctx, key, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Entries: %w", err)
	}
	return entries, total, nil
}

func (s *Service) AddMover(ctx context.Context, caller, wallet domain.Wallet) error {
	if err := s.requireTreasuryAdmin(ctx, caller); err != nil {
		return fmt.Errorf("AddMover: %w", err)
	}
	if err := s.movers.Add(ctx, wallet, caller); err != nil {
		return fmt.Errorf("AddMover: %w", err)
	}
	return nil
}

func (s *Service) RemoveMover(ctx context.Context, caller, wallet domain.Wallet) error {
	if err := s.requireTreasuryAdmin(ctx, caller); err != nil {
		return fmt.Errorf("RemoveMover: %w", err)
	}
	if err := s.movers.Remove(ctx, wallet); err != nil {
		return fmt.Errorf("RemoveMover: %w", err)
	}
	return nil
}

func (s *Service) ListMovers(ctx context.Context, caller domain.Wallet) ([]domain.Wallet, error) {
	if err := s.requireTreasuryAdmin(ctx, caller); err != nil {
		return nil, fmt.Errorf("ListMovers: %w", err)
	}
	wallets, err := s.movers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMovers: %w", err)
	}
	return wallets, nil
}

func (s *Service) requireTreasuryAdmin(ctx context.Context, caller domain.Wallet) error {
	ok, err := s.roles.HasGlobalRole(ctx, domain.RoleTreasuryAdmin, caller)
	if err != nil {
		return fmt.Errorf("requireTreasuryAdmin: %w", err)
	}
	if !ok {
		return fmt.Errorf("requireTreasuryAdmin: %w", domain.ErrUnauthorized)
	}
	return nil
}

// canWithdraw composes the withdrawal authorization: an allow-listed
// mover or a global treasury admin.
func (s *Service) canWithdraw(ctx context.Context, caller domain.Wallet) (bool, error) {
	listed, err := s.movers.Exists(ctx, caller)
	if err != nil {
		return false, fmt.Errorf("canWithdraw: %w", err)
	}
	if listed {
		return true, nil
	}
	admin, err := s.roles.HasGlobalRole(ctx, domain.RoleTreasuryAdmin, caller)
	if err != nil {
		return false, fmt.Errorf("canWithdraw: %w", err)
	}
	return admin, nil
}
