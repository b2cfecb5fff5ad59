package treasury

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
)

type DepositRequest struct {
	CompanyID uuid.UUID
	ProjectID uuid.UUID
	Asset     domain.Asset
	// Amount is the amount to pull from the funder's wallet. Ignored
	// for the native asset.
	Amount int64
	From   domain.Wallet
	// AttachedAmount is the value attached to the call itself; it is
	// the credited amount for the native asset and ignored otherwise.
	AttachedAmount int64
}

// Deposit credits the sub-ledger for the request's key. For the native
// asset the credited amount is the attached value; for every other
// asset the amount is pulled from the funder through the custodian,
// and a failed pull leaves the ledger untouched.
func (s *Service) Deposit(ctx context.Context, caller domain.Wallet, req DepositRequest) (*domain.TreasuryEntry, error) {
	log := logging.FromContext(ctx)

	credited := req.Amount
	if req.Asset == s.nativeAsset {
		credited = req.AttachedAmount
	}
	if credited <= 0 {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	key := domain.LedgerKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, Asset: req.Asset}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Deposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	l, err := s.ledger.EnsureForUpdate(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	now := s.now().UTC()
	entry := &domain.TreasuryEntry{
		ID:            uuid.New(),
		CompanyID:     key.CompanyID,
		ProjectID:     key.ProjectID,
		Asset:         key.Asset,
		EntryType:     domain.EntryTypeCredit,
		Reason:        domain.EntryReasonDeposit,
		Amount:        credited,
		BalanceBefore: l.Balance,
		BalanceAfter:  l.Balance + credited,
		Counterparty:  req.From,
		CreatedAt:     now,
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("Deposit: entry: %w", err)
	}

	if err := s.ledger.UpdateBalance(ctx, tx, key, l.Balance+credited, l.Version+1); err != nil {
		return nil, fmt.Errorf("Deposit: credit: %w", err)
	}

	// The pull and the credit commit or fail together. The native
	// asset carries its value with the call, so there is nothing to
	// pull.
	if req.Asset != s.nativeAsset {
		if err := s.custodian.Pull(ctx, req.Asset, req.From, credited); err != nil {
			return nil, fmt.Errorf("Deposit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Deposit: commit: %w", err)
	}

	log.Info("deposit credited",
		"company_id", key.CompanyID,
		"project_id", key.ProjectID,
		"asset", key.Asset,
		"amount", credited,
		"from", req.From,
		"caller", caller,
	)

	return entry, nil
}
