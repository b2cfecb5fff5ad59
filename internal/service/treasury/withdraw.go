package treasury

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
)

type WithdrawRequest struct {
	CompanyID uuid.UUID
	ProjectID uuid.UUID
	Asset     domain.Asset
	Amount    int64
	Recipient domain.Wallet
}

// Withdraw debits the sub-ledger and pushes the value to the
// recipient. The caller must be an allow-listed mover or a global
// treasury admin. Debit and outbound transfer are one unit: a failed
// push rolls the debit back, and funds never leave without a debit.
func (s *Service) Withdraw(ctx context.Context, caller domain.Wallet, req WithdrawRequest) (*domain.TreasuryEntry, error) {
	log := logging.FromContext(ctx)

	ok, err := s.canWithdraw(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrUnauthorized)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	key := domain.LedgerKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, Asset: req.Asset}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.WithdrawTx(ctx, tx, key, req.Amount, req.Recipient, domain.EntryReasonWithdrawal, nil)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Withdraw: commit: %w", err)
	}

	log.Info("withdrawal completed",
		"company_id", key.CompanyID,
		"project_id", key.ProjectID,
		"asset", key.Asset,
		"amount", req.Amount,
		"recipient", req.Recipient,
		"caller", caller,
	)

	return entry, nil
}

// WithdrawTx performs the debit-then-transfer pair inside the caller's
// transaction. The stream engine uses it so fees, payouts, and
// indemnities share the atomic unit of the stream mutation. The caller
// owns the commit; any error here must abort the whole transaction.
func (s *Service) WithdrawTx(ctx context.Context, tx *sql.Tx, key domain.LedgerKey, amount int64, recipient domain.Wallet, reason domain.EntryReason, streamID *int64) (*domain.TreasuryEntry, error) {
	l, err := s.ledger.GetForUpdate(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("WithdrawTx: %w", err)
	}

	if amount > l.Balance {
		return nil, fmt.Errorf("WithdrawTx: need %d, have %d: %w", amount, l.Balance, domain.ErrInsufficientFunds)
	}

	now := s.now().UTC()
	entry := &domain.TreasuryEntry{
		ID:            uuid.New(),
		CompanyID:     key.CompanyID,
		ProjectID:     key.ProjectID,
		Asset:         key.Asset,
		EntryType:     domain.EntryTypeDebit,
		Reason:        reason,
		Amount:        amount,
		BalanceBefore: l.Balance,
		BalanceAfter:  l.Balance - amount,
		Counterparty:  recipient,
		StreamID:      streamID,
		CreatedAt:     now,
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("WithdrawTx: entry: %w", err)
	}

	// Debit before the outbound transfer so the transfer can never
	// observe, or race with, an undebited balance.
	if err := s.ledger.UpdateBalance(ctx, tx, key, l.Balance-amount, l.Version+1); err != nil {
		return nil, fmt.Errorf("WithdrawTx: debit: %w", err)
	}

	if err := s.custodian.Push(ctx, key.Asset, recipient, amount); err != nil {
		return nil, fmt.Errorf("WithdrawTx: %w", err)
	}

	return entry, nil
}
