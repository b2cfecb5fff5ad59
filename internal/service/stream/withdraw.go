package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
)

type WithdrawResult struct {
	Stream *domain.Stream
	Amount int64
}

// Withdraw pays the caller everything accrued so far. Only the
// stream's recipient may call it, only while the stream is active and
// not paused. The withdrawn increment, the ledger debit, and the
// outbound push commit or roll back together.
func (s *Service) Withdraw(ctx context.Context, caller domain.Wallet, id int64) (*WithdrawResult, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	st, err := s.streams.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if st.Recipient != caller {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrNotRecipient)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrStreamInactive)
	}
	if st.IsPaused {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrStreamPaused)
	}

	now := s.now().UTC()
	amount := st.BalanceAt(now)
	if amount == 0 {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrNothingToWithdraw)
	}

	st.Withdrawn += amount
	st.UpdatedAt = now
	if err := s.streams.Update(ctx, tx, st); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"amount":    amount,
		"withdrawn": st.Withdrawn,
	})
	if err := s.writeEvent(ctx, tx, st.ID, domain.StreamEventTypeWithdrawn, caller, payload, now); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if _, err := s.treasury.WithdrawTx(ctx, tx, st.LedgerKey(), amount, st.Recipient, domain.EntryReasonPayout, &st.ID); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Withdraw: commit: %w", err)
	}

	log.Info("stream withdrawal",
		"stream_id", st.ID,
		"amount", amount,
		"withdrawn", st.Withdrawn,
		"recipient", st.Recipient,
	)

	return &WithdrawResult{Stream: st, Amount: amount}, nil
}
