package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
)

// Pause blocks withdrawals from an active stream. Accrual keeps
// running mathematically while paused; only withdraw is gated.
func (s *Service) Pause(ctx context.Context, caller domain.Wallet, id int64) (*domain.Stream, error) {
	st, err := s.setPaused(ctx, caller, id, true, domain.StreamEventTypePaused)
	if err != nil {
		return nil, fmt.Errorf("Pause: %w", err)
	}
	return st, nil
}

func (s *Service) Resume(ctx context.Context, caller domain.Wallet, id int64) (*domain.Stream, error) {
	st, err := s.setPaused(ctx, caller, id, false, domain.StreamEventTypeResumed)
	if err != nil {
		return nil, fmt.Errorf("Resume: %w", err)
	}
	return st, nil
}

func (s *Service) setPaused(ctx context.Context, caller domain.Wallet, id int64, paused bool, eventType domain.StreamEventType) (*domain.Stream, error) {
	if err := s.authorizeLifecycle(ctx, caller, id); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("setPaused: begin tx: %w", err)
	}
	defer tx.Rollback()

	st, err := s.streams.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("setPaused: %w", err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("setPaused: %w", domain.ErrStreamInactive)
	}

	now := s.now().UTC()
	st.IsPaused = paused
	st.UpdatedAt = now
	if err := s.streams.Update(ctx, tx, st); err != nil {
		return nil, fmt.Errorf("setPaused: %w", err)
	}
	if err := s.writeEvent(ctx, tx, st.ID, eventType, caller, nil, now); err != nil {
		return nil, fmt.Errorf("setPaused: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("setPaused: commit: %w", err)
	}
	return st, nil
}

type UpdateRequest struct {
	TotalAmount int64
	StartTime   time.Time
	EndTime     time.Time
}

// Update overwrites the stream's amount and window. The new total may
// not fall below what was already withdrawn. Retroactively reshaping a
// partially-elapsed window is allowed and silently changes the
// recipient's accrued-but-unwithdrawn balance.
func (s *Service) Update(ctx context.Context, caller domain.Wallet, id int64, req UpdateRequest) (*domain.Stream, error) {
	log := logging.FromContext(ctx)

	if err := s.authorizeLifecycle(ctx, caller, id); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("Update: %w", domain.ErrInvalidTimeRange)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Update: begin tx: %w", err)
	}
	defer tx.Rollback()

	st, err := s.streams.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("Update: %w", domain.ErrStreamInactive)
	}
	if req.TotalAmount < st.Withdrawn {
		return nil, fmt.Errorf("Update: new total %d below withdrawn %d: %w", req.TotalAmount, st.Withdrawn, domain.ErrReduceBelowWithdrawn)
	}

	now := s.now().UTC()
	payload, _ := json.Marshal(map[string]any{
		"old_total_amount": st.TotalAmount,
		"new_total_amount": req.TotalAmount,
		"old_start_time":   st.StartTime,
		"new_start_time":   req.StartTime.UTC(),
		"old_end_time":     st.EndTime,
		"new_end_time":     req.EndTime.UTC(),
	})

	st.TotalAmount = req.TotalAmount
	st.StartTime = req.StartTime.UTC()
	st.EndTime = req.EndTime.UTC()
	st.UpdatedAt = now

	if err := s.streams.Update(ctx, tx, st); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if err := s.writeEvent(ctx, tx, st.ID, domain.StreamEventTypeUpdated, caller, payload, now); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Update: commit: %w", err)
	}

	log.Info("stream updated", "stream_id", st.ID, "total_amount", st.TotalAmount, "caller", caller)
	return st, nil
}

type CancelResult struct {
	Stream    *domain.Stream
	Indemnity int64
	// Refund is the unwithdrawn remainder left in the sub-ledger for
	// the company. It is reported, not transferred: the funds never
	// left the ledger.
	Refund int64
}

// Cancel terminates the stream. The recipient receives an indemnity
// cut of the unwithdrawn remainder; the rest stays in the sub-ledger,
// no longer constrained by the stream.
func (s *Service) Cancel(ctx context.Context, caller domain.Wallet, id int64) (*CancelResult, error) {
	log := logging.FromContext(ctx)

	if err := s.authorizeLifecycle(ctx, caller, id); err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Cancel: begin tx: %w", err)
	}
	defer tx.Rollback()

	st, err := s.streams.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("Cancel: %w", domain.ErrStreamInactive)
	}

	totalLeft := st.TotalAmount - st.Withdrawn
	indemnity := domain.ApplyRate(totalLeft, s.indemnizationRate)
	refund := totalLeft - indemnity

	now := s.now().UTC()
	st.IsActive = false
	st.IsPaused = false
	st.UpdatedAt = now
	if err := s.streams.Update(ctx, tx, st); err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"total_left": totalLeft,
		"indemnity":  indemnity,
		"refund":     refund,
	})
	if err := s.writeEvent(ctx, tx, st.ID, domain.StreamEventTypeCancelled, caller, payload, now); err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	if indemnity > 0 {
		if _, err := s.treasury.WithdrawTx(ctx, tx, st.LedgerKey(), indemnity, st.Recipient, domain.EntryReasonIndemnity, &st.ID); err != nil {
			return nil, fmt.Errorf("Cancel: indemnity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Cancel: commit: %w", err)
	}

	log.Info("stream cancelled",
		"stream_id", st.ID,
		"indemnity", indemnity,
		"refund", refund,
		"caller", caller,
	)

	return &CancelResult{Stream: st, Indemnity: indemnity, Refund: refund}, nil
}

// authorizeLifecycle gates pause, resume, update, and cancel: company
// owner, local admin, or a global stream or payment admin.
func (s *Service) authorizeLifecycle(ctx context.Context, caller domain.Wallet, id int64) error {
	st, err := s.streams.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("authorizeLifecycle: %w", err)
	}

	ok, err := s.canAdminister(ctx, st.CompanyID, caller, domain.RoleStreamAdmin, domain.RolePaymentAdmin)
	if err != nil {
		return fmt.Errorf("authorizeLifecycle: %w", err)
	}
	if !ok {
		return fmt.Errorf("authorizeLifecycle: %w", domain.ErrUnauthorized)
	}
	return nil
}
