package stream

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
)

type CreateRequest struct {
	CompanyID   uuid.UUID
	ProjectID   uuid.UUID
	Asset       domain.Asset
	Recipient   domain.Wallet
	TotalAmount int64
	StartTime   time.Time
	EndTime     time.Time
	IsBonus     bool
}

type CreateBatchRequest struct {
	CompanyID               uuid.UUID
	ProjectID               uuid.UUID
	Asset                   domain.Asset
	TotalAmountPerRecipient int64
	StartTime               time.Time
	EndTime                 time.Time
	IsBonus                 bool
	Recipients              []domain.Wallet
}

// Create opens one stream. Preconditions are checked in order, each a
// distinct failure: project active, caller authorized, recipient an
// active employee, window and amount valid, and the sub-ledger holding
// at least total+fee. The fee is pulled to the fee sink inside the
// same transaction that persists the stream.
func (s *Service) Create(ctx context.Context, caller domain.Wallet, req CreateRequest) (*domain.Stream, error) {
	log := logging.FromContext(ctx)

	if err := s.checkProjectAndAuth(ctx, caller, req.CompanyID, req.ProjectID, domain.RoleStreamAdmin); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	employed, err := s.directory.IsEmployeeActive(ctx, req.ProjectID, req.Recipient)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if !employed {
		return nil, fmt.Errorf("Create: %s: %w", req.Recipient, domain.ErrEmployeeInactive)
	}

	if err := validateWindow(req.StartTime, req.EndTime, req.TotalAmount); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	key := domain.LedgerKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, Asset: req.Asset}
	fee := domain.ApplyRate(req.TotalAmount, s.feeRate)

	// total+fee near MaxInt64 would wrap and slip past the balance
	// check; no ledger can hold such a sum anyway.
	required, ok := domain.AddChecked(req.TotalAmount, fee)
	if !ok {
		return nil, fmt.Errorf("Create: total %d plus fee %d overflows: %w", req.TotalAmount, fee, domain.ErrInsufficientFunds)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Create: begin tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.treasury.BalanceForUpdate(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if balance < required {
		return nil, fmt.Errorf("Create: need %d, have %d: %w", required, balance, domain.ErrInsufficientFunds)
	}

	st, err := s.persistStream(ctx, tx, caller, req)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if fee > 0 {
		if _, err := s.treasury.WithdrawTx(ctx, tx, key, fee, s.feeSink, domain.EntryReasonStreamFee, &st.ID); err != nil {
			return nil, fmt.Errorf("Create: fee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Create: commit: %w", err)
	}

	log.Info("stream created",
		"stream_id", st.ID,
		"project_id", req.ProjectID,
		"recipient", req.Recipient,
		"total_amount", req.TotalAmount,
		"fee", fee,
		"caller", caller,
	)

	return st, nil
}

// CreateBatch opens one stream per recipient with identical terms. The
// fee and balance check run once against the combined total and the
// fee is withdrawn once. All-or-nothing: one recipient failing
// validation aborts the whole batch.
func (s *Service) CreateBatch(ctx context.Context, caller domain.Wallet, req CreateBatchRequest) ([]domain.Stream, error) {
	log := logging.FromContext(ctx)

	if err := s.checkProjectAndAuth(ctx, caller, req.CompanyID, req.ProjectID, domain.RoleStreamAdmin); err != nil {
		return nil, fmt.Errorf("CreateBatch: %w", err)
	}

	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("CreateBatch: %w", domain.ErrNoRecipients)
	}
	if err := validateWindow(req.StartTime, req.EndTime, req.TotalAmountPerRecipient); err != nil {
		return nil, fmt.Errorf("CreateBatch: %w", err)
	}

	combined, ok := domain.MulChecked(req.TotalAmountPerRecipient, int64(len(req.Recipients)))
	if !ok {
		return nil, fmt.Errorf("CreateBatch: %d per recipient times %d overflows: %w",
			req.TotalAmountPerRecipient, len(req.Recipients), domain.ErrInsufficientFunds)
	}
	key := domain.LedgerKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, Asset: req.Asset}
	fee := domain.ApplyRate(combined, s.feeRate)
	required, ok := domain.AddChecked(combined, fee)
	if !ok {
		return nil, fmt.Errorf("CreateBatch: combined %d plus fee %d overflows: %w", combined, fee, domain.ErrInsufficientFunds)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.treasury.BalanceForUpdate(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("CreateBatch: %w", err)
	}
	if balance < required {
		return nil, fmt.Errorf("CreateBatch: need %d, have %d: %w", required, balance, domain.ErrInsufficientFunds)
	}

	streams := make([]domain.Stream, 0, len(req.Recipients))
	var firstID int64
	for _, recipient := range req.Recipients {
		employed, err := s.directory.IsEmployeeActive(ctx, req.ProjectID, recipient)
		if err != nil {
			return nil, fmt.Errorf("CreateBatch: %w", err)
		}
		if !employed {
			return nil, fmt.Errorf("CreateBatch: %s: %w", recipient, domain.ErrEmployeeInactive)
		}

		st, err := s.persistStream(ctx, tx, caller, CreateRequest{
			CompanyID:   req.CompanyID,
			ProjectID:   req.ProjectID,
			Asset:       req.Asset,
			Recipient:   recipient,
			TotalAmount: req.TotalAmountPerRecipient,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			IsBonus:     req.IsBonus,
		})
		if err != nil {
			return nil, fmt.Errorf("CreateBatch: %w", err)
		}
		if firstID == 0 {
			firstID = st.ID
		}
		streams = append(streams, *st)
	}

	if fee > 0 {
		if _, err := s.treasury.WithdrawTx(ctx, tx, key, fee, s.feeSink, domain.EntryReasonStreamFee, &firstID); err != nil {
			return nil, fmt.Errorf("CreateBatch: fee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateBatch: commit: %w", err)
	}

	log.Info("stream batch created",
		"project_id", req.ProjectID,
		"count", len(streams),
		"amount_per_recipient", req.TotalAmountPerRecipient,
		"fee", fee,
		"caller", caller,
	)

	return streams, nil
}

// checkProjectAndAuth runs the two leading preconditions shared by the
// create paths: the project exists, is active, and belongs to the
// given company; and the caller may administer that company.
func (s *Service) checkProjectAndAuth(ctx context.Context, caller domain.Wallet, companyID, projectID uuid.UUID, roles ...domain.Role) error {
	info, err := s.directory.ProjectInfo(ctx, projectID)
	if err != nil {
		return fmt.Errorf("checkProjectAndAuth: %w", err)
	}
	if !info.IsActive {
		return fmt.Errorf("checkProjectAndAuth: %w", domain.ErrProjectInactive)
	}
	if info.CompanyID != companyID {
		return fmt.Errorf("checkProjectAndAuth: %w", domain.ErrProjectMismatch)
	}

	ok, err := s.canAdminister(ctx, companyID, caller, roles...)
	if err != nil {
		return fmt.Errorf("checkProjectAndAuth: %w", err)
	}
	if !ok {
		return fmt.Errorf("checkProjectAndAuth: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (s *Service) persistStream(ctx context.Context, tx *sql.Tx, caller domain.Wallet, req CreateRequest) (*domain.Stream, error) {
	now := s.now().UTC()
	st := &domain.Stream{
		CompanyID:   req.CompanyID,
		ProjectID:   req.ProjectID,
		Asset:       req.Asset,
		Recipient:   req.Recipient,
		TotalAmount: req.TotalAmount,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Withdrawn:   0,
		IsBonus:     req.IsBonus,
		IsActive:    true,
		IsPaused:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.streams.Create(ctx, tx, st); err != nil {
		return nil, fmt.Errorf("persistStream: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"total_amount": st.TotalAmount,
		"start_time":   st.StartTime,
		"end_time":     st.EndTime,
		"is_bonus":     st.IsBonus,
	})
	if err := s.writeEvent(ctx, tx, st.ID, domain.StreamEventTypeCreated, caller, payload, now); err != nil {
		return nil, fmt.Errorf("persistStream: %w", err)
	}
	return st, nil
}

func (s *Service) writeEvent(ctx context.Context, tx *sql.Tx, streamID int64, eventType domain.StreamEventType, actor domain.Wallet, payload json.RawMessage, now time.Time) error {
	event := &domain.StreamEvent{
		ID:        uuid.New(),
		StreamID:  streamID,
		EventType: eventType,
		Actor:     actor,
		Payload:   payload,
		CreatedAt: now,
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("writeEvent: %w", err)
	}
	return nil
}
