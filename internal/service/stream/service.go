// Package stream implements the lifecycle and accrual engine for
// linear payment streams. Every value movement is delegated to the
// treasury inside the engine's own transaction.
package stream

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/config"
	"github.com/mudanzasalegre/Dripio/internal/domain"
)

type streamRepo interface {
	Create(ctx context.Context, tx *sql.Tx, s *domain.Stream) error
	GetByID(ctx context.Context, id int64) (*domain.Stream, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Stream, error)
	Update(ctx context.Context, tx *sql.Tx, s *domain.Stream) error
	ListByProject(ctx context.Context, companyID, projectID uuid.UUID, limit, offset int) ([]domain.Stream, int, error)
	ListByRecipient(ctx context.Context, recipient domain.Wallet, limit, offset int) ([]domain.Stream, int, error)
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.StreamEvent) error
	ListByStream(ctx context.Context, streamID int64) ([]domain.StreamEvent, error)
}

type treasuryService interface {
	BalanceForUpdate(ctx context.Context, tx *sql.Tx, key domain.LedgerKey) (int64, error)
	WithdrawTx(ctx context.Context, tx *sql.Tx, key domain.LedgerKey, amount int64, recipient domain.Wallet, reason domain.EntryReason, streamID *int64) (*domain.TreasuryEntry, error)
}

type directoryClient interface {
	ProjectInfo(ctx context.Context, projectID uuid.UUID) (*domain.ProjectInfo, error)
	CompanyOwner(ctx context.Context, companyID uuid.UUID) (domain.Wallet, error)
	IsEmployeeActive(ctx context.Context, projectID uuid.UUID, wallet domain.Wallet) (bool, error)
	HasGlobalRole(ctx context.Context, role domain.Role, wallet domain.Wallet) (bool, error)
	IsLocalProjectAdmin(ctx context.Context, companyID uuid.UUID, wallet domain.Wallet) (bool, error)
}

type Service struct {
	streams   streamRepo
	events    eventRepo
	treasury  treasuryService
	directory directoryClient
	db        *sql.DB

	feeRate           int64
	indemnizationRate int64
	feeSink           domain.Wallet

	// now is read once per operation; swapped in tests.
	now func() time.Time
}

func NewService(
	streams streamRepo,
	events eventRepo,
	treasurySvc treasuryService,
	directorySvc directoryClient,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		streams:           streams,
		events:            events,
		treasury:          treasurySvc,
		directory:         directorySvc,
		db:                db,
		feeRate:           cfg.FeeRate,
		indemnizationRate: cfg.IndemnizationRate,
		feeSink:           domain.Wallet(cfg.FeeSinkWallet),
		now:               time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Stream, error) {
	st, err := s.streams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return st, nil
}

// BalanceOf returns the currently accrued, unwithdrawn amount. Pure
// read; pausing does not stop accrual.
func (s *Service) BalanceOf(ctx context.Context, id int64) (int64, error) {
	st, err := s.streams.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("BalanceOf: %w", err)
	}
	return st.BalanceAt(s.now().UTC()), nil
}

func (s *Service) ListByProject(ctx context.Context, companyID, projectID uuid.UUID, limit, offset int) ([]domain.Stream, int, error) {
	streams, total, err := s.streams.ListByProject(ctx, companyID, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByProject: %w", err)
	}
	return streams, total, nil
}

func (s *Service) ListByRecipient(ctx context.Context, recipient domain.Wallet, limit, offset int) ([]domain.Stream, int, error) {
	streams, total, err := s.streams.ListByRecipient(ctx, recipient, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByRecipient: %w", err)
	}
	return streams, total, nil
}

func (s *Service) Events(ctx context.Context, streamID int64) ([]domain.StreamEvent, error) {
	events, err := s.events.ListByStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	return events, nil
}

// canAdminister is the shared authorization predicate: company owner,
// company-local delegated admin, or holder of one of the given global
// roles. The three checks are independent; any one grants access.
func (s *Service) canAdminister(ctx context.Context, companyID uuid.UUID, caller domain.Wallet, roles ...domain.Role) (bool, error) {
	owner, err := s.directory.CompanyOwner(ctx, companyID)
	if err != nil {
		return false, fmt.Errorf("canAdminister: owner: %w", err)
	}
	if owner == caller {
		return true, nil
	}

	local, err := s.directory.IsLocalProjectAdmin(ctx, companyID, caller)
	if err != nil {
		return false, fmt.Errorf("canAdminister: local admin: %w", err)
	}
	if local {
		return true, nil
	}

	for _, role := range roles {
		granted, err := s.directory.HasGlobalRole(ctx, role, caller)
		if err != nil {
			return false, fmt.Errorf("canAdminister: role %s: %w", role, err)
		}
		if granted {
			return true, nil
		}
	}
	return false, nil
}

func validateWindow(start, end time.Time, total int64) error {
	if !end.After(start) {
		return fmt.Errorf("validateWindow: %w", domain.ErrInvalidTimeRange)
	}
	if total <= 0 {
		return fmt.Errorf("validateWindow: %w", domain.ErrInvalidAmount)
	}
	return nil
}
