package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/auth"
	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/service/treasury"
)

type treasuryService interface {
	Deposit(ctx context.Context, caller domain.Wallet, req treasury.DepositRequest) (*domain.TreasuryEntry, error)
	Withdraw(ctx context.Context, caller domain.Wallet, req treasury.WithdrawRequest) (*domain.TreasuryEntry, error)
	GetBalance(ctx context.Context, key domain.LedgerKey) (int64, error)
	Entries(ctx context.Context, key domain.LedgerKey, limit, offset int) ([]domain.TreasuryEntry, int, error)
	AddMover(ctx context.Context, caller, wallet domain.Wallet) error
	RemoveMover(ctx context.Context, caller, wallet domain.Wallet) error
	ListMovers(ctx context.Context, caller domain.Wallet) ([]domain.Wallet, error)
}

type TreasuryHandler struct {
	treasury treasuryService
}

func NewTreasuryHandler(treasurySvc treasuryService) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasurySvc}
}

type depositRequest struct {
	CompanyID      string `json:"company_id"`
	ProjectID      string `json:"project_id"`
	Asset          string `json:"asset"`
	Amount         int64  `json:"amount"`
	From           string `json:"from"`
	AttachedAmount int64  `json:"attached_amount"`
}

func (r depositRequest) Validate() []FieldError {
	var errs []FieldError
	errs = appendUUIDError(errs, "company_id", r.CompanyID)
	errs = appendUUIDError(errs, "project_id", r.ProjectID)
	if r.Asset == "" {
		errs = append(errs, FieldError{Field: "asset", Message: "required"})
	}
	if r.From == "" {
		errs = append(errs, FieldError{Field: "from", Message: "required"})
	}
	if r.Amount < 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must not be negative"})
	}
	if r.AttachedAmount < 0 {
		errs = append(errs, FieldError{Field: "attached_amount", Message: "must not be negative"})
	}
	return errs
}

type withdrawRequest struct {
	CompanyID string `json:"company_id"`
	ProjectID string `json:"project_id"`
	Asset     string `json:"asset"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
}

func (r withdrawRequest) Validate() []FieldError {
	var errs []FieldError
	errs = appendUUIDError(errs, "company_id", r.CompanyID)
	errs = appendUUIDError(errs, "project_id", r.ProjectID)
	if r.Asset == "" {
		errs = append(errs, FieldError{Field: "asset", Message: "required"})
	}
	if r.Recipient == "" {
		errs = append(errs, FieldError{Field: "recipient", Message: "required"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type entryDTO struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     uuid.UUID `json:"company_id"`
	ProjectID     uuid.UUID `json:"project_id"`
	Asset         string    `json:"asset"`
	EntryType     string    `json:"entry_type"`
	Reason        string    `json:"reason"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Counterparty  string    `json:"counterparty"`
	StreamID      *int64    `json:"stream_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEntryDTO(e *domain.TreasuryEntry) entryDTO {
	return entryDTO{
		ID:            e.ID,
		CompanyID:     e.CompanyID,
		ProjectID:     e.ProjectID,
		Asset:         string(e.Asset),
		EntryType:     string(e.EntryType),
		Reason:        string(e.Reason),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Counterparty:  string(e.Counterparty),
		StreamID:      e.StreamID,
		CreatedAt:     e.CreatedAt,
	}
}

func (h *TreasuryHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	entry, err := h.treasury.Deposit(r.Context(), caller, treasury.DepositRequest{
		CompanyID:      uuid.MustParse(req.CompanyID),
		ProjectID:      uuid.MustParse(req.ProjectID),
		Asset:          domain.Asset(req.Asset),
		Amount:         req.Amount,
		From:           domain.Wallet(req.From),
		AttachedAmount: req.AttachedAmount,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *TreasuryHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	entry, err := h.treasury.Withdraw(r.Context(), caller, treasury.WithdrawRequest{
		CompanyID: uuid.MustParse(req.CompanyID),
		ProjectID: uuid.MustParse(req.ProjectID),
		Asset:     domain.Asset(req.Asset),
		Amount:    req.Amount,
		Recipient: domain.Wallet(req.Recipient),
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *TreasuryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	key, appErr := ledgerKeyFromQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balance, err := h.treasury.GetBalance(r.Context(), key)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"company_id": key.CompanyID,
		"project_id": key.ProjectID,
		"asset":      string(key.Asset),
		"balance":    balance,
	})
}

func (h *TreasuryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	key, appErr := ledgerKeyFromQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	limit, offset := paginationFromQuery(r)

	entries, total, err := h.treasury.Entries(r.Context(), key, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, 0, len(entries))
	for i := range entries {
		dtos = append(dtos, toEntryDTO(&entries[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"entries": dtos,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

type addMoverRequest struct {
	Wallet string `json:"wallet"`
}

func (h *TreasuryHandler) AddMover(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req addMoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Wallet == "" {
		RespondValidationError(w, []FieldError{{Field: "wallet", Message: "required"}})
		return
	}

	if err := h.treasury.AddMover(r.Context(), caller, domain.Wallet(req.Wallet)); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, map[string]string{"wallet": req.Wallet})
}

func (h *TreasuryHandler) RemoveMover(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	wallet := r.PathValue("wallet")
	if wallet == "" {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.treasury.RemoveMover(r.Context(), caller, domain.Wallet(wallet)); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"wallet": wallet})
}

func (h *TreasuryHandler) ListMovers(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	wallets, err := h.treasury.ListMovers(r.Context(), caller)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"movers": wallets})
}

func ledgerKeyFromQuery(r *http.Request) (domain.LedgerKey, *AppError) {
	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		return domain.LedgerKey{}, ErrInvalidRequest
	}
	projectID, err := uuid.Parse(r.URL.Query().Get("project_id"))
	if err != nil {
		return domain.LedgerKey{}, ErrInvalidRequest
	}
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		return domain.LedgerKey{}, ErrInvalidRequest
	}
	return domain.LedgerKey{CompanyID: companyID, ProjectID: projectID, Asset: domain.Asset(asset)}, nil
}

func paginationFromQuery(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func appendUUIDError(errs []FieldError, field, value string) []FieldError {
	if value == "" {
		return append(errs, FieldError{Field: field, Message: "required"})
	}
	if _, err := uuid.Parse(value); err != nil {
		return append(errs, FieldError{Field: field, Message: "must be a valid UUID"})
	}
	return errs
}
