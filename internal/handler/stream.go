package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mudanzasalegre/Dripio/internal/auth"
	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/service/stream"
)

type streamService interface {
	Create(ctx context.Context, caller domain.Wallet, req stream.CreateRequest) (*domain.Stream, error)
	CreateBatch(ctx context.Context, caller domain.Wallet, req stream.CreateBatchRequest) ([]domain.Stream, error)
	Get(ctx context.Context, id int64) (*domain.Stream, error)
	BalanceOf(ctx context.Context, id int64) (int64, error)
	Pause(ctx context.Context, caller domain.Wallet, id int64) (*domain.Stream, error)
	Resume(ctx context.Context, caller domain.Wallet, id int64) (*domain.Stream, error)
	Update(ctx context.Context, caller domain.Wallet, id int64, req stream.UpdateRequest) (*domain.Stream, error)
	Withdraw(ctx context.Context, caller domain.Wallet, id int64) (*stream.WithdrawResult, error)
	Cancel(ctx context.Context, caller domain.Wallet, id int64) (*stream.CancelResult, error)
	ListByProject(ctx context.Context, companyID, projectID uuid.UUID, limit, offset int) ([]domain.Stream, int, error)
	ListByRecipient(ctx context.Context, recipient domain.Wallet, limit, offset int) ([]domain.Stream, int, error)
	Events(ctx context.Context, streamID int64) ([]domain.StreamEvent, error)
}

type StreamHandler struct {
	streams streamService
}

func NewStreamHandler(streams streamService) *StreamHandler {
	return &StreamHandler{streams: streams}
}

type createStreamRequest struct {
	CompanyID   string    `json:"company_id"`
	ProjectID   string    `json:"project_id"`
	Asset       string    `json:"asset"`
	Recipient   string    `json:"recipient"`
	TotalAmount int64     `json:"total_amount"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsBonus     bool      `json:"is_bonus"`
}

func (r createStreamRequest) Validate() []FieldError {
	var errs []FieldError
	errs = appendUUIDError(errs, "company_id", r.CompanyID)
	errs = appendUUIDError(errs, "project_id", r.ProjectID)
	if r.Asset == "" {
		errs = append(errs, FieldError{Field: "asset", Message: "required"})
	}
	if r.Recipient == "" {
		errs = append(errs, FieldError{Field: "recipient", Message: "required"})
	}
	if r.TotalAmount <= 0 {
		errs = append(errs, FieldError{Field: "total_amount", Message: "must be greater than 0"})
	}
	if r.StartTime.IsZero() {
		errs = append(errs, FieldError{Field: "start_time", Message: "required"})
	}
	if r.EndTime.IsZero() {
		errs = append(errs, FieldError{Field: "end_time", Message: "required"})
	} else if !r.EndTime.After(r.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "must be after start_time"})
	}
	return errs
}

type createStreamBatchRequest struct {
	CompanyID               string    `json:"company_id"`
	ProjectID               string    `json:"project_id"`
	Asset                   string    `json:"asset"`
	TotalAmountPerRecipient int64     `json:"total_amount_per_recipient"`
	StartTime               time.Time `json:"start_time"`
	EndTime                 time.Time `json:"end_time"`
	IsBonus                 bool      `json:"is_bonus"`
	Recipients              []string  `json:"recipients"`
}

func (r createStreamBatchRequest) Validate() []FieldError {
	var errs []FieldError
	errs = appendUUIDError(errs, "company_id", r.CompanyID)
	errs = appendUUIDError(errs, "project_id", r.ProjectID)
	if r.Asset == "" {
		errs = append(errs, FieldError{Field: "asset", Message: "required"})
	}
	if r.TotalAmountPerRecipient <= 0 {
		errs = append(errs, FieldError{Field: "total_amount_per_recipient", Message: "must be greater than 0"})
	}
	if len(r.Recipients) == 0 {
		errs = append(errs, FieldError{Field: "recipients", Message: "at least one required"})
	}
	for i, recipient := range r.Recipients {
		if recipient == "" {
			errs = append(errs, FieldError{Field: "recipients[" + strconv.Itoa(i) + "]", Message: "must not be empty"})
		}
	}
	if r.StartTime.IsZero() {
		errs = append(errs, FieldError{Field: "start_time", Message: "required"})
	}
	if r.EndTime.IsZero() {
		errs = append(errs, FieldError{Field: "end_time", Message: "required"})
	} else if !r.EndTime.After(r.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "must be after start_time"})
	}
	return errs
}

type updateStreamRequest struct {
	TotalAmount int64     `json:"total_amount"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (r updateStreamRequest) Validate() []FieldError {
	var errs []FieldError
	if r.TotalAmount <= 0 {
		errs = append(errs, FieldError{Field: "total_amount", Message: "must be greater than 0"})
	}
	if r.StartTime.IsZero() {
		errs = append(errs, FieldError{Field: "start_time", Message: "required"})
	}
	if r.EndTime.IsZero() {
		errs = append(errs, FieldError{Field: "end_time", Message: "required"})
	} else if !r.EndTime.After(r.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "must be after start_time"})
	}
	return errs
}

type streamDTO struct {
	ID            int64           `json:"id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	Asset         string          `json:"asset"`
	Recipient     string          `json:"recipient"`
	TotalAmount   int64           `json:"total_amount"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Withdrawn     int64           `json:"withdrawn"`
	IsBonus       bool            `json:"is_bonus"`
	IsActive      bool            `json:"is_active"`
	IsPaused      bool            `json:"is_paused"`
	RatePerSecond decimal.Decimal `json:"rate_per_second"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toStreamDTO(s *domain.Stream) streamDTO {
	rate := decimal.Zero
	if duration := s.EndTime.Unix() - s.StartTime.Unix(); duration > 0 {
		rate = decimal.NewFromInt(s.TotalAmount).
			DivRound(decimal.NewFromInt(duration), 6)
	}
	return streamDTO{
		ID:            s.ID,
		CompanyID:     s.CompanyID,
		ProjectID:     s.ProjectID,
		Asset:         string(s.Asset),
		Recipient:     string(s.Recipient),
		TotalAmount:   s.TotalAmount,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Withdrawn:     s.Withdrawn,
		IsBonus:       s.IsBonus,
		IsActive:      s.IsActive,
		IsPaused:      s.IsPaused,
		RatePerSecond: rate,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (h *StreamHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	st, err := h.streams.Create(r.Context(), caller, stream.CreateRequest{
		CompanyID:   uuid.MustParse(req.CompanyID),
		ProjectID:   uuid.MustParse(req.ProjectID),
		Asset:       domain.Asset(req.Asset),
		Recipient:   domain.Wallet(req.Recipient),
		TotalAmount: req.TotalAmount,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsBonus:     req.IsBonus,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toStreamDTO(st))
}

func (h *StreamHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createStreamBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	recipients := make([]domain.Wallet, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		recipients = append(recipients, domain.Wallet(recipient))
	}

	streams, err := h.streams.CreateBatch(r.Context(), caller, stream.CreateBatchRequest{
		CompanyID:               uuid.MustParse(req.CompanyID),
		ProjectID:               uuid.MustParse(req.ProjectID),
		Asset:                   domain.Asset(req.Asset),
		TotalAmountPerRecipient: req.TotalAmountPerRecipient,
		StartTime:               req.StartTime,
		EndTime:                 req.EndTime,
		IsBonus:                 req.IsBonus,
		Recipients:              recipients,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]streamDTO, 0, len(streams))
	for i := range streams {
		dtos = append(dtos, toStreamDTO(&streams[i]))
	}
	RespondSuccess(w, http.StatusCreated, map[string]any{"streams": dtos})
}

func (h *StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	st, err := h.streams.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toStreamDTO(st))
}

func (h *StreamHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balance, err := h.streams.BalanceOf(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"stream_id": id,
		"balance":   balance,
	})
}

func (h *StreamHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.streams.Pause)
}

func (h *StreamHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.streams.Resume)
}

func (h *StreamHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.Wallet, int64) (*domain.Stream, error)) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	st, err := op(r.Context(), caller, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toStreamDTO(st))
}

func (h *StreamHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	st, err := h.streams.Update(r.Context(), caller, id, stream.UpdateRequest{
		TotalAmount: req.TotalAmount,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toStreamDTO(st))
}

func (h *StreamHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.streams.Withdraw(r.Context(), caller, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"stream": toStreamDTO(res.Stream),
		"amount": res.Amount,
	})
}

func (h *StreamHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.WalletFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.streams.Cancel(r.Context(), caller, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"stream":    toStreamDTO(res.Stream),
		"indemnity": res.Indemnity,
		"refund":    res.Refund,
	})
}

func (h *StreamHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationFromQuery(r)
	query := r.URL.Query()

	var (
		streams []domain.Stream
		total   int
		err     error
	)

	switch {
	case query.Get("recipient") != "":
		streams, total, err = h.streams.ListByRecipient(r.Context(), domain.Wallet(query.Get("recipient")), limit, offset)
	case query.Get("project_id") != "":
		companyID, perr := uuid.Parse(query.Get("company_id"))
		if perr != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
		projectID, perr := uuid.Parse(query.Get("project_id"))
		if perr != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
		streams, total, err = h.streams.ListByProject(r.Context(), companyID, projectID, limit, offset)
	default:
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]streamDTO, 0, len(streams))
	for i := range streams {
		dtos = append(dtos, toStreamDTO(&streams[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"streams": dtos,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

type streamEventDTO struct {
	ID        uuid.UUID       `json:"id"`
	StreamID  int64           `json:"stream_id"`
	EventType string          `json:"event_type"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, appErr := streamIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	events, err := h.streams.Events(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]streamEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, streamEventDTO{
			ID:        e.ID,
			StreamID:  e.StreamID,
			EventType: string(e.EventType),
			Actor:     string(e.Actor),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"events": dtos})
}

func streamIDFromPath(r *http.Request) (int64, *AppError) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrResourceNotFound
	}
	return id, nil
}
