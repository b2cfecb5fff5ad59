package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mudanzasalegre/Dripio/internal/auth"
	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/service/stream"
)

type mockStreamService struct {
	stream    *domain.Stream
	streams   []domain.Stream
	balance   int64
	events    []domain.StreamEvent
	withdraw  *stream.WithdrawResult
	cancel    *stream.CancelResult
	err       error
	lastID    int64
	lastCall  string
	lastReq   stream.CreateRequest
	lastBatch stream.CreateBatchRequest
}

func (m *mockStreamService) Create(_ context.Context, _ domain.Wallet, req stream.CreateRequest) (*domain.Stream, error) {
	m.lastCall, m.lastReq = "Create", req
	return m.stream, m.err
}

func (m *mockStreamService) CreateBatch(_ context.Context, _ domain.Wallet, req stream.CreateBatchRequest) ([]domain.Stream, error) {
	m.lastCall, m.lastBatch = "CreateBatch", req
	return m.streams, m.err
}

func (m *mockStreamService) Get(_ context.Context, id int64) (*domain.Stream, error) {
	m.lastCall, m.lastID = "Get", id
	return m.stream, m.err
}

func (m *mockStreamService) BalanceOf(_ context.Context, id int64) (int64, error) {
	m.lastCall, m.lastID = "BalanceOf", id
	return m.balance, m.err
}

func (m *mockStreamService) Pause(_ context.Context, _ domain.Wallet, id int64) (*domain.Stream, error) {
	m.lastCall, m.lastID = "Pause", id
	return m.stream, m.err
}

func (m *mockStreamService) Resume(_ context.Context, _ domain.Wallet, id int64) (*domain.Stream, error) {
	m.lastCall, m.lastID = "Resume", id
	return m.stream, m.err
}

func (m *mockStreamService) Update(_ context.Context, _ domain.Wallet, id int64, _ stream.UpdateRequest) (*domain.Stream, error) {
	m.lastCall, m.lastID = "Update", id
	return m.stream, m.err
}

func (m *mockStreamService) Withdraw(_ context.Context, _ domain.Wallet, id int64) (*stream.WithdrawResult, error) {
	m.lastCall, m.lastID = "Withdraw", id
	return m.withdraw, m.err
}

func (m *mockStreamService) Cancel(_ context.Context, _ domain.Wallet, id int64) (*stream.CancelResult, error) {
	m.lastCall, m.lastID = "Cancel", id
	return m.cancel, m.err
}

func (m *mockStreamService) ListByProject(_ context.Context, _, _ uuid.UUID, _, _ int) ([]domain.Stream, int, error) {
	m.lastCall = "ListByProject"
	return m.streams, len(m.streams), m.err
}

func (m *mockStreamService) ListByRecipient(_ context.Context, _ domain.Wallet, _, _ int) ([]domain.Stream, int, error) {
	m.lastCall = "ListByRecipient"
	return m.streams, len(m.streams), m.err
}

func (m *mockStreamService) Events(_ context.Context, id int64) ([]domain.StreamEvent, error) {
	m.lastCall, m.lastID = "Events", id
	return m.events, m.err
}

func sampleStream() *domain.Stream {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Stream{
		ID:          7,
		CompanyID:   uuid.New(),
		ProjectID:   uuid.New(),
		Asset:       "usdc",
		Recipient:   "wallet-employee",
		TotalAmount: 1000,
		StartTime:   start,
		EndTime:     start.Add(1000 * time.Second),
		IsActive:    true,
	}
}

func validCreateBody(s *domain.Stream) string {
	body, _ := json.Marshal(map[string]any{
		"company_id":   s.CompanyID,
		"project_id":   s.ProjectID,
		"asset":        "usdc",
		"recipient":    "wallet-employee",
		"total_amount": 1000,
		"start_time":   s.StartTime,
		"end_time":     s.EndTime,
	})
	return string(body)
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.ContextWithWallet(req.Context(), "wallet-owner"))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestStreamCreate(t *testing.T) {
	st := sampleStream()

	tests := []struct {
		name       string
		body       string
		authed     bool
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       validCreateBody(st),
			authed:     true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing token",
			body:       validCreateBody(st),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "malformed body",
			body:       "{not json",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "validation failure",
			body:       `{"company_id":"not-a-uuid","total_amount":-5}`,
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "insufficient funds",
			body:       validCreateBody(st),
			authed:     true,
			svcErr:     fmt.Errorf("Create: %w", domain.ErrInsufficientFunds),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:       "unauthorized caller",
			body:       validCreateBody(st),
			authed:     true,
			svcErr:     fmt.Errorf("Create: %w", domain.ErrUnauthorized),
			wantStatus: http.StatusForbidden,
			wantCode:   "NOT_AUTHORIZED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockStreamService{stream: st, err: tc.svcErr}
			h := NewStreamHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/streams", strings.NewReader(tc.body))
			if tc.authed {
				req = req.WithContext(auth.ContextWithWallet(req.Context(), "wallet-owner"))
			}
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				assert.False(t, resp.Success)
			} else {
				assert.True(t, resp.Success)
				assert.Equal(t, "Create", svc.lastCall)
				assert.Equal(t, int64(1000), svc.lastReq.TotalAmount)
			}
		})
	}
}

func TestStreamCreate_RatePerSecondInResponse(t *testing.T) {
	st := sampleStream()
	svc := &mockStreamService{stream: st}
	h := NewStreamHandler(svc)

	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/streams", validCreateBody(st)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data streamDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	// 1000 over 1000 seconds.
	assert.Equal(t, "1", resp.Data.RatePerSecond.String())
}

func TestStreamWithdraw(t *testing.T) {
	st := sampleStream()
	st.Withdrawn = 500
	svc := &mockStreamService{withdraw: &stream.WithdrawResult{Stream: st, Amount: 500}}
	h := NewStreamHandler(svc)

	req := authedRequest(http.MethodPost, "/api/v1/streams/7/withdraw", "")
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.lastID)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestStreamWithdraw_PausedStream(t *testing.T) {
	svc := &mockStreamService{err: fmt.Errorf("Withdraw: %w", domain.ErrStreamPaused)}
	h := NewStreamHandler(svc)

	req := authedRequest(http.MethodPost, "/api/v1/streams/7/withdraw", "")
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STREAM_PAUSED", resp.Error.Code)
}

func TestStreamCancel(t *testing.T) {
	st := sampleStream()
	st.IsActive = false
	svc := &mockStreamService{cancel: &stream.CancelResult{Stream: st, Indemnity: 40, Refund: 760}}
	h := NewStreamHandler(svc)

	req := authedRequest(http.MethodDelete, "/api/v1/streams/7", "")
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(40), data["indemnity"])
	assert.Equal(t, float64(760), data["refund"])
}

func TestStreamEvents(t *testing.T) {
	svc := &mockStreamService{events: []domain.StreamEvent{
		{ID: uuid.New(), StreamID: 7, EventType: domain.StreamEventTypeCreated, Actor: "wallet-owner"},
		{ID: uuid.New(), StreamID: 7, EventType: domain.StreamEventTypePaused, Actor: "wallet-owner"},
	}}
	h := NewStreamHandler(svc)

	req := authedRequest(http.MethodGet, "/api/v1/streams/7/events", "")
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.lastID)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["events"], 2)
}

func TestStreamGet_BadID(t *testing.T) {
	h := NewStreamHandler(&mockStreamService{})

	for _, raw := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/streams/"+raw, nil)
		req.SetPathValue("id", raw)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "id %q", raw)
	}
}

func TestStreamList_RequiresFilter(t *testing.T) {
	svc := &mockStreamService{}
	h := NewStreamHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams?recipient=wallet-employee", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ListByRecipient", svc.lastCall)

	rec = httptest.NewRecorder()
	target := "/api/v1/streams?company_id=" + uuid.NewString() + "&project_id=" + uuid.NewString()
	h.List(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ListByProject", svc.lastCall)
}
