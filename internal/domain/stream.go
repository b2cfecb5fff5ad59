package domain

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// RateScale is the denominator of the fixed-point rate model: fee and
// indemnization rates are expressed as parts per 100000.
const RateScale = 100_000

// Stream is a linear payment obligation from a project's sub-ledger to
// a recipient over [StartTime, EndTime). Once IsActive turns false it
// never turns true again; IsPaused may only be true while active.
type Stream struct {
	ID          int64
	CompanyID   uuid.UUID
	ProjectID   uuid.UUID
	Asset       Asset
	Recipient   Wallet
	TotalAmount int64
	StartTime   time.Time
	EndTime     time.Time
	Withdrawn   int64
	IsBonus     bool
	IsActive    bool
	IsPaused    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Stream) LedgerKey() LedgerKey {
	return LedgerKey{CompanyID: s.CompanyID, ProjectID: s.ProjectID, Asset: s.Asset}
}

// BalanceAt returns the accrued, not-yet-withdrawn amount at the given
// instant. Accrual is linear over the window with floor division, so a
// total not divisible by the duration leaves a few units of dust until
// the window closes. The paused flag deliberately has no effect here:
// pausing blocks withdrawal, not accrual.
func (s *Stream) BalanceAt(now time.Time) int64 {
	if !s.IsActive || now.Before(s.StartTime) {
		return 0
	}
	duration := s.EndTime.Unix() - s.StartTime.Unix()
	if duration <= 0 {
		return 0
	}
	end := now
	if end.After(s.EndTime) {
		end = s.EndTime
	}
	elapsed := end.Unix() - s.StartTime.Unix()
	earned := mulDiv(s.TotalAmount, elapsed, duration)
	if earned <= s.Withdrawn {
		return 0
	}
	return earned - s.Withdrawn
}

// ApplyRate computes floor(amount × rate / RateScale).
func ApplyRate(amount, rate int64) int64 {
	return mulDiv(amount, rate, RateScale)
}

// mulDiv computes floor(a × b / c) without overflowing the
// intermediate product. Inputs are non-negative, c > 0.
func mulDiv(a, b, c int64) int64 {
	n := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return n.Quo(n, big.NewInt(c)).Int64()
}

// AddChecked returns a+b and whether the sum fits in int64. Amounts
// that wrap would sail past any balance precondition, so callers must
// treat a false result as an impossible-to-fund request.
func AddChecked(a, b int64) (int64, bool) {
	n := new(big.Int).Add(big.NewInt(a), big.NewInt(b))
	return n.Int64(), n.IsInt64()
}

// MulChecked returns a*b and whether the product fits in int64.
func MulChecked(a, b int64) (int64, bool) {
	n := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return n.Int64(), n.IsInt64()
}

type StreamEventType string

const (
	StreamEventTypeCreated   StreamEventType = "created"
	StreamEventTypePaused    StreamEventType = "paused"
	StreamEventTypeResumed   StreamEventType = "resumed"
	StreamEventTypeUpdated   StreamEventType = "updated"
	StreamEventTypeWithdrawn StreamEventType = "withdrawn"
	StreamEventTypeCancelled StreamEventType = "cancelled"
)

type StreamEvent struct {
	ID        uuid.UUID
	StreamID  int64
	EventType StreamEventType
	Actor     Wallet
	Payload   json.RawMessage
	CreatedAt time.Time
}
