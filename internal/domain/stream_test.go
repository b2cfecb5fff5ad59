package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func linearStream(total int64, start time.Time, durationSec int64) *Stream {
	return &Stream{
		TotalAmount: total,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(durationSec) * time.Second),
		IsActive:    true,
	}
}

func TestStreamBalanceAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stream *Stream
		at     time.Time
		want   int64
	}{
		{
			name:   "halfway through the window",
			stream: linearStream(1000, start, 1000),
			at:     start.Add(500 * time.Second),
			want:   500,
		},
		{
			name:   "before start",
			stream: linearStream(1000, start, 1000),
			at:     start.Add(-time.Second),
			want:   0,
		},
		{
			name:   "exactly at start",
			stream: linearStream(1000, start, 1000),
			at:     start,
			want:   0,
		},
		{
			name:   "after end caps at total",
			stream: linearStream(1000, start, 1000),
			at:     start.Add(5000 * time.Second),
			want:   1000,
		},
		{
			name:   "floor division leaves dust",
			stream: linearStream(1000, start, 3000),
			at:     start.Add(1000 * time.Second),
			want:   333,
		},
		{
			name: "withdrawn is subtracted",
			stream: func() *Stream {
				s := linearStream(1000, start, 1000)
				s.Withdrawn = 200
				return s
			}(),
			at:   start.Add(500 * time.Second),
			want: 300,
		},
		{
			name: "withdrawn ahead of accrual yields zero",
			stream: func() *Stream {
				s := linearStream(1000, start, 1000)
				s.Withdrawn = 700
				return s
			}(),
			at:   start.Add(500 * time.Second),
			want: 0,
		},
		{
			name: "inactive stream accrues nothing",
			stream: func() *Stream {
				s := linearStream(1000, start, 1000)
				s.IsActive = false
				return s
			}(),
			at:   start.Add(500 * time.Second),
			want: 0,
		},
		{
			// Pausing blocks withdrawal only; the mathematical accrual
			// keeps running.
			name: "paused stream keeps accruing",
			stream: func() *Stream {
				s := linearStream(1000, start, 1000)
				s.IsPaused = true
				return s
			}(),
			at:   start.Add(500 * time.Second),
			want: 500,
		},
		{
			name: "zero duration guarded",
			stream: &Stream{
				TotalAmount: 1000,
				StartTime:   start,
				EndTime:     start,
				IsActive:    true,
			},
			at:   start.Add(time.Second),
			want: 0,
		},
		{
			name:   "large amounts do not overflow",
			stream: linearStream(9_000_000_000_000_000_000, start, 3),
			at:     start.Add(2 * time.Second),
			want:   6_000_000_000_000_000_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stream.BalanceAt(tt.at))
		})
	}
}

func TestStreamBalanceAtIsIdempotent(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := linearStream(12345, start, 777)
	at := start.Add(300 * time.Second)

	first := s.BalanceAt(at)
	second := s.BalanceAt(at)
	assert.Equal(t, first, second)
}

func TestApplyRate(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   int64
		want   int64
	}{
		{"one percent", 300, 1000, 3},
		{"five percent of remainder", 800, 5000, 40},
		{"floors fractional fee", 199, 1000, 1},
		{"zero rate", 1000, 0, 0},
		{"full rate", 1000, RateScale, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyRate(tt.amount, tt.rate))
		})
	}
}

func TestAddChecked(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
		ok   bool
	}{
		{"small sum", 300, 3, 303, true},
		{"exactly max", math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"wraps past max", math.MaxInt64, 1, 0, false},
		{"both huge", math.MaxInt64 - 10, math.MaxInt64 / 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AddChecked(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMulChecked(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
		ok   bool
	}{
		{"per recipient times count", 500, 3, 1500, true},
		{"zero recipients", math.MaxInt64, 0, 0, true},
		{"wraps to small positive", math.MaxInt64 - 1_999_999_999_999_999_999, 2, 0, false},
		{"just over max", math.MaxInt64/2 + 1, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MulChecked(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
