package stream

import "time"

// SetClock pins the service's notion of now for deterministic accrual
// in tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
