package treasury

import "time"

// SetClock pins the service's audit timestamps for deterministic
// assertions in tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
