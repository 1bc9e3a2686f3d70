package memory

import "time"

// SetNow overrides the time source used for UpdatedAt.
func (s *Slide) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
