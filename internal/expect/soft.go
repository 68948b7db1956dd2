package expect

import "sync"

// Soft collects failures that should not stop a test. It is safe for
// concurrent use.
type Soft struct {
	mu       sync.Mutex
	failures []error
}

// Check records err if non-nil and reports whether err was nil.
func (s *Soft) Check(err error) bool {
	if err == nil {
		return true
	}
	s.mu.Lock()
	s.failures = append(s.failures, err)
	s.mu.Unlock()
	return false
}

// Failures returns the recorded failures in order.
func (s *Soft) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.failures...)
}

// Err returns a *SoftError with every failure, or nil if there were none.
func (s *Soft) Err() error {
	failures := s.Failures()
	if len(failures) == 0 {
		return nil
	}
	return &SoftError{Failures: failures}
}
