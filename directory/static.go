package directory

import (
	"context"
	"sync"
)

// Static is an in-memory directory. It serves tests and embedded callers
// that load directory data themselves; the engine receives it through the
// Directory interface like any other provider.
type Static struct {
	mu          sync.RWMutex
	evaluators  []Evaluator
	staff       []Staff
	departments []Department
}

// NewStatic creates a static directory with the given records.
func NewStatic(evaluators []Evaluator, staff []Staff, departments []Department) *Static {
	return &Static{
		evaluators:  evaluators,
		staff:       staff,
		departments: departments,
	}
}

// ListEvaluators returns the evaluator records.
func (s *Static) ListEvaluators(_ context.Context) ([]Evaluator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Evaluator(nil), s.evaluators...), nil
}

// ListRdStaff returns the R&D staff pool.
func (s *Static) ListRdStaff(_ context.Context) ([]Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Staff(nil), s.staff...), nil
}

// ListDepartments returns the department records.
func (s *Static) ListDepartments(_ context.Context) ([]Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Department(nil), s.departments...), nil
}

// Replace swaps the directory contents atomically.
func (s *Static) Replace(evaluators []Evaluator, staff []Staff, departments []Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluators = evaluators
	s.staff = staff
	s.departments = departments
}
