package directory

import "strings"

// AllDepartments disables department filtering in FilterOptions.
const AllDepartments = "All"

// FilterOptions selects eligible evaluators for an assignment batch.
type FilterOptions struct {
	// Department keeps only evaluators of this department; "All" or empty
	// keeps every department.
	Department string
	// SearchText keeps only evaluators whose name or agency contains the
	// text, case-insensitive.
	SearchText string
	// ExcludeIDs drops evaluators already assigned to the proposal.
	ExcludeIDs []string
}

// Filter returns the evaluators eligible for assignment, applying rules in
// order: exclusion, availability, department, search. Pure and
// order-preserving: the result keeps the input order and the input slice is
// never modified.
func Filter(evaluators []Evaluator, opts FilterOptions) []Evaluator {
	excluded := make(map[string]bool, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = true
	}
	search := strings.ToLower(strings.TrimSpace(opts.SearchText))

	result := make([]Evaluator, 0, len(evaluators))
	for _, e := range evaluators {
		if excluded[e.ID] {
			continue
		}
		if e.AvailabilityStatus != Available {
			continue
		}
		if opts.Department != "" && opts.Department != AllDepartments && e.Department != opts.Department {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.Agency), search) {
			continue
		}
		result = append(result, e)
	}
	return result
}
