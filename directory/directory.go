// Package directory provides read-only access to the evaluator and R&D
// staff directory. The engine consumes it for assignment guards and
// eligibility filtering; it never mutates directory data and never embeds
// sample records.
package directory

import "context"

// Availability is an evaluator's current availability status.
type Availability string

const (
	Available   Availability = "Available"
	Busy        Availability = "Busy"
	Unavailable Availability = "Unavailable"
)

// Evaluator is read-mostly reference data owned by the directory service.
type Evaluator struct {
	ID                 string       `json:"id" yaml:"id"`
	Name               string       `json:"name" yaml:"name"`
	Email              string       `json:"email,omitempty" yaml:"email,omitempty"`
	Agency             string       `json:"agency,omitempty" yaml:"agency,omitempty"`
	Department         string       `json:"department" yaml:"department"`
	Specialty          []string     `json:"specialty,omitempty" yaml:"specialty,omitempty"`
	AvailabilityStatus Availability `json:"availability_status" yaml:"availability_status"`
	CurrentWorkload    int          `json:"current_workload" yaml:"current_workload"`
	MaxWorkload        int          `json:"max_workload" yaml:"max_workload"`
	Rating             float64      `json:"rating,omitempty" yaml:"rating,omitempty"`
	CompletedReviews   int          `json:"completed_reviews,omitempty" yaml:"completed_reviews,omitempty"`
}

// Staff is a member of the R&D reviewer pool.
type Staff struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
}

// Department is an organizational unit evaluators belong to.
type Department struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Directory lists evaluators, R&D staff, and departments.
type Directory interface {
	ListEvaluators(ctx context.Context) ([]Evaluator, error)
	ListRdStaff(ctx context.Context) ([]Staff, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}
