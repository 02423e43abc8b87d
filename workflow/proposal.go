package workflow

import (
	"time"
)

// Visibility controls how much proponent identity is disclosed to the
// evaluators of a forwarding batch. It is recorded once per batch and
// applies uniformly to every evaluator in it.
type Visibility string

const (
	// VisibilityName discloses the proponent's name only.
	VisibilityName Visibility = "name"
	// VisibilityAgency discloses the proponent's agency only.
	VisibilityAgency Visibility = "agency"
	// VisibilityBoth discloses name and agency.
	VisibilityBoth Visibility = "both"
)

// IsValid returns true if the visibility is a known value.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityName, VisibilityAgency, VisibilityBoth:
		return true
	default:
		return false
	}
}

// Proposal represents a submitted research proposal tracked through review.
// Identity fields are immutable once created; everything else is mutated
// exclusively through accepted decisions.
type Proposal struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SubmittedBy   string    `json:"submitted_by"`
	SubmittedDate time.Time `json:"submitted_date"`

	// Proponent identity, read by callers applying the visibility policy.
	// The engine never mutates these.
	Proponent  string `json:"proponent,omitempty"`
	Agency     string `json:"agency,omitempty"`
	Department string `json:"department,omitempty"`

	Status       Status    `json:"status"`
	LastModified time.Time `json:"last_modified"`

	AssignedRdStaffID    string     `json:"assigned_rd_staff_id,omitempty"`
	AssignedEvaluatorIDs []string   `json:"assigned_evaluator_ids,omitempty"`
	EvaluatorInstruction string     `json:"evaluator_instruction,omitempty"`
	EvaluationDeadline   *time.Time `json:"evaluation_deadline,omitempty"`

	ProponentInfoVisibility  Visibility `json:"proponent_info_visibility,omitempty"`
	EndorsementJustification string     `json:"endorsement_justification,omitempty"`
}

// Clone returns a deep copy of the proposal. The engine mutates a clone and
// persists it only after every guard passes, so a failed decision leaves the
// stored proposal untouched.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	if p.AssignedEvaluatorIDs != nil {
		cp.AssignedEvaluatorIDs = append([]string(nil), p.AssignedEvaluatorIDs...)
	}
	if p.EvaluationDeadline != nil {
		d := *p.EvaluationDeadline
		cp.EvaluationDeadline = &d
	}
	return &cp
}

// IsAssigned returns true if the evaluator id is in the assignment set.
func (p *Proposal) IsAssigned(evaluatorID string) bool {
	for _, id := range p.AssignedEvaluatorIDs {
		if id == evaluatorID {
			return true
		}
	}
	return false
}
