package workflow

import "time"

// Recommendation is an individual evaluator's verdict on a proposal.
type Recommendation string

const (
	RecommendApprove Recommendation = "Approve"
	RecommendRevise  Recommendation = "Revise"
	RecommendReject  Recommendation = "Reject"
)

// IsValid returns true if the recommendation is a known value.
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendApprove, RecommendRevise, RecommendReject:
		return true
	default:
		return false
	}
}

// EvaluatorDecision is a single evaluator's assessment of a proposal under
// evaluation. A proposal accumulates at most one per assigned evaluator.
type EvaluatorDecision struct {
	ProposalID    string         `json:"proposal_id"`
	EvaluatorID   string         `json:"evaluator_id"`
	EvaluatorName string         `json:"evaluator_name,omitempty"`
	Decision      Recommendation `json:"decision"`
	Comments      string         `json:"comments"`

	// Ratings holds optional per-criterion scores, each within the
	// configured bounds (1-5 by default).
	Ratings map[string]int `json:"ratings,omitempty"`

	SubmittedDate time.Time `json:"submitted_date"`
}
