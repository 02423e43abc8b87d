// Package validation enforces the per-decision-type payload rules before a
// decision reaches the state machine. Validation is pure: it either returns
// the structured field errors or nothing, and never touches proposal state.
package validation

import (
	"fmt"
	"strings"

	"github.com/c360studio/reviewflow/workflow"
)

// Rules holds the configurable validation bounds.
type Rules struct {
	// DeadlineDays is the accepted set of deadline offsets. An empty set
	// accepts any positive value.
	DeadlineDays []int
	// RatingMin and RatingMax bound per-criterion evaluator ratings.
	RatingMin int
	RatingMax int
}

// DefaultRules returns the rules matching the review form defaults.
func DefaultRules() Rules {
	return Rules{
		DeadlineDays: []int{7, 14, 21, 30, 45, 60},
		RatingMin:    1,
		RatingMax:    5,
	}
}

// Validator validates decision payloads and evaluator submissions.
type Validator struct {
	rules Rules
}

// New creates a validator with the given rules.
func New(rules Rules) *Validator {
	if rules.RatingMin == 0 && rules.RatingMax == 0 {
		rules.RatingMin = 1
		rules.RatingMax = 5
	}
	return &Validator{rules: rules}
}

// Decision validates a decision payload. It returns nil when the payload is
// acceptable, or workflow.ValidationErrors enumerating every failed field.
func (v *Validator) Decision(p workflow.Payload) error {
	var errs workflow.ValidationErrors

	switch payload := workflow.NormalizePayload(p).(type) {
	case workflow.AssignToRnD:
		if strings.TrimSpace(payload.StaffID) == "" {
			errs = append(errs, fieldError("staff_id", "an R&D staff reviewer must be selected"))
		}

	case workflow.SendToEvaluators:
		if len(payload.EvaluatorIDs) == 0 {
			errs = append(errs, fieldError("evaluator_ids", "at least one evaluator is required"))
		}
		errs = append(errs, v.checkDeadline(payload.DeadlineDays)...)
		if !payload.Visibility.IsValid() {
			errs = append(errs, fieldError("visibility",
				fmt.Sprintf("must be one of %q, %q, or %q",
					workflow.VisibilityName, workflow.VisibilityAgency, workflow.VisibilityBoth)))
		}

	case workflow.RequireRevision:
		if payload.Comments.Empty() {
			errs = append(errs, fieldError("comments", "at least one comment section must be filled in"))
		}
		errs = append(errs, v.checkDeadline(payload.DeadlineDays)...)

	case workflow.RejectProposal:
		if strings.TrimSpace(payload.Explanation) == "" {
			errs = append(errs, fieldError("explanation", "a rejection explanation is required"))
		}

	case workflow.Endorse:
		if strings.TrimSpace(payload.Justification) == "" {
			errs = append(errs, fieldError("justification", "an endorsement justification is required"))
		}

	case workflow.ReviseAfterEvaluation:
		if strings.TrimSpace(payload.Remarks) == "" {
			errs = append(errs, fieldError("remarks", "revision remarks are required"))
		}
		if payload.Comments.Empty() {
			errs = append(errs, fieldError("comments", "at least one comment section must be filled in"))
		}

	case workflow.RejectAfterEvaluation:
		if strings.TrimSpace(payload.Remarks) == "" {
			errs = append(errs, fieldError("remarks", "rejection remarks are required"))
		}

	case workflow.Funding:
		if _, ok := payload.Outcome.Status(); !ok {
			errs = append(errs, fieldError("outcome",
				fmt.Sprintf("unknown funding outcome %q", payload.Outcome)))
		}
		if strings.TrimSpace(payload.Remarks) == "" {
			errs = append(errs, fieldError("remarks", "funding remarks are required"))
		}

	default:
		errs = append(errs, fieldError("type", fmt.Sprintf("unknown decision type %q", p.Kind())))
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// EvaluatorDecision validates an evaluator's own assessment submission.
func (v *Validator) EvaluatorDecision(ed *workflow.EvaluatorDecision) error {
	var errs workflow.ValidationErrors

	if strings.TrimSpace(ed.EvaluatorID) == "" {
		errs = append(errs, fieldError("evaluator_id", "evaluator id is required"))
	}
	if !ed.Decision.IsValid() {
		errs = append(errs, fieldError("decision",
			fmt.Sprintf("must be one of %q, %q, or %q",
				workflow.RecommendApprove, workflow.RecommendRevise, workflow.RecommendReject)))
	}
	if strings.TrimSpace(ed.Comments) == "" {
		errs = append(errs, fieldError("comments", "comments are required"))
	}
	for criterion, rating := range ed.Ratings {
		if rating < v.rules.RatingMin || rating > v.rules.RatingMax {
			errs = append(errs, fieldError("ratings."+criterion,
				fmt.Sprintf("rating must be between %d and %d", v.rules.RatingMin, v.rules.RatingMax)))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) checkDeadline(days int) workflow.ValidationErrors {
	if days <= 0 {
		return workflow.ValidationErrors{
			fieldError("deadline_days", "deadline must be a positive number of days"),
		}
	}
	if len(v.rules.DeadlineDays) == 0 {
		return nil
	}
	for _, accepted := range v.rules.DeadlineDays {
		if days == accepted {
			return nil
		}
	}
	return workflow.ValidationErrors{
		fieldError("deadline_days", fmt.Sprintf("deadline of %d days is not an accepted option %v", days, v.rules.DeadlineDays)),
	}
}

func fieldError(field, message string) *workflow.ValidationError {
	return &workflow.ValidationError{Field: field, Message: message}
}
