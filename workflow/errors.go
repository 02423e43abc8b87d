package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for engine operations.
var (
	// ErrProposalNotFound is returned when the proposal id is unknown.
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrEvaluatorNotAssigned is returned when an evaluator submits an
	// assessment for a proposal they are not assigned to.
	ErrEvaluatorNotAssigned = errors.New("evaluator is not assigned to this proposal")
	// ErrDuplicateEvaluation is returned when an assigned evaluator has
	// already submitted an assessment.
	ErrDuplicateEvaluation = errors.New("evaluator has already submitted a decision")
	// ErrStaffNotInPool is returned when the assigned reviewer is not in the
	// R&D staff pool.
	ErrStaffNotInPool = errors.New("staff is not in the R&D pool")
	// ErrEvaluatorUnknown is returned when a forwarded evaluator id is not
	// in the directory.
	ErrEvaluatorUnknown = errors.New("evaluator not found in directory")
)

// ValidationError reports a single decision payload field that failed a
// validation rule. No state change occurs; the caller re-prompts the user.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed rule for a payload so the caller
// can build precise messages without re-deriving them.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// InvalidTransitionError reports a decision type that is not permitted from
// the proposal's current status. Surfaced as a developer-facing error; the
// caller should not have offered the action.
type InvalidTransitionError struct {
	Status   Status       `json:"status"`
	Decision DecisionType `json:"decision"`
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("decision %q is not valid for proposal status %q", e.Decision, e.Status)
}

// QuorumNotMetError reports an endorsement-path decision attempted before
// enough evaluator decisions exist.
type QuorumNotMetError struct {
	Have int `json:"have"`
	Need int `json:"need"`
}

// Error implements the error interface.
func (e *QuorumNotMetError) Error() string {
	return fmt.Sprintf("endorsement quorum not met: %d of %d evaluator decisions", e.Have, e.Need)
}

// IsValidation returns true if err is a validation failure.
func IsValidation(err error) bool {
	var single *ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}
