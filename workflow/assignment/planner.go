// Package assignment builds evaluator-assignment change-sets for a
// forwarding batch. Planning is pure: conflicts degrade to warnings and the
// resulting set is what a successful Sent to Evaluators decision writes to
// the proposal.
package assignment

import (
	"fmt"

	"github.com/c360studio/reviewflow/workflow"
)

// WarningCode classifies an assignment conflict.
type WarningCode string

const (
	// WarnAlreadyAssigned reports an add for an evaluator already in the set.
	WarnAlreadyAssigned WarningCode = "already_assigned"
	// WarnNotAssigned reports a remove for an evaluator not in the set.
	WarnNotAssigned WarningCode = "not_assigned"
	// WarnDuplicateAdd reports the same evaluator appearing twice in the
	// add list.
	WarnDuplicateAdd WarningCode = "duplicate_add"
)

// Warning is a non-fatal assignment conflict. The plan still succeeds; the
// conflicting entry is a no-op.
type Warning struct {
	Code        WarningCode `json:"code"`
	EvaluatorID string      `json:"evaluator_id"`
	Message     string      `json:"message"`
}

// ChangeSet is the outcome of planning an assignment batch.
type ChangeSet struct {
	// AssignedEvaluatorIDs is the final ordered set: current order
	// preserved, additions appended in request order, no duplicates.
	AssignedEvaluatorIDs []string `json:"assigned_evaluator_ids"`

	// Added and Removed list the ids the plan actually changed.
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`

	// Visibility is the proponent disclosure recorded once for the whole
	// batch.
	Visibility workflow.Visibility `json:"visibility"`
}

// Plan builds the evaluator-assignment change-set for a forwarding batch.
// Duplicate adds and absent removes are reported as warnings, not errors.
func Plan(current, toAdd, toRemove []string, visibility workflow.Visibility) (ChangeSet, []Warning) {
	var warnings []Warning

	removing := make(map[string]bool, len(toRemove))
	inCurrent := make(map[string]bool, len(current))
	for _, id := range current {
		inCurrent[id] = true
	}
	for _, id := range toRemove {
		if !inCurrent[id] {
			warnings = append(warnings, Warning{
				Code:        WarnNotAssigned,
				EvaluatorID: id,
				Message:     fmt.Sprintf("evaluator %s is not assigned and cannot be removed", id),
			})
			continue
		}
		removing[id] = true
	}

	cs := ChangeSet{Visibility: visibility}
	final := make([]string, 0, len(current)+len(toAdd))
	inFinal := make(map[string]bool, len(current)+len(toAdd))
	for _, id := range current {
		if removing[id] {
			cs.Removed = append(cs.Removed, id)
			continue
		}
		final = append(final, id)
		inFinal[id] = true
	}

	for _, id := range toAdd {
		if inCurrent[id] && !removing[id] {
			warnings = append(warnings, Warning{
				Code:        WarnAlreadyAssigned,
				EvaluatorID: id,
				Message:     fmt.Sprintf("evaluator %s is already assigned", id),
			})
			continue
		}
		if inFinal[id] {
			warnings = append(warnings, Warning{
				Code:        WarnDuplicateAdd,
				EvaluatorID: id,
				Message:     fmt.Sprintf("evaluator %s appears more than once in the batch", id),
			})
			continue
		}
		final = append(final, id)
		inFinal[id] = true
		cs.Added = append(cs.Added, id)
	}

	cs.AssignedEvaluatorIDs = final
	return cs, warnings
}
