// Package workflow defines the proposal review domain: the status state
// machine, typed decision payloads, decision and evaluator-decision
// records, and the error taxonomy shared by the engine and its callers.
package workflow

// Status represents the current state of a proposal in the review workflow.
type Status string

const (
	// StatusPending indicates the proposal has been submitted and awaits triage.
	StatusPending Status = "Pending"
	// StatusAssignedToRnD indicates an R&D staff reviewer owns the proposal.
	StatusAssignedToRnD Status = "Assigned to RnD"
	// StatusSentToEvaluators indicates the proposal is under evaluator assessment.
	StatusSentToEvaluators Status = "Sent to Evaluators"
	// StatusRevisionRequired indicates the proposal was returned to the proponent.
	StatusRevisionRequired Status = "Revision Required"
	// StatusRevisedProposal indicates the proponent resubmitted after revision.
	StatusRevisedProposal Status = "Revised Proposal"
	// StatusRejectedProposal indicates the proposal was rejected. Terminal.
	StatusRejectedProposal Status = "Rejected Proposal"
	// StatusEndorsed indicates R&D forwarded the proposal for funding consideration.
	StatusEndorsed Status = "Endorsed"
	// StatusFunded indicates the council approved funding. Terminal.
	StatusFunded Status = "Funded"
	// StatusFundingRevision indicates the council returned the proposal for revision.
	StatusFundingRevision Status = "Funding Revision"
	// StatusFundingRejected indicates the council declined funding. Terminal.
	StatusFundingRejected Status = "Funding Rejected"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known workflow status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssignedToRnD, StatusSentToEvaluators,
		StatusRevisionRequired, StatusRevisedProposal, StatusRejectedProposal,
		StatusEndorsed, StatusFunded, StatusFundingRevision, StatusFundingRejected:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further engine transitions are accepted.
// A resubmission process outside the engine may still create a new proposal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFunded, StatusFundingRejected, StatusRejectedProposal:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status graph permits moving to target.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending, StatusRevisedProposal:
		// Triage entry points share the same outgoing edges.
		return target == StatusAssignedToRnD || target == StatusSentToEvaluators ||
			target == StatusRevisionRequired || target == StatusRejectedProposal
	case StatusAssignedToRnD:
		return target == StatusSentToEvaluators || target == StatusRevisionRequired ||
			target == StatusRejectedProposal
	case StatusSentToEvaluators:
		// Endorsement-path outcomes after evaluator consensus.
		return target == StatusEndorsed || target == StatusRevisionRequired ||
			target == StatusRejectedProposal
	case StatusRevisionRequired:
		// Proponent resubmission, not a Decision in this engine.
		return target == StatusRevisedProposal
	case StatusEndorsed:
		return target == StatusFunded || target == StatusFundingRevision ||
			target == StatusFundingRejected
	default:
		// Terminal statuses have no outgoing edges.
		return false
	}
}
