package workflow

// AllowedFrom returns true if the decision type may be applied to a
// proposal in the given status. This is the transition table; any
// (status, decision) pair outside it is rejected with
// InvalidTransitionError and the proposal is left unchanged.
func (t DecisionType) AllowedFrom(s Status) bool {
	switch t {
	case DecisionAssignToRnD:
		return s == StatusPending || s == StatusRevisedProposal
	case DecisionSendToEvaluators, DecisionRequireRevision, DecisionRejectProposal:
		return s == StatusPending || s == StatusAssignedToRnD || s == StatusRevisedProposal
	case DecisionEndorse, DecisionReviseAfterEvaluation, DecisionRejectAfterEvaluation:
		return s == StatusSentToEvaluators
	case DecisionFunding:
		return s == StatusEndorsed
	default:
		return false
	}
}

// RequiresQuorum returns true if the decision type is only permitted once
// the evaluator-decision quorum is reached.
func (t DecisionType) RequiresQuorum() bool {
	switch t {
	case DecisionEndorse, DecisionReviseAfterEvaluation, DecisionRejectAfterEvaluation:
		return true
	default:
		return false
	}
}
