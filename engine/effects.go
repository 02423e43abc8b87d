package engine

// EffectKind classifies a side-effect request emitted with an accepted
// decision. The engine never performs the side effect; the calling layer
// (the notify package in this service) does.
type EffectKind string

const (
	// EffectNotifyEvaluators asks the caller to notify the evaluators of a
	// forwarding batch.
	EffectNotifyEvaluators EffectKind = "notify-evaluators"
	// EffectNotifyProponent asks the caller to notify the proponent of a
	// disposition.
	EffectNotifyProponent EffectKind = "notify-proponent"
	// EffectNotifyStaff asks the caller to notify the assigned R&D reviewer.
	EffectNotifyStaff EffectKind = "notify-staff"
	// EffectNotifyCouncil asks the caller to notify the funding council of
	// an endorsement.
	EffectNotifyCouncil EffectKind = "notify-council"
)

// Effect is a side-effect request attached to an accepted decision.
type Effect struct {
	Kind       EffectKind `json:"kind"`
	ProposalID string     `json:"proposal_id"`
	Recipients []string   `json:"recipients,omitempty"`
}
