package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DecisionType identifies the kind of decision being applied to a proposal.
type DecisionType string

const (
	// DecisionAssignToRnD assigns an owning R&D staff reviewer.
	DecisionAssignToRnD DecisionType = "Assign to RnD"
	// DecisionSendToEvaluators forwards the proposal to assigned evaluators.
	DecisionSendToEvaluators DecisionType = "Sent to Evaluators"
	// DecisionRequireRevision returns the proposal to the proponent with
	// structured comments.
	DecisionRequireRevision DecisionType = "Revision Required"
	// DecisionRejectProposal rejects the proposal during triage.
	DecisionRejectProposal DecisionType = "Rejected Proposal"
	// DecisionEndorse endorses the proposal for funding after evaluator consensus.
	DecisionEndorse DecisionType = "Endorse"
	// DecisionReviseAfterEvaluation returns the proposal for revision after
	// evaluator consensus.
	DecisionReviseAfterEvaluation DecisionType = "Revise"
	// DecisionRejectAfterEvaluation rejects the proposal after evaluator consensus.
	DecisionRejectAfterEvaluation DecisionType = "Reject"
	// DecisionFunding records the council's funding disposition of an
	// endorsed proposal.
	DecisionFunding DecisionType = "Funding"
)

// FundingOutcome is the council's disposition of an endorsed proposal.
type FundingOutcome string

const (
	FundingOutcomeFunded   FundingOutcome = "Funded"
	FundingOutcomeRevision FundingOutcome = "Funding Revision"
	FundingOutcomeRejected FundingOutcome = "Funding Rejected"
)

// Status returns the proposal status the outcome produces.
func (o FundingOutcome) Status() (Status, bool) {
	switch o {
	case FundingOutcomeFunded:
		return StatusFunded, true
	case FundingOutcomeRevision:
		return StatusFundingRevision, true
	case FundingOutcomeRejected:
		return StatusFundingRejected, true
	default:
		return "", false
	}
}

// CommentSection is a single titled block of reviewer comments.
type CommentSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// StructuredComments is the named-section comment form used for revision and
// post-evaluation decisions. Fixed sections mirror the review template;
// Additional carries free-form titled sections.
type StructuredComments struct {
	Objectives  string `json:"objectives,omitempty"`
	Methodology string `json:"methodology,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
	Overall     string `json:"overall,omitempty"`
	References  string `json:"references,omitempty"`

	Additional []CommentSection `json:"additional,omitempty"`
}

// Sections returns every section in template order, including additional ones.
func (c StructuredComments) Sections() []CommentSection {
	sections := []CommentSection{
		{Title: "Objectives", Content: c.Objectives},
		{Title: "Methodology", Content: c.Methodology},
		{Title: "Budget", Content: c.Budget},
		{Title: "Timeline", Content: c.Timeline},
		{Title: "Overall", Content: c.Overall},
		{Title: "References", Content: c.References},
	}
	return append(sections, c.Additional...)
}

// Empty returns true if every section is empty after trimming whitespace.
func (c StructuredComments) Empty() bool {
	for _, s := range c.Sections() {
		if strings.TrimSpace(s.Content) != "" {
			return false
		}
	}
	return true
}

// Payload is the type-specific content of a decision. Each decision type
// carries only the fields it needs; the validator checks them exhaustively
// before the engine applies the decision.
type Payload interface {
	// Kind returns the decision type of this payload.
	Kind() DecisionType
}

// AssignToRnD assigns an owning R&D staff reviewer during triage.
type AssignToRnD struct {
	StaffID string `json:"staff_id"`
}

// Kind returns the decision type.
func (AssignToRnD) Kind() DecisionType { return DecisionAssignToRnD }

// SendToEvaluators forwards the proposal to a batch of evaluators.
type SendToEvaluators struct {
	EvaluatorIDs []string `json:"evaluator_ids"`
	// Instruction is free text for the evaluators; may be empty and is
	// recorded as-is.
	Instruction string `json:"instruction,omitempty"`
	// DeadlineDays is the evaluation deadline as a day offset from now.
	DeadlineDays int `json:"deadline_days"`
	// Visibility is the proponent identity disclosure for this batch.
	Visibility Visibility `json:"visibility"`
}

// Kind returns the decision type.
func (SendToEvaluators) Kind() DecisionType { return DecisionSendToEvaluators }

// RequireRevision returns the proposal to the proponent with structured
// comments and a revision deadline.
type RequireRevision struct {
	Comments     StructuredComments `json:"comments"`
	DeadlineDays int                `json:"deadline_days"`
}

// Kind returns the decision type.
func (RequireRevision) Kind() DecisionType { return DecisionRequireRevision }

// RejectProposal rejects the proposal during triage with an explanation.
type RejectProposal struct {
	Explanation string `json:"explanation"`
}

// Kind returns the decision type.
func (RejectProposal) Kind() DecisionType { return DecisionRejectProposal }

// Endorse forwards the proposal for funding consideration.
type Endorse struct {
	Justification string `json:"justification"`
}

// Kind returns the decision type.
func (Endorse) Kind() DecisionType { return DecisionEndorse }

// ReviseAfterEvaluation returns the proposal for revision after evaluator
// consensus. Requires at least one non-empty structured-comment section.
type ReviseAfterEvaluation struct {
	Comments StructuredComments `json:"comments"`
	Remarks  string             `json:"remarks"`
}

// Kind returns the decision type.
func (ReviseAfterEvaluation) Kind() DecisionType { return DecisionReviseAfterEvaluation }

// RejectAfterEvaluation rejects the proposal after evaluator consensus.
type RejectAfterEvaluation struct {
	Remarks string `json:"remarks"`
}

// Kind returns the decision type.
func (RejectAfterEvaluation) Kind() DecisionType { return DecisionRejectAfterEvaluation }

// Funding records the council's funding disposition of an endorsed proposal.
type Funding struct {
	Outcome FundingOutcome `json:"outcome"`
	Remarks string         `json:"remarks"`
}

// Kind returns the decision type.
func (Funding) Kind() DecisionType { return DecisionFunding }

// Decision is one accepted workflow transition, recorded append-only.
// Decisions are never mutated after creation; the most recent decision
// determines the proposal's current status.
type Decision struct {
	ID           string       `json:"id"`
	ProposalID   string       `json:"proposal_id"`
	Type         DecisionType `json:"type"`
	ReviewedBy   string       `json:"reviewed_by"`
	ReviewedDate time.Time    `json:"reviewed_date"`

	// Payload is the validated type-specific content, serialized so the
	// decision log stays self-describing.
	Payload json.RawMessage `json:"payload"`
}

// NewDecision creates a decision record for an accepted payload.
func NewDecision(proposalID string, p Payload, reviewedBy string, at time.Time) (*Decision, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal decision payload: %w", err)
	}
	return &Decision{
		ID:           fmt.Sprintf("d-%s", uuid.New().String()[:8]),
		ProposalID:   proposalID,
		Type:         p.Kind(),
		ReviewedBy:   reviewedBy,
		ReviewedDate: at.UTC(),
		Payload:      data,
	}, nil
}

// payloadFactories maps decision types to payload constructors for decoding.
var payloadFactories = map[DecisionType]func() Payload{
	DecisionAssignToRnD:           func() Payload { return &AssignToRnD{} },
	DecisionSendToEvaluators:      func() Payload { return &SendToEvaluators{} },
	DecisionRequireRevision:       func() Payload { return &RequireRevision{} },
	DecisionRejectProposal:        func() Payload { return &RejectProposal{} },
	DecisionEndorse:               func() Payload { return &Endorse{} },
	DecisionReviseAfterEvaluation: func() Payload { return &ReviseAfterEvaluation{} },
	DecisionRejectAfterEvaluation: func() Payload { return &RejectAfterEvaluation{} },
	DecisionFunding:               func() Payload { return &Funding{} },
}

// DecodePayload decodes raw payload data for the given decision type.
func DecodePayload(t DecisionType, data []byte) (Payload, error) {
	factory, ok := payloadFactories[t]
	if !ok {
		return nil, fmt.Errorf("unknown decision type: %s", t)
	}
	p := factory()
	if len(data) > 0 {
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return p, nil
}

// DecodedPayload returns the decision's typed payload.
func (d *Decision) DecodedPayload() (Payload, error) {
	return DecodePayload(d.Type, d.Payload)
}

// NormalizePayload unwraps pointer payloads to their value form so type
// switches only need one case per decision type. Payloads decoded from
// JSON arrive as pointers.
func NormalizePayload(p Payload) Payload {
	switch v := p.(type) {
	case *AssignToRnD:
		return *v
	case *SendToEvaluators:
		return *v
	case *RequireRevision:
		return *v
	case *RejectProposal:
		return *v
	case *Endorse:
		return *v
	case *ReviseAfterEvaluation:
		return *v
	case *RejectAfterEvaluation:
		return *v
	case *Funding:
		return *v
	default:
		return p
	}
}
