// Package engine wires the decision validator, the workflow state machine,
// the assignment planner, and the endorsement aggregator into the four
// operations the surrounding application calls. Each call either fully
// validates-and-transitions or fails with no state change; decisions for
// the same proposal are serialized per proposal id.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/reviewflow/directory"
	"github.com/c360studio/reviewflow/workflow"
	"github.com/c360studio/reviewflow/workflow/aggregation"
	"github.com/c360studio/reviewflow/workflow/assignment"
	"github.com/c360studio/reviewflow/workflow/validation"
)

// ProposalStore persists proposals. Implementations must return
// workflow.ErrProposalNotFound (possibly wrapped) for unknown ids.
type ProposalStore interface {
	Get(ctx context.Context, id string) (*workflow.Proposal, error)
	Put(ctx context.Context, p *workflow.Proposal) error
}

// DecisionLog appends accepted decisions. Entries are never mutated.
type DecisionLog interface {
	Append(ctx context.Context, d *workflow.Decision) error
	ListByProposal(ctx context.Context, proposalID string) ([]*workflow.Decision, error)
}

// EvaluationStore persists evaluator decisions.
type EvaluationStore interface {
	Put(ctx context.Context, ed *workflow.EvaluatorDecision) error
	ListByProposal(ctx context.Context, proposalID string) ([]workflow.EvaluatorDecision, error)
}

// Options configures an Engine.
type Options struct {
	// Quorum is the minimum evaluator decisions before endorsement-path
	// decisions are permitted. Defaults to aggregation.DefaultQuorum.
	Quorum int
	// Rules are the validation bounds. Zero value means validation.DefaultRules.
	Rules validation.Rules
	// Now overrides the clock, for tests.
	Now func() time.Time
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Engine applies decisions to proposals.
type Engine struct {
	proposals ProposalStore
	decisions DecisionLog
	evals     EvaluationStore
	dir       directory.Directory
	validator *validation.Validator
	quorum    int
	now       func() time.Time
	logger    *slog.Logger

	// locks serializes decision application per proposal id. Entries are
	// retained for the process lifetime; the map is bounded by the number
	// of distinct proposals seen.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an engine over the given stores and directory.
func New(proposals ProposalStore, decisions DecisionLog, evals EvaluationStore, dir directory.Directory, opts Options) *Engine {
	if opts.Quorum <= 0 {
		opts.Quorum = aggregation.DefaultQuorum
	}
	if opts.Rules.RatingMax == 0 && opts.Rules.DeadlineDays == nil {
		opts.Rules = validation.DefaultRules()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		proposals: proposals,
		decisions: decisions,
		evals:     evals,
		dir:       dir,
		validator: validation.New(opts.Rules),
		quorum:    opts.Quorum,
		now:       opts.Now,
		logger:    opts.Logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Result is the outcome of an accepted decision.
type Result struct {
	Proposal *workflow.Proposal   `json:"proposal"`
	Decision *workflow.Decision   `json:"decision"`
	Warnings []assignment.Warning `json:"warnings,omitempty"`
	Effects  []Effect             `json:"effects,omitempty"`
}

// SubmitDecision validates and applies a decision to a proposal.
// Guard order: payload structure, quorum where applicable, then
// transition validity. On any failure the stored proposal is unchanged.
func (e *Engine) SubmitDecision(ctx context.Context, proposalID string, p workflow.Payload, reviewedBy string) (*Result, error) {
	unlock := e.lock(proposalID)
	defer unlock()

	if err := e.validator.Decision(p); err != nil {
		return nil, err
	}

	proposal, err := e.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	t := p.Kind()
	if t.RequiresQuorum() {
		evals, err := e.evals.ListByProposal(ctx, proposalID)
		if err != nil {
			return nil, fmt.Errorf("list evaluator decisions: %w", err)
		}
		if len(evals) < e.quorum {
			return nil, &workflow.QuorumNotMetError{Have: len(evals), Need: e.quorum}
		}
	}

	if !t.AllowedFrom(proposal.Status) {
		return nil, &workflow.InvalidTransitionError{Status: proposal.Status, Decision: t}
	}

	now := e.now().UTC()
	next := proposal.Clone()
	var warnings []assignment.Warning
	var effects []Effect

	switch payload := workflow.NormalizePayload(p).(type) {
	case workflow.AssignToRnD:
		effects, err = e.applyAssignToRnD(ctx, next, payload)
	case workflow.SendToEvaluators:
		warnings, effects, err = e.applySendToEvaluators(ctx, next, payload, now)
	case workflow.RequireRevision:
		effects = e.applyRequireRevision(next, payload, now)
	case workflow.RejectProposal:
		next.Status = workflow.StatusRejectedProposal
		effects = notifyProponent(next)
	case workflow.Endorse:
		effects = e.applyEndorse(next, payload)
	case workflow.ReviseAfterEvaluation:
		next.Status = workflow.StatusRevisionRequired
		effects = notifyProponent(next)
	case workflow.RejectAfterEvaluation:
		next.Status = workflow.StatusRejectedProposal
		effects = notifyProponent(next)
	case workflow.Funding:
		err = applyFunding(next, payload)
		effects = notifyProponent(next)
	default:
		err = &workflow.InvalidTransitionError{Status: proposal.Status, Decision: t}
	}
	if err != nil {
		return nil, err
	}

	next.LastModified = now

	decision, err := workflow.NewDecision(proposalID, p, reviewedBy, now)
	if err != nil {
		return nil, err
	}

	if err := e.proposals.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("persist proposal: %w", err)
	}
	if err := e.decisions.Append(ctx, decision); err != nil {
		return nil, fmt.Errorf("append decision: %w", err)
	}

	e.logger.Info("Decision applied",
		slog.String("proposal_id", proposalID),
		slog.String("decision", string(t)),
		slog.String("from", string(proposal.Status)),
		slog.String("to", string(next.Status)),
		slog.String("reviewed_by", reviewedBy))

	return &Result{
		Proposal: next,
		Decision: decision,
		Warnings: warnings,
		Effects:  effects,
	}, nil
}

func (e *Engine) applyAssignToRnD(ctx context.Context, p *workflow.Proposal, payload workflow.AssignToRnD) ([]Effect, error) {
	pool, err := e.dir.ListRdStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list R&D staff: %w", err)
	}
	found := false
	for _, s := range pool {
		if s.ID == payload.StaffID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", workflow.ErrStaffNotInPool, payload.StaffID)
	}

	p.Status = workflow.StatusAssignedToRnD
	p.AssignedRdStaffID = payload.StaffID
	return []Effect{{
		Kind:       EffectNotifyStaff,
		ProposalID: p.ID,
		Recipients: []string{payload.StaffID},
	}}, nil
}

func (e *Engine) applySendToEvaluators(ctx context.Context, p *workflow.Proposal, payload workflow.SendToEvaluators, now time.Time) ([]assignment.Warning, []Effect, error) {
	known, err := e.dir.ListEvaluators(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list evaluators: %w", err)
	}
	ids := make(map[string]bool, len(known))
	for _, ev := range known {
		ids[ev.ID] = true
	}
	for _, id := range payload.EvaluatorIDs {
		if !ids[id] {
			return nil, nil, fmt.Errorf("%w: %s", workflow.ErrEvaluatorUnknown, id)
		}
	}

	cs, warnings := assignment.Plan(p.AssignedEvaluatorIDs, payload.EvaluatorIDs, nil, payload.Visibility)

	deadline := now.AddDate(0, 0, payload.DeadlineDays)
	p.Status = workflow.StatusSentToEvaluators
	p.AssignedEvaluatorIDs = cs.AssignedEvaluatorIDs
	p.EvaluatorInstruction = payload.Instruction
	p.EvaluationDeadline = &deadline
	p.ProponentInfoVisibility = cs.Visibility

	effects := []Effect{{
		Kind:       EffectNotifyEvaluators,
		ProposalID: p.ID,
		Recipients: append([]string(nil), cs.AssignedEvaluatorIDs...),
	}}
	return warnings, effects, nil
}

func (e *Engine) applyRequireRevision(p *workflow.Proposal, payload workflow.RequireRevision, now time.Time) []Effect {
	deadline := now.AddDate(0, 0, payload.DeadlineDays)
	p.Status = workflow.StatusRevisionRequired
	p.EvaluationDeadline = &deadline
	return notifyProponent(p)
}

func (e *Engine) applyEndorse(p *workflow.Proposal, payload workflow.Endorse) []Effect {
	p.Status = workflow.StatusEndorsed
	p.EndorsementJustification = payload.Justification
	return []Effect{{
		Kind:       EffectNotifyCouncil,
		ProposalID: p.ID,
	}}
}

func applyFunding(p *workflow.Proposal, payload workflow.Funding) error {
	status, ok := payload.Outcome.Status()
	if !ok {
		return workflow.ValidationErrors{{Field: "outcome", Message: "unknown funding outcome"}}
	}
	p.Status = status
	return nil
}

func notifyProponent(p *workflow.Proposal) []Effect {
	return []Effect{{
		Kind:       EffectNotifyProponent,
		ProposalID: p.ID,
		Recipients: []string{p.SubmittedBy},
	}}
}

// SubmitEvaluatorDecision records an evaluator's assessment and returns the
// recomputed endorsement summary. Individual submissions never change the
// proposal status.
func (e *Engine) SubmitEvaluatorDecision(ctx context.Context, ed *workflow.EvaluatorDecision) (aggregation.Summary, error) {
	unlock := e.lock(ed.ProposalID)
	defer unlock()

	if err := e.validator.EvaluatorDecision(ed); err != nil {
		return aggregation.Summary{}, err
	}

	proposal, err := e.proposals.Get(ctx, ed.ProposalID)
	if err != nil {
		return aggregation.Summary{}, err
	}
	if proposal.Status != workflow.StatusSentToEvaluators {
		return aggregation.Summary{}, &workflow.InvalidTransitionError{
			Status:   proposal.Status,
			Decision: workflow.DecisionType(ed.Decision),
		}
	}
	if !proposal.IsAssigned(ed.EvaluatorID) {
		return aggregation.Summary{}, fmt.Errorf("%w: %s", workflow.ErrEvaluatorNotAssigned, ed.EvaluatorID)
	}

	existing, err := e.evals.ListByProposal(ctx, ed.ProposalID)
	if err != nil {
		return aggregation.Summary{}, fmt.Errorf("list evaluator decisions: %w", err)
	}
	for _, prev := range existing {
		if prev.EvaluatorID == ed.EvaluatorID {
			return aggregation.Summary{}, fmt.Errorf("%w: %s", workflow.ErrDuplicateEvaluation, ed.EvaluatorID)
		}
	}

	ed.SubmittedDate = e.now().UTC()
	if err := e.evals.Put(ctx, ed); err != nil {
		return aggregation.Summary{}, fmt.Errorf("store evaluator decision: %w", err)
	}

	summary := aggregation.Summarize(append(existing, *ed), e.quorum)
	e.logger.Info("Evaluator decision recorded",
		slog.String("proposal_id", ed.ProposalID),
		slog.String("evaluator_id", ed.EvaluatorID),
		slog.String("decision", string(ed.Decision)),
		slog.Bool("ready_for_endorsement", summary.ReadyForEndorsement))
	return summary, nil
}

// GetEndorsementSummary recomputes the endorsement summary for a proposal.
func (e *Engine) GetEndorsementSummary(ctx context.Context, proposalID string) (aggregation.Summary, error) {
	if _, err := e.proposals.Get(ctx, proposalID); err != nil {
		return aggregation.Summary{}, err
	}
	evals, err := e.evals.ListByProposal(ctx, proposalID)
	if err != nil {
		return aggregation.Summary{}, fmt.Errorf("list evaluator decisions: %w", err)
	}
	return aggregation.Summarize(evals, e.quorum), nil
}

// PlanAssignment builds the assignment change-set for a proposal without
// applying it. The resulting set is what a subsequent Sent to Evaluators
// decision would write.
func (e *Engine) PlanAssignment(ctx context.Context, proposalID string, toAdd, toRemove []string, visibility workflow.Visibility) (assignment.ChangeSet, []assignment.Warning, error) {
	if !visibility.IsValid() {
		return assignment.ChangeSet{}, nil, workflow.ValidationErrors{
			{Field: "visibility", Message: "must be one of name, agency, or both"},
		}
	}
	proposal, err := e.proposals.Get(ctx, proposalID)
	if err != nil {
		return assignment.ChangeSet{}, nil, err
	}
	cs, warnings := assignment.Plan(proposal.AssignedEvaluatorIDs, toAdd, toRemove, visibility)
	return cs, warnings, nil
}

// MarkResubmitted records a proponent resubmission, moving the proposal
// from Revision Required to Revised Proposal. The resubmission itself
// (document upload, form data) happens outside the engine.
func (e *Engine) MarkResubmitted(ctx context.Context, proposalID string) (*workflow.Proposal, error) {
	unlock := e.lock(proposalID)
	defer unlock()

	proposal, err := e.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != workflow.StatusRevisionRequired {
		return nil, &workflow.InvalidTransitionError{
			Status:   proposal.Status,
			Decision: "Resubmit",
		}
	}

	next := proposal.Clone()
	next.Status = workflow.StatusRevisedProposal
	next.LastModified = e.now().UTC()
	if err := e.proposals.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("persist proposal: %w", err)
	}
	return next, nil
}

// EligibleEvaluators lists directory evaluators eligible for assignment to
// the proposal, excluding those already assigned.
func (e *Engine) EligibleEvaluators(ctx context.Context, proposalID, department, searchText string) ([]directory.Evaluator, error) {
	proposal, err := e.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	evaluators, err := e.dir.ListEvaluators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list evaluators: %w", err)
	}
	return directory.Filter(evaluators, directory.FilterOptions{
		Department: department,
		SearchText: searchText,
		ExcludeIDs: proposal.AssignedEvaluatorIDs,
	}), nil
}

func (e *Engine) lock(proposalID string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[proposalID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[proposalID] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// IsNotFound reports whether err indicates an unknown proposal.
func IsNotFound(err error) bool {
	return errors.Is(err, workflow.ErrProposalNotFound)
}
