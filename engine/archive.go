package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/reviewflow/directory"
	"github.com/c360studio/reviewflow/workflow"
)

// DecisionArchive serves rejection and revision explanations from the
// decision log. It implements directory.RejectionArchive for callers
// rendering a rejected or revision-required proposal; the state machine
// never consults it.
type DecisionArchive struct {
	decisions DecisionLog
}

// NewDecisionArchive creates an archive over the decision log.
func NewDecisionArchive(decisions DecisionLog) *DecisionArchive {
	return &DecisionArchive{decisions: decisions}
}

// FetchRejectionSummary returns the explanation behind the most recent
// rejection decision, or nil when the proposal was never rejected.
func (a *DecisionArchive) FetchRejectionSummary(ctx context.Context, proposalID string) (*directory.RejectionSummary, error) {
	return a.latest(ctx, proposalID, workflow.DecisionRejectProposal, workflow.DecisionRejectAfterEvaluation)
}

// FetchRevisionSummary returns the comments behind the most recent
// revision decision, or nil when a revision was never required.
func (a *DecisionArchive) FetchRevisionSummary(ctx context.Context, proposalID string) (*directory.RejectionSummary, error) {
	return a.latest(ctx, proposalID, workflow.DecisionRequireRevision, workflow.DecisionReviseAfterEvaluation)
}

func (a *DecisionArchive) latest(ctx context.Context, proposalID string, types ...workflow.DecisionType) (*directory.RejectionSummary, error) {
	log, err := a.decisions.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	// The log is oldest-first; the last match is the one in force.
	for i := len(log) - 1; i >= 0; i-- {
		d := log[i]
		if !containsType(types, d.Type) {
			continue
		}
		payload, err := d.DecodedPayload()
		if err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", d.ID, err)
		}
		return &directory.RejectionSummary{
			Comment:   summaryComment(payload),
			CreatedAt: d.ReviewedDate,
		}, nil
	}
	return nil, nil
}

func containsType(types []workflow.DecisionType, t workflow.DecisionType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func summaryComment(p workflow.Payload) string {
	switch payload := workflow.NormalizePayload(p).(type) {
	case workflow.RejectProposal:
		return payload.Explanation
	case workflow.RejectAfterEvaluation:
		return payload.Remarks
	case workflow.RequireRevision:
		return renderComments(payload.Comments, "")
	case workflow.ReviseAfterEvaluation:
		return renderComments(payload.Comments, payload.Remarks)
	default:
		return ""
	}
}

// renderComments flattens structured comments to the one-block form the
// proponent sees, skipping empty sections.
func renderComments(c workflow.StructuredComments, remarks string) string {
	var parts []string
	if strings.TrimSpace(remarks) != "" {
		parts = append(parts, strings.TrimSpace(remarks))
	}
	for _, s := range c.Sections() {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", s.Title, strings.TrimSpace(s.Content)))
	}
	return strings.Join(parts, "\n")
}
