// Package aggregation computes endorsement readiness from the evaluator
// decisions attached to a proposal. It is the single authority for the
// quorum and severity-ordering rules; summaries are derived, never stored,
// and recomputed on every read.
package aggregation

import (
	"fmt"
	"strings"

	"github.com/c360studio/reviewflow/workflow"
)

// DefaultQuorum is the minimum evaluator decisions required before the R&D
// endorsement transition is permitted.
const DefaultQuorum = 2

// Summary is the derived endorsement state of a proposal.
type Summary struct {
	// ReadyForEndorsement is true once the decision count reaches quorum.
	ReadyForEndorsement bool `json:"ready_for_endorsement"`

	// OverallRecommendation is the most severe decision present, computed
	// regardless of quorum. Empty when no decisions exist; callers must not
	// offer the endorsement transition in that case.
	OverallRecommendation workflow.Recommendation `json:"overall_recommendation,omitempty"`

	DecisionCount int `json:"decision_count"`
	Quorum        int `json:"quorum"`

	// Counts breaks the decisions down per recommendation.
	Counts map[workflow.Recommendation]int `json:"counts,omitempty"`

	// Note is a one-line human-readable summary.
	Note string `json:"note,omitempty"`
}

// Summarize computes the endorsement summary for a set of evaluator
// decisions. Severity ordering is Reject > Revise > Approve.
func Summarize(decisions []workflow.EvaluatorDecision, quorum int) Summary {
	if quorum <= 0 {
		quorum = DefaultQuorum
	}

	summary := Summary{
		DecisionCount:       len(decisions),
		Quorum:              quorum,
		ReadyForEndorsement: len(decisions) >= quorum,
	}
	if len(decisions) == 0 {
		summary.Note = "No evaluator decisions submitted yet."
		return summary
	}

	counts := make(map[workflow.Recommendation]int, 3)
	overall := decisions[0].Decision
	for _, d := range decisions {
		counts[d.Decision]++
		if severityRank(d.Decision) > severityRank(overall) {
			overall = d.Decision
		}
	}
	summary.OverallRecommendation = overall
	summary.Counts = counts
	summary.Note = note(summary)
	return summary
}

// severityRank orders recommendations by severity; higher rank wins.
func severityRank(r workflow.Recommendation) int {
	switch r {
	case workflow.RecommendReject:
		return 3
	case workflow.RecommendRevise:
		return 2
	case workflow.RecommendApprove:
		return 1
	default:
		return 0
	}
}

func note(s Summary) string {
	var parts []string

	if s.ReadyForEndorsement {
		parts = append(parts, fmt.Sprintf("Quorum reached: %d of %d evaluator decisions.", s.DecisionCount, s.Quorum))
	} else {
		parts = append(parts, fmt.Sprintf("Awaiting quorum: %d of %d evaluator decisions.", s.DecisionCount, s.Quorum))
	}

	var breakdown []string
	for _, r := range []workflow.Recommendation{workflow.RecommendReject, workflow.RecommendRevise, workflow.RecommendApprove} {
		if n := s.Counts[r]; n > 0 {
			breakdown = append(breakdown, fmt.Sprintf("%d %s", n, strings.ToLower(string(r))))
		}
	}
	if len(breakdown) > 0 {
		parts = append(parts, fmt.Sprintf("Recommendation %s (%s).", s.OverallRecommendation, strings.Join(breakdown, ", ")))
	}

	return strings.Join(parts, " ")
}
