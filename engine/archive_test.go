package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/reviewflow/storage"
	"github.com/c360studio/reviewflow/workflow"
)

func TestDecisionArchive(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()

	appendDecision := func(p workflow.Payload) {
		t.Helper()
		d, err := workflow.NewDecision("prop-1", p, "staff-1", testClock)
		if err != nil {
			t.Fatalf("NewDecision: %v", err)
		}
		if err := mem.Decisions.Append(ctx, d); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	archive := NewDecisionArchive(mem.Decisions)

	// Empty log: no summaries.
	summary, err := archive.FetchRejectionSummary(ctx, "prop-1")
	if err != nil {
		t.Fatalf("FetchRejectionSummary() error = %v", err)
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil for empty log", summary)
	}

	appendDecision(workflow.RequireRevision{
		Comments:     workflow.StructuredComments{Budget: "Itemize equipment costs."},
		DeadlineDays: 14,
	})
	appendDecision(workflow.ReviseAfterEvaluation{
		Comments: workflow.StructuredComments{Methodology: "Add a control group."},
		Remarks:  "Both evaluators asked for revisions.",
	})
	appendDecision(workflow.RejectProposal{Explanation: "Duplicate of a funded project."})

	revision, err := archive.FetchRevisionSummary(ctx, "prop-1")
	if err != nil {
		t.Fatalf("FetchRevisionSummary() error = %v", err)
	}
	if revision == nil {
		t.Fatal("revision summary is nil, want the latest revision decision")
	}
	// The later revise-after-evaluation decision wins over the earlier one.
	if !strings.Contains(revision.Comment, "control group") {
		t.Errorf("comment = %q, want the latest revision comments", revision.Comment)
	}
	if !strings.Contains(revision.Comment, "Both evaluators") {
		t.Errorf("comment = %q, want the remarks included", revision.Comment)
	}
	if strings.Contains(revision.Comment, "Itemize") {
		t.Errorf("comment = %q, includes the superseded revision", revision.Comment)
	}

	rejection, err := archive.FetchRejectionSummary(ctx, "prop-1")
	if err != nil {
		t.Fatalf("FetchRejectionSummary() error = %v", err)
	}
	if rejection == nil || rejection.Comment != "Duplicate of a funded project." {
		t.Errorf("rejection = %+v, want the rejection explanation", rejection)
	}
	if !rejection.CreatedAt.Equal(testClock) {
		t.Errorf("created at = %v, want %v", rejection.CreatedAt, testClock)
	}
}
