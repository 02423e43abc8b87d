package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/c360studio/reviewflow/directory"
	"github.com/c360studio/reviewflow/storage"
	"github.com/c360studio/reviewflow/workflow"
)

var testClock = time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *storage.Memory) {
	t.Helper()
	dir := directory.NewStatic(
		[]directory.Evaluator{
			{ID: "ev-1", Name: "Dr. Elena Reyes", Department: "Marine Science", AvailabilityStatus: directory.Available},
			{ID: "ev-2", Name: "Prof. Marcus Tan", Department: "Engineering", AvailabilityStatus: directory.Available},
			{ID: "ev-3", Name: "Dr. Amara Okafor", Department: "Engineering", AvailabilityStatus: directory.Available},
		},
		[]directory.Staff{
			{ID: "staff-1", Name: "Jordan Pike"},
		},
		[]directory.Department{
			{ID: "dep-1", Name: "Engineering"},
		},
	)
	mem := storage.NewMemory()
	eng := New(mem.Proposals, mem.Decisions, mem.Evaluations, dir, Options{
		Now: func() time.Time { return testClock },
	})
	return eng, mem
}

func seedProposal(t *testing.T, mem *storage.Memory, status workflow.Status) *workflow.Proposal {
	t.Helper()
	p := &workflow.Proposal{
		ID:          "prop-1",
		Title:       "Coastal Erosion Monitoring Network",
		SubmittedBy: "user-42",
		Status:      status,
	}
	if status == workflow.StatusSentToEvaluators {
		p.AssignedEvaluatorIDs = []string{"ev-1", "ev-2"}
	}
	if err := mem.Proposals.Create(context.Background(), p); err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return p
}

func TestSubmitDecisionAssignToRnD(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)
	ctx := context.Background()

	result, err := eng.SubmitDecision(ctx, "prop-1", workflow.AssignToRnD{StaffID: "staff-1"}, "admin-1")
	if err != nil {
		t.Fatalf("SubmitDecision() error = %v", err)
	}
	if result.Proposal.Status != workflow.StatusAssignedToRnD {
		t.Errorf("status = %q, want %q", result.Proposal.Status, workflow.StatusAssignedToRnD)
	}
	if result.Proposal.AssignedRdStaffID != "staff-1" {
		t.Errorf("assigned staff = %q, want staff-1", result.Proposal.AssignedRdStaffID)
	}
	if len(result.Effects) != 1 || result.Effects[0].Kind != EffectNotifyStaff {
		t.Errorf("effects = %+v, want one notify-staff", result.Effects)
	}

	stored, err := mem.Proposals.Get(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != workflow.StatusAssignedToRnD {
		t.Errorf("stored status = %q, want %q", stored.Status, workflow.StatusAssignedToRnD)
	}
	if !stored.LastModified.Equal(testClock) {
		t.Errorf("last modified = %v, want %v", stored.LastModified, testClock)
	}

	decisions, err := mem.Decisions.ListByProposal(ctx, "prop-1")
	if err != nil {
		t.Fatalf("ListByProposal() error = %v", err)
	}
	if len(decisions) != 1 || decisions[0].Type != workflow.DecisionAssignToRnD {
		t.Errorf("decision log = %+v, want one assign decision", decisions)
	}
}

func TestSubmitDecisionStaffNotInPool(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)

	_, err := eng.SubmitDecision(context.Background(), "prop-1", workflow.AssignToRnD{StaffID: "staff-99"}, "admin-1")
	if !errors.Is(err, workflow.ErrStaffNotInPool) {
		t.Fatalf("error = %v, want ErrStaffNotInPool", err)
	}
	assertStatusUnchanged(t, mem, workflow.StatusPending)
}

func TestSubmitDecisionSendToEvaluators(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)
	ctx := context.Background()

	result, err := eng.SubmitDecision(ctx, "prop-1", workflow.SendToEvaluators{
		EvaluatorIDs: []string{"ev-1", "ev-2"},
		Instruction:  "Focus on the sensor budget.",
		DeadlineDays: 14,
		Visibility:   workflow.VisibilityAgency,
	}, "staff-1")
	if err != nil {
		t.Fatalf("SubmitDecision() error = %v", err)
	}

	p := result.Proposal
	if p.Status != workflow.StatusSentToEvaluators {
		t.Errorf("status = %q, want %q", p.Status, workflow.StatusSentToEvaluators)
	}
	if len(p.AssignedEvaluatorIDs) != 2 {
		t.Errorf("assigned evaluators = %v, want two", p.AssignedEvaluatorIDs)
	}
	if p.ProponentInfoVisibility != workflow.VisibilityAgency {
		t.Errorf("visibility = %q, want agency", p.ProponentInfoVisibility)
	}
	wantDeadline := testClock.AddDate(0, 0, 14)
	if p.EvaluationDeadline == nil || !p.EvaluationDeadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", p.EvaluationDeadline, wantDeadline)
	}
	if len(result.Effects) != 1 || result.Effects[0].Kind != EffectNotifyEvaluators {
		t.Errorf("effects = %+v, want one notify-evaluators", result.Effects)
	}
	if len(result.Effects[0].Recipients) != 2 {
		t.Errorf("recipients = %v, want both evaluators", result.Effects[0].Recipients)
	}
}

func TestSubmitDecisionUnknownEvaluator(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)

	_, err := eng.SubmitDecision(context.Background(), "prop-1", workflow.SendToEvaluators{
		EvaluatorIDs: []string{"ev-1", "ev-99"},
		DeadlineDays: 14,
		Visibility:   workflow.VisibilityName,
	}, "staff-1")
	if !errors.Is(err, workflow.ErrEvaluatorUnknown) {
		t.Fatalf("error = %v, want ErrEvaluatorUnknown", err)
	}
	assertStatusUnchanged(t, mem, workflow.StatusPending)
}

func TestSubmitDecisionValidationFailureLeavesStateUnchanged(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)

	_, err := eng.SubmitDecision(context.Background(), "prop-1", workflow.RejectProposal{}, "staff-1")
	if !workflow.IsValidation(err) {
		t.Fatalf("error = %v, want validation errors", err)
	}
	assertStatusUnchanged(t, mem, workflow.StatusPending)

	decisions, _ := mem.Decisions.ListByProposal(context.Background(), "prop-1")
	if len(decisions) != 0 {
		t.Errorf("decision log = %+v, want empty after a refused decision", decisions)
	}
}

func TestSubmitDecisionInvalidTransition(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)

	_, err := eng.SubmitDecision(context.Background(), "prop-1", workflow.Funding{
		Outcome: workflow.FundingOutcomeFunded,
		Remarks: "Premature.",
	}, "council-1")

	var invalid *workflow.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if invalid.Status != workflow.StatusPending || invalid.Decision != workflow.DecisionFunding {
		t.Errorf("error detail = %+v", invalid)
	}
	assertStatusUnchanged(t, mem, workflow.StatusPending)
}

func TestSubmitDecisionProposalNotFound(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.SubmitDecision(context.Background(), "prop-404", workflow.RejectProposal{Explanation: "x"}, "staff-1")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want proposal-not-found", err)
	}
}

func TestEndorseRequiresQuorum(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusSentToEvaluators)
	ctx := context.Background()

	endorse := workflow.Endorse{Justification: "Both evaluators approve."}

	// No evaluator decisions yet.
	_, err := eng.SubmitDecision(ctx, "prop-1", endorse, "staff-1")
	var quorum *workflow.QuorumNotMetError
	if !errors.As(err, &quorum) {
		t.Fatalf("error = %v, want QuorumNotMetError", err)
	}
	if quorum.Have != 0 || quorum.Need != 2 {
		t.Errorf("quorum detail = %+v, want 0 of 2", quorum)
	}

	submitEvaluation(t, eng, "ev-1", workflow.RecommendApprove)

	// One of two is still short.
	if _, err := eng.SubmitDecision(ctx, "prop-1", endorse, "staff-1"); !errors.As(err, &quorum) {
		t.Fatalf("error = %v, want QuorumNotMetError at one of two", err)
	}
	assertStatusUnchanged(t, mem, workflow.StatusSentToEvaluators)

	submitEvaluation(t, eng, "ev-2", workflow.RecommendApprove)

	result, err := eng.SubmitDecision(ctx, "prop-1", endorse, "staff-1")
	if err != nil {
		t.Fatalf("SubmitDecision() at quorum error = %v", err)
	}
	if result.Proposal.Status != workflow.StatusEndorsed {
		t.Errorf("status = %q, want %q", result.Proposal.Status, workflow.StatusEndorsed)
	}
	if result.Proposal.EndorsementJustification != endorse.Justification {
		t.Errorf("justification = %q, want recorded", result.Proposal.EndorsementJustification)
	}
	if len(result.Effects) != 1 || result.Effects[0].Kind != EffectNotifyCouncil {
		t.Errorf("effects = %+v, want one notify-council", result.Effects)
	}
}

func submitEvaluation(t *testing.T, eng *Engine, evaluatorID string, rec workflow.Recommendation) {
	t.Helper()
	_, err := eng.SubmitEvaluatorDecision(context.Background(), &workflow.EvaluatorDecision{
		ProposalID:  "prop-1",
		EvaluatorID: evaluatorID,
		Decision:    rec,
		Comments:    "Assessment recorded.",
	})
	if err != nil {
		t.Fatalf("SubmitEvaluatorDecision(%s) error = %v", evaluatorID, err)
	}
}

func TestSubmitEvaluatorDecision(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusSentToEvaluators)
	ctx := context.Background()

	summary, err := eng.SubmitEvaluatorDecision(ctx, &workflow.EvaluatorDecision{
		ProposalID:  "prop-1",
		EvaluatorID: "ev-1",
		Decision:    workflow.RecommendRevise,
		Comments:    "Budget needs a detailed breakdown.",
		Ratings:     map[string]int{"budget": 2},
	})
	if err != nil {
		t.Fatalf("SubmitEvaluatorDecision() error = %v", err)
	}
	if summary.ReadyForEndorsement {
		t.Error("one decision should not reach quorum")
	}
	if summary.OverallRecommendation != workflow.RecommendRevise {
		t.Errorf("recommendation = %q, want Revise", summary.OverallRecommendation)
	}

	// Status never changes from an individual submission.
	stored, err := mem.Proposals.Get(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != workflow.StatusSentToEvaluators {
		t.Errorf("status = %q, want unchanged", stored.Status)
	}
}

func TestSubmitEvaluatorDecisionGuards(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusSentToEvaluators)
	ctx := context.Background()

	// Not assigned.
	_, err := eng.SubmitEvaluatorDecision(ctx, &workflow.EvaluatorDecision{
		ProposalID:  "prop-1",
		EvaluatorID: "ev-3",
		Decision:    workflow.RecommendApprove,
		Comments:    "x",
	})
	if !errors.Is(err, workflow.ErrEvaluatorNotAssigned) {
		t.Errorf("error = %v, want ErrEvaluatorNotAssigned", err)
	}

	submitEvaluation(t, eng, "ev-1", workflow.RecommendApprove)

	// Duplicate.
	_, err = eng.SubmitEvaluatorDecision(ctx, &workflow.EvaluatorDecision{
		ProposalID:  "prop-1",
		EvaluatorID: "ev-1",
		Decision:    workflow.RecommendReject,
		Comments:    "changed my mind",
	})
	if !errors.Is(err, workflow.ErrDuplicateEvaluation) {
		t.Errorf("error = %v, want ErrDuplicateEvaluation", err)
	}
}

func TestSubmitEvaluatorDecisionWrongStatus(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)

	_, err := eng.SubmitEvaluatorDecision(context.Background(), &workflow.EvaluatorDecision{
		ProposalID:  "prop-1",
		EvaluatorID: "ev-1",
		Decision:    workflow.RecommendApprove,
		Comments:    "x",
	})
	var invalid *workflow.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
}

func TestMarkResubmitted(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusRevisionRequired)

	p, err := eng.MarkResubmitted(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("MarkResubmitted() error = %v", err)
	}
	if p.Status != workflow.StatusRevisedProposal {
		t.Errorf("status = %q, want %q", p.Status, workflow.StatusRevisedProposal)
	}

	// Only Revision Required accepts a resubmission.
	if _, err := eng.MarkResubmitted(context.Background(), "prop-1"); err == nil {
		t.Error("MarkResubmitted() from Revised Proposal should fail")
	}
}

func TestPlanAssignmentDryRun(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusSentToEvaluators)
	ctx := context.Background()

	cs, warnings, err := eng.PlanAssignment(ctx, "prop-1", []string{"ev-3", "ev-1"}, nil, workflow.VisibilityName)
	if err != nil {
		t.Fatalf("PlanAssignment() error = %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one already-assigned warning for ev-1", warnings)
	}
	if len(cs.AssignedEvaluatorIDs) != 3 {
		t.Errorf("planned set = %v, want three ids", cs.AssignedEvaluatorIDs)
	}

	// Dry run: the stored proposal keeps its original assignments.
	stored, _ := mem.Proposals.Get(ctx, "prop-1")
	if len(stored.AssignedEvaluatorIDs) != 2 {
		t.Errorf("stored assignments = %v, want untouched", stored.AssignedEvaluatorIDs)
	}

	if _, _, err := eng.PlanAssignment(ctx, "prop-1", nil, nil, "public"); !workflow.IsValidation(err) {
		t.Errorf("error = %v, want validation failure for bad visibility", err)
	}
}

func TestEligibleEvaluatorsExcludesAssigned(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusSentToEvaluators)

	eligible, err := eng.EligibleEvaluators(context.Background(), "prop-1", "", "")
	if err != nil {
		t.Fatalf("EligibleEvaluators() error = %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "ev-3" {
		t.Errorf("eligible = %+v, want only ev-3", eligible)
	}
}

func TestFullReviewLifecycle(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedProposal(t, mem, workflow.StatusPending)
	ctx := context.Background()

	steps := []struct {
		name    string
		payload workflow.Payload
		want    workflow.Status
	}{
		{"assign", workflow.AssignToRnD{StaffID: "staff-1"}, workflow.StatusAssignedToRnD},
		{"forward", workflow.SendToEvaluators{
			EvaluatorIDs: []string{"ev-1", "ev-2"},
			DeadlineDays: 21,
			Visibility:   workflow.VisibilityBoth,
		}, workflow.StatusSentToEvaluators},
	}
	for _, step := range steps {
		result, err := eng.SubmitDecision(ctx, "prop-1", step.payload, "staff-1")
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if result.Proposal.Status != step.want {
			t.Fatalf("%s: status = %q, want %q", step.name, result.Proposal.Status, step.want)
		}
	}

	submitEvaluation(t, eng, "ev-1", workflow.RecommendApprove)
	submitEvaluation(t, eng, "ev-2", workflow.RecommendApprove)

	if _, err := eng.SubmitDecision(ctx, "prop-1", workflow.Endorse{Justification: "Unanimous approval."}, "staff-1"); err != nil {
		t.Fatalf("endorse: %v", err)
	}

	result, err := eng.SubmitDecision(ctx, "prop-1", workflow.Funding{
		Outcome: workflow.FundingOutcomeFunded,
		Remarks: "Funded in the spring round.",
	}, "council-1")
	if err != nil {
		t.Fatalf("funding: %v", err)
	}
	if result.Proposal.Status != workflow.StatusFunded {
		t.Fatalf("final status = %q, want %q", result.Proposal.Status, workflow.StatusFunded)
	}
	if !result.Proposal.Status.IsTerminal() {
		t.Error("funded proposal should be terminal")
	}

	// Terminal: nothing further is accepted.
	_, err = eng.SubmitDecision(ctx, "prop-1", workflow.RejectProposal{Explanation: "too late"}, "staff-1")
	var invalid *workflow.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("post-terminal decision error = %v, want InvalidTransitionError", err)
	}

	decisions, err := mem.Decisions.ListByProposal(ctx, "prop-1")
	if err != nil {
		t.Fatalf("ListByProposal() error = %v", err)
	}
	if len(decisions) != 4 {
		t.Errorf("decision log has %d entries, want 4", len(decisions))
	}
}

func assertStatusUnchanged(t *testing.T, mem *storage.Memory, want workflow.Status) {
	t.Helper()
	stored, err := mem.Proposals.Get(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != want {
		t.Errorf("stored status = %q, want unchanged %q", stored.Status, want)
	}
}
