// Package api exposes the workflow engine operations over HTTP.
// It is a thin transport: decisions are decoded into typed payloads,
// handed to the engine, and the engine's structured errors are mapped to
// status codes. Authentication is assumed done by a fronting layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/reviewflow/directory"
	"github.com/c360studio/reviewflow/engine"
	"github.com/c360studio/reviewflow/notify"
	"github.com/c360studio/reviewflow/workflow"
	"github.com/c360studio/reviewflow/workflow/assignment"
)

// maxBodySize limits request bodies to prevent DoS.
const maxBodySize = 1 << 20 // 1 MB

// ProposalReader serves the read endpoints.
type ProposalReader interface {
	Get(ctx context.Context, id string) (*workflow.Proposal, error)
	List(ctx context.Context, status workflow.Status) ([]*workflow.Proposal, error)
}

// Handler provides HTTP endpoints for the review workflow.
type Handler struct {
	engine    *engine.Engine
	proposals ProposalReader
	dir       directory.Directory
	archive   directory.RejectionArchive
	publisher notify.Publisher
	metrics   *Metrics
	logger    *slog.Logger
}

// WithArchive attaches a rejection archive for the summary read endpoints.
func (h *Handler) WithArchive(archive directory.RejectionArchive) *Handler {
	h.archive = archive
	return h
}

// NewHandler creates an HTTP handler over the engine.
func NewHandler(eng *engine.Engine, proposals ProposalReader, dir directory.Directory, publisher notify.Publisher, metrics *Metrics, logger *slog.Logger) *Handler {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:    eng,
		proposals: proposals,
		dir:       dir,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterHTTPHandlers registers the review API endpoints.
func (h *Handler) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /proposals", h.instrument("list_proposals", h.handleListProposals))
	mux.HandleFunc("GET /proposals/{id}", h.instrument("get_proposal", h.handleGetProposal))
	mux.HandleFunc("POST /proposals/{id}/decisions", h.instrument("submit_decision", h.handleSubmitDecision))
	mux.HandleFunc("POST /proposals/{id}/evaluations", h.instrument("submit_evaluation", h.handleSubmitEvaluation))
	mux.HandleFunc("GET /proposals/{id}/endorsement", h.instrument("endorsement_summary", h.handleEndorsementSummary))
	mux.HandleFunc("POST /proposals/{id}/assignment-plan", h.instrument("plan_assignment", h.handlePlanAssignment))
	mux.HandleFunc("POST /proposals/{id}/resubmit", h.instrument("resubmit", h.handleResubmit))
	mux.HandleFunc("GET /proposals/{id}/rejection-summary", h.instrument("rejection_summary", h.handleRejectionSummary))
	mux.HandleFunc("GET /proposals/{id}/revision-summary", h.instrument("revision_summary", h.handleRevisionSummary))
	mux.HandleFunc("GET /proposals/{id}/evaluators", h.instrument("eligible_evaluators", h.handleEligibleEvaluators))
	mux.HandleFunc("GET /evaluators", h.instrument("list_evaluators", h.handleListEvaluators))
	mux.HandleFunc("GET /departments", h.instrument("list_departments", h.handleListDepartments))
	mux.HandleFunc("GET /rd-staff", h.instrument("list_rd_staff", h.handleListRdStaff))
}

func (h *Handler) instrument(op string, next http.HandlerFunc) http.HandlerFunc {
	if h.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		h.metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// DecisionRequest is the body for POST /proposals/{id}/decisions.
type DecisionRequest struct {
	Type       workflow.DecisionType `json:"type"`
	ReviewedBy string                `json:"reviewed_by"`
	Payload    json.RawMessage       `json:"payload"`
}

func (h *Handler) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReviewedBy == "" {
		h.writeError(w, http.StatusBadRequest, "reviewed_by is required")
		return
	}

	payload, err := workflow.DecodePayload(req.Type, req.Payload)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.SubmitDecision(ctx, id, payload, req.ReviewedBy)
	if err != nil {
		h.countDecision(req.Type, "rejected")
		h.writeEngineError(w, err)
		return
	}
	h.countDecision(req.Type, "accepted")

	// Notification failures don't roll back the decision.
	if err := h.publisher.Publish(ctx, result.Effects); err != nil {
		h.logger.Warn("Failed to publish notifications",
			slog.String("proposal_id", id),
			slog.String("error", err.Error()))
	}

	h.writeJSON(w, http.StatusOK, result)
}

// EvaluationRequest is the body for POST /proposals/{id}/evaluations.
type EvaluationRequest struct {
	EvaluatorID   string                  `json:"evaluator_id"`
	EvaluatorName string                  `json:"evaluator_name,omitempty"`
	Decision      workflow.Recommendation `json:"decision"`
	Comments      string                  `json:"comments"`
	Ratings       map[string]int          `json:"ratings,omitempty"`
}

func (h *Handler) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.engine.SubmitEvaluatorDecision(ctx, &workflow.EvaluatorDecision{
		ProposalID:    id,
		EvaluatorID:   req.EvaluatorID,
		EvaluatorName: req.EvaluatorName,
		Decision:      req.Decision,
		Comments:      req.Comments,
		Ratings:       req.Ratings,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.EvaluationsTotal.WithLabelValues(string(req.Decision)).Inc()
	}

	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleEndorsementSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.GetEndorsementSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// AssignmentPlanRequest is the body for POST /proposals/{id}/assignment-plan.
type AssignmentPlanRequest struct {
	Add        []string            `json:"add,omitempty"`
	Remove     []string            `json:"remove,omitempty"`
	Visibility workflow.Visibility `json:"visibility"`
}

// AssignmentPlanResponse carries the planned change-set and any conflicts.
type AssignmentPlanResponse struct {
	ChangeSet assignment.ChangeSet `json:"change_set"`
	Warnings  []assignment.Warning `json:"warnings,omitempty"`
}

func (h *Handler) handlePlanAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req AssignmentPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cs, warnings, err := h.engine.PlanAssignment(ctx, id, req.Add, req.Remove, req.Visibility)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AssignmentPlanResponse{ChangeSet: cs, Warnings: warnings})
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.engine.MarkResubmitted(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

func (h *Handler) handleRejectionSummary(w http.ResponseWriter, r *http.Request) {
	h.serveArchiveSummary(w, r, func(ctx context.Context, id string) (*directory.RejectionSummary, error) {
		return h.archive.FetchRejectionSummary(ctx, id)
	})
}

func (h *Handler) handleRevisionSummary(w http.ResponseWriter, r *http.Request) {
	h.serveArchiveSummary(w, r, func(ctx context.Context, id string) (*directory.RejectionSummary, error) {
		return h.archive.FetchRevisionSummary(ctx, id)
	})
}

func (h *Handler) serveArchiveSummary(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) (*directory.RejectionSummary, error)) {
	if h.archive == nil {
		h.writeError(w, http.StatusNotFound, "summary archive not available")
		return
	}
	id := r.PathValue("id")
	if _, err := h.proposals.Get(r.Context(), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	summary, err := fetch(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to fetch summary", "proposal_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to fetch summary")
		return
	}
	if summary == nil {
		h.writeError(w, http.StatusNotFound, "no summary recorded")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.proposals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, workflow.ErrProposalNotFound) {
			h.writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		h.logger.Error("Failed to load proposal", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load proposal")
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// ListProposalsResponse is the response for GET /proposals.
type ListProposalsResponse struct {
	Proposals []*workflow.Proposal `json:"proposals"`
	Total     int                  `json:"total"`
}

func (h *Handler) handleListProposals(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	var status workflow.Status
	if statusParam != "" {
		status = workflow.Status(statusParam)
		if !status.IsValid() {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", statusParam))
			return
		}
	}

	proposals, err := h.proposals.List(r.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list proposals", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	h.writeJSON(w, http.StatusOK, ListProposalsResponse{Proposals: proposals, Total: len(proposals)})
}

func (h *Handler) handleEligibleEvaluators(w http.ResponseWriter, r *http.Request) {
	evaluators, err := h.engine.EligibleEvaluators(r.Context(), r.PathValue("id"),
		r.URL.Query().Get("department"), r.URL.Query().Get("q"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, evaluators)
}

func (h *Handler) handleListEvaluators(w http.ResponseWriter, r *http.Request) {
	evaluators, err := h.dir.ListEvaluators(r.Context())
	if err != nil {
		h.logger.Error("Failed to list evaluators", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list evaluators")
		return
	}
	filtered := directory.Filter(evaluators, directory.FilterOptions{
		Department: r.URL.Query().Get("department"),
		SearchText: r.URL.Query().Get("q"),
	})
	h.writeJSON(w, http.StatusOK, filtered)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.dir.ListDepartments(r.Context())
	if err != nil {
		h.logger.Error("Failed to list departments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list departments")
		return
	}
	h.writeJSON(w, http.StatusOK, departments)
}

func (h *Handler) handleListRdStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.dir.ListRdStaff(r.Context())
	if err != nil {
		h.logger.Error("Failed to list R&D staff", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list R&D staff")
		return
	}
	h.writeJSON(w, http.StatusOK, staff)
}

func (h *Handler) countDecision(t workflow.DecisionType, outcome string) {
	if h.metrics != nil {
		h.metrics.DecisionsTotal.WithLabelValues(string(t), outcome).Inc()
	}
}

// writeEngineError maps the engine's error taxonomy to HTTP status codes,
// carrying the structured detail through to the body.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var invalid *workflow.InvalidTransitionError
	var quorum *workflow.QuorumNotMetError

	switch {
	case workflow.IsValidation(err):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"detail": validationDetail(err),
		})
	case errors.As(err, &invalid):
		if h.metrics != nil {
			h.metrics.InvalidTransitionsTotal.Inc()
		}
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":    err.Error(),
			"status":   invalid.Status,
			"decision": invalid.Decision,
		})
	case errors.As(err, &quorum):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"have":  quorum.Have,
			"need":  quorum.Need,
		})
	case errors.Is(err, workflow.ErrProposalNotFound):
		h.writeError(w, http.StatusNotFound, "proposal not found")
	case errors.Is(err, workflow.ErrEvaluatorNotAssigned),
		errors.Is(err, workflow.ErrDuplicateEvaluation),
		errors.Is(err, workflow.ErrStaffNotInPool),
		errors.Is(err, workflow.ErrEvaluatorUnknown):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Engine operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func validationDetail(err error) []map[string]string {
	var multi workflow.ValidationErrors
	if errors.As(err, &multi) {
		detail := make([]map[string]string, 0, len(multi))
		for _, ve := range multi {
			detail = append(detail, map[string]string{"field": ve.Field, "message": ve.Message})
		}
		return detail
	}
	var single *workflow.ValidationError
	if errors.As(err, &single) {
		return []map[string]string{{"field": single.Field, "message": single.Message}}
	}
	return []map[string]string{{"field": "", "message": strings.TrimSpace(err.Error())}}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", "error", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
