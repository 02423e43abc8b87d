package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/reviewflow/workflow"
)

// Memory is an in-process store with the same shape as the NATS Store.
// It backs tests and single-process embedding.
type Memory struct {
	Proposals   *MemoryProposals
	Decisions   *MemoryDecisions
	Evaluations *MemoryEvaluations
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Proposals:   &MemoryProposals{byID: make(map[string]*workflow.Proposal)},
		Decisions:   &MemoryDecisions{byProposal: make(map[string][]*workflow.Decision)},
		Evaluations: &MemoryEvaluations{byProposal: make(map[string][]workflow.EvaluatorDecision)},
	}
}

// MemoryProposals stores proposals in a map.
type MemoryProposals struct {
	mu   sync.RWMutex
	byID map[string]*workflow.Proposal
}

// Create stores a new proposal. Fails if the id is already taken.
func (s *MemoryProposals) Create(_ context.Context, p *workflow.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
	}
	s.byID[p.ID] = p.Clone()
	return nil
}

// Get retrieves a proposal by id.
func (s *MemoryProposals) Get(_ context.Context, id string) (*workflow.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrProposalNotFound, id)
	}
	return p.Clone(), nil
}

// Put stores the updated proposal.
func (s *MemoryProposals) Put(_ context.Context, p *workflow.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p.Clone()
	return nil
}

// List returns all proposals, optionally filtered by status, ordered by id.
func (s *MemoryProposals) List(_ context.Context, status workflow.Status) ([]*workflow.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposals := make([]*workflow.Proposal, 0, len(s.byID))
	for _, p := range s.byID {
		if status != "" && p.Status != status {
			continue
		}
		proposals = append(proposals, p.Clone())
	}
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })
	return proposals, nil
}

// MemoryDecisions stores the decision log per proposal.
type MemoryDecisions struct {
	mu         sync.RWMutex
	byProposal map[string][]*workflow.Decision
}

// Append stores a decision log entry.
func (s *MemoryDecisions) Append(_ context.Context, d *workflow.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byProposal[d.ProposalID] = append(s.byProposal[d.ProposalID], d)
	return nil
}

// ListByProposal returns the decision log for a proposal in insertion order.
func (s *MemoryDecisions) ListByProposal(_ context.Context, proposalID string) ([]*workflow.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*workflow.Decision(nil), s.byProposal[proposalID]...), nil
}

// MemoryEvaluations stores evaluator decisions per proposal.
type MemoryEvaluations struct {
	mu         sync.RWMutex
	byProposal map[string][]workflow.EvaluatorDecision
}

// Put stores an evaluator decision; one per evaluator per proposal.
func (s *MemoryEvaluations) Put(_ context.Context, ed *workflow.EvaluatorDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.byProposal[ed.ProposalID] {
		if prev.EvaluatorID == ed.EvaluatorID {
			return fmt.Errorf("%w: %s", workflow.ErrDuplicateEvaluation, ed.EvaluatorID)
		}
	}
	s.byProposal[ed.ProposalID] = append(s.byProposal[ed.ProposalID], *ed)
	return nil
}

// ListByProposal returns the evaluator decisions for a proposal in
// submission order.
func (s *MemoryEvaluations) ListByProposal(_ context.Context, proposalID string) ([]workflow.EvaluatorDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]workflow.EvaluatorDecision(nil), s.byProposal[proposalID]...), nil
}
