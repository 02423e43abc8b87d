// Package storage persists workflow entities. The NATS-backed Store keeps
// proposals, the decision log, and evaluator decisions in JetStream KV
// buckets; Memory provides the same interfaces for tests and embedded use.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/reviewflow/workflow"
)

// Bucket names for each entity type.
const (
	BucketProposals   = "REVIEWFLOW_PROPOSALS"
	BucketDecisions   = "REVIEWFLOW_DECISIONS"
	BucketEvaluations = "REVIEWFLOW_EVALUATIONS"
)

// Store bundles the three entity stores backed by NATS JetStream KV.
type Store struct {
	Proposals   *Proposals
	Decisions   *Decisions
	Evaluations *Evaluations
}

// NewStore creates a Store, creating the KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	proposals, err := getOrCreateBucket(ctx, js, BucketProposals, "Proposals under review")
	if err != nil {
		return nil, fmt.Errorf("create proposals bucket: %w", err)
	}
	decisions, err := getOrCreateBucket(ctx, js, BucketDecisions, "Append-only decision log")
	if err != nil {
		return nil, fmt.Errorf("create decisions bucket: %w", err)
	}
	evaluations, err := getOrCreateBucket(ctx, js, BucketEvaluations, "Evaluator decisions")
	if err != nil {
		return nil, fmt.Errorf("create evaluations bucket: %w", err)
	}

	return &Store{
		Proposals:   &Proposals{kv: proposals},
		Decisions:   &Decisions{kv: decisions},
		Evaluations: &Evaluations{kv: evaluations},
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name, description string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: description,
		History:     5, // Keep last 5 revisions
	})
}

// Proposals stores proposals keyed by id.
type Proposals struct {
	kv jetstream.KeyValue
}

// Create stores a new proposal. Fails if the id is already taken.
func (s *Proposals) Create(ctx context.Context, p *workflow.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	if _, err := s.kv.Create(ctx, p.ID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
		}
		return fmt.Errorf("store proposal: %w", err)
	}
	return nil
}

// Get retrieves a proposal by id.
func (s *Proposals) Get(ctx context.Context, id string) (*workflow.Proposal, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrProposalNotFound, id)
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	var p workflow.Proposal
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal proposal: %w", err)
	}
	return &p, nil
}

// Put stores the updated proposal.
func (s *Proposals) Put(ctx context.Context, p *workflow.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	if _, err := s.kv.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	return nil
}

// List returns all proposals, optionally filtered by status.
// Entries that fail to load or decode are skipped.
func (s *Proposals) List(ctx context.Context, status workflow.Status) ([]*workflow.Proposal, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list proposal keys: %w", err)
	}

	proposals := make([]*workflow.Proposal, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var p workflow.Proposal
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		proposals = append(proposals, &p)
	}
	return proposals, nil
}

// Decisions stores the append-only decision log, keyed by proposal id and
// decision id so a proposal's history can be listed by subject filter.
type Decisions struct {
	kv jetstream.KeyValue
}

// Append stores a decision log entry.
func (s *Decisions) Append(ctx context.Context, d *workflow.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	if _, err := s.kv.Create(ctx, compoundKey(d.ProposalID, d.ID), data); err != nil {
		return fmt.Errorf("store decision: %w", err)
	}
	return nil
}

// ListByProposal returns the decision log for a proposal, oldest first.
func (s *Decisions) ListByProposal(ctx context.Context, proposalID string) ([]*workflow.Decision, error) {
	lister, err := s.kv.ListKeysFiltered(ctx, compoundKey(proposalID, "*"))
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list decision keys: %w", err)
	}

	var decisions []*workflow.Decision
	for key := range lister.Keys() {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var d workflow.Decision
		if err := json.Unmarshal(entry.Value(), &d); err != nil {
			continue
		}
		decisions = append(decisions, &d)
	}
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].ReviewedDate.Before(decisions[j].ReviewedDate)
	})
	return decisions, nil
}

// Evaluations stores evaluator decisions, keyed by proposal id and
// evaluator id; the key shape enforces one decision per evaluator.
type Evaluations struct {
	kv jetstream.KeyValue
}

// Put stores an evaluator decision.
func (s *Evaluations) Put(ctx context.Context, ed *workflow.EvaluatorDecision) error {
	data, err := json.Marshal(ed)
	if err != nil {
		return fmt.Errorf("marshal evaluator decision: %w", err)
	}
	if _, err := s.kv.Create(ctx, compoundKey(ed.ProposalID, ed.EvaluatorID), data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("%w: %s", workflow.ErrDuplicateEvaluation, ed.EvaluatorID)
		}
		return fmt.Errorf("store evaluator decision: %w", err)
	}
	return nil
}

// ListByProposal returns the evaluator decisions for a proposal, oldest first.
func (s *Evaluations) ListByProposal(ctx context.Context, proposalID string) ([]workflow.EvaluatorDecision, error) {
	lister, err := s.kv.ListKeysFiltered(ctx, compoundKey(proposalID, "*"))
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list evaluation keys: %w", err)
	}

	var evaluations []workflow.EvaluatorDecision
	for key := range lister.Keys() {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var ed workflow.EvaluatorDecision
		if err := json.Unmarshal(entry.Value(), &ed); err != nil {
			continue
		}
		evaluations = append(evaluations, ed)
	}
	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].SubmittedDate.Before(evaluations[j].SubmittedDate)
	})
	return evaluations, nil
}

// compoundKey builds a two-token KV key so entries can be filtered per
// proposal with a subject wildcard.
func compoundKey(proposalID, suffix string) string {
	return fmt.Sprintf("%s.%s", proposalID, suffix)
}
