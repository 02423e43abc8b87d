package directory

import (
	"context"
	"time"
)

// RejectionSummary is the archived explanation behind a rejection or
// revision decision, displayed to the proponent by the calling layer.
type RejectionSummary struct {
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RejectionArchive serves archived rejection and revision explanations.
// Callers consult it when rendering a rejected or revision-required
// proposal; the state machine never reads it.
type RejectionArchive interface {
	FetchRejectionSummary(ctx context.Context, proposalID string) (*RejectionSummary, error)
	FetchRevisionSummary(ctx context.Context, proposalID string) (*RejectionSummary, error)
}
