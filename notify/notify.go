// Package notify publishes engine side-effect requests as NATS messages.
// Subjects follow "reviewflow.notify.<audience>.<proposal-id>" so consumers
// can subscribe per audience or per proposal.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/reviewflow/engine"
)

// SubjectPrefix is the root of all notification subjects.
const SubjectPrefix = "reviewflow.notify"

// Notification is the wire payload published for an effect.
type Notification struct {
	Kind       engine.EffectKind `json:"kind"`
	ProposalID string            `json:"proposal_id"`
	Recipients []string          `json:"recipients,omitempty"`
	EmittedAt  time.Time         `json:"emitted_at"`
}

// Publisher publishes effect notifications.
type Publisher interface {
	Publish(ctx context.Context, effects []engine.Effect) error
}

// NATSPublisher publishes notifications over a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher creates a publisher over the given connection.
func NewNATSPublisher(nc *nats.Conn, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

// Publish sends one message per effect. Publishing is best-effort per
// effect: the first failure is returned, but earlier effects stay published.
func (p *NATSPublisher) Publish(ctx context.Context, effects []engine.Effect) error {
	for _, effect := range effects {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := Notification{
			Kind:       effect.Kind,
			ProposalID: effect.ProposalID,
			Recipients: effect.Recipients,
			EmittedAt:  time.Now().UTC(),
		}
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}

		subject := Subject(effect)
		if err := p.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		p.logger.Debug("Notification published",
			slog.String("subject", subject),
			slog.String("proposal_id", effect.ProposalID))
	}
	return nil
}

// Subject builds the notification subject for an effect.
func Subject(effect engine.Effect) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, audience(effect.Kind), effect.ProposalID)
}

func audience(kind engine.EffectKind) string {
	switch kind {
	case engine.EffectNotifyEvaluators:
		return "evaluators"
	case engine.EffectNotifyProponent:
		return "proponent"
	case engine.EffectNotifyStaff:
		return "staff"
	case engine.EffectNotifyCouncil:
		return "council"
	default:
		return "unknown"
	}
}

// Nop is a publisher that discards all effects, for tests and offline runs.
type Nop struct{}

// Publish discards the effects.
func (Nop) Publish(context.Context, []engine.Effect) error { return nil }
