package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Lifecycle event names published on the bus for downstream consumers
// (employer dashboards, notification fan-out).
const (
	EventSubmissionStarted   = "submission.started"
	EventSubmissionSubmitted = "submission.submitted"
	EventSubmissionOptedOut  = "submission.opted_out"
	EventSubmissionExpired   = "submission.expired"
	EventInterviewCompleted  = "interview.completed"
	EventInterviewFailed     = "interview.failed"
)

// EventPublisher emits lifecycle events. Publishing is best-effort: a down
// bus must never fail the candidate-facing request.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type natsEventPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

type lifecycleEvent struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// NewNATSEventPublisher builds a publisher over the given NATS connection.
func NewNATSEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "hireloop"
	}

	return &natsEventPublisher{
		conn:        conn,
		subjectBase: strings.ReplaceAll(subjectBase, ":", "."),
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) Publish(_ context.Context, event string, payload interface{}) {
	if p.conn == nil {
		return
	}

	raw, err := json.Marshal(lifecycleEvent{Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event).Msg("failed to encode lifecycle event")
		return
	}

	subject := p.subjectBase + "." + event
	if err := p.conn.Publish(subject, raw); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish lifecycle event")
	}
}

type nopEventPublisher struct{}

// NewNopEventPublisher returns a publisher that drops every event. Used when
// no bus is configured and in tests.
func NewNopEventPublisher() EventPublisher {
	return nopEventPublisher{}
}

func (nopEventPublisher) Publish(context.Context, string, interface{}) {}
