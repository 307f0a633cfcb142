package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/quailyquaily/inboxdraft"

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	seen      metric.Int64Counter
	posted    metric.Int64Counter
	genErrors metric.Int64Counter
	cycles    metric.Int64Counter
}

// NewMetrics registers the counters on meter, or on the global meter
// provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	seen, err := meter.Int64Counter("inboxdraft.messages.seen",
		metric.WithDescription("Messages added to the processed set"))
	if err != nil {
		return nil, err
	}
	posted, err := meter.Int64Counter("inboxdraft.drafts.posted",
		metric.WithDescription("Draft posts sent to threads"))
	if err != nil {
		return nil, err
	}
	genErrors, err := meter.Int64Counter("inboxdraft.generation.errors",
		metric.WithDescription("Generation failures surfaced as placeholder drafts"))
	if err != nil {
		return nil, err
	}
	cycles, err := meter.Int64Counter("inboxdraft.cycles",
		metric.WithDescription("Completed poll cycles"))
	if err != nil {
		return nil, err
	}
	return &Metrics{seen: seen, posted: posted, genErrors: genErrors, cycles: cycles}, nil
}

func (m *Metrics) MessageSeen(ctx context.Context) {
	if m == nil {
		return
	}
	m.seen.Add(ctx, 1)
}

func (m *Metrics) DraftPosted(ctx context.Context, command, priority string) {
	if m == nil {
		return
	}
	m.posted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("priority", priority),
	))
}

func (m *Metrics) GenerationError(ctx context.Context, rateLimited bool) {
	if m == nil {
		return
	}
	m.genErrors.Add(ctx, 1, metric.WithAttributes(attribute.Bool("rate_limited", rateLimited)))
}

func (m *Metrics) Cycle(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.cycles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}
