package ingestion

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diwise/gas-monitor/internal/pkg/application/classifier"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/tracing"
	"github.com/diwise/gas-monitor/pkg/types"
)

var tracer = otel.Tracer("gas-monitor/ingestion")

// Broadcaster fans a frame out to live subscribers without blocking.
type Broadcaster interface {
	Broadcast(frame []byte) int
}

// Enqueuer accepts persistence jobs without blocking.
type Enqueuer interface {
	Enqueue(job Job) bool
}

// Observer is told the receipt time of every reading that decoded.
type Observer interface {
	Observed(t time.Time)
}

type Option func(*Pipeline)

// WithClock replaces time.Now as the source of reading and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// Pipeline turns broker payloads into stored readings, alerts and live frames.
// Messages are handled one at a time in the order they arrive.
type Pipeline struct {
	deviceID    string
	writer      Enqueuer
	broadcaster Broadcaster
	observer    Observer
	now         func() time.Time
}

func NewPipeline(deviceID string, writer Enqueuer, broadcaster Broadcaster, opts ...Option) *Pipeline {
	p := &Pipeline{
		deviceID:    deviceID,
		writer:      writer,
		broadcaster: broadcaster,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run consumes messages until the channel is closed or ctx is done.
func (p *Pipeline) Run(ctx context.Context, messages <-chan []byte) error {
	log := logging.GetFromContext(ctx)
	log.Info().Str("device", p.deviceID).Msg("ingestion pipeline started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("ingestion pipeline stopped")
			return nil
		case payload, ok := <-messages:
			if !ok {
				log.Info().Msg("message channel closed, ingestion pipeline stopped")
				return nil
			}
			// errors are logged and counted by Handle, the loop moves on to the next message
			_ = p.Handle(ctx, payload)
		}
	}
}

// Handle processes a single payload.
func (p *Pipeline) Handle(ctx context.Context, payload []byte) (err error) {
	ctx, span := tracer.Start(ctx, "handle-message")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)
	metrics.MessagesReceived.Inc()

	observedAt := p.now().UTC()

	value, err := Decode(payload)
	if err != nil {
		metrics.MessagesMalformed.Inc()
		log.Warn().Err(err).Msg("dropping message")
		return err
	}

	if p.observer != nil {
		p.observer.Observed(observedAt)
	}

	tier := classifier.Classify(value)
	metrics.ReadingsByLevel.WithLabelValues(tier.Level).Inc()

	span.SetAttributes(
		attribute.Int64("value", value),
		attribute.String("level", tier.Level),
	)

	if classifier.BelowFloor(value) {
		log.Debug().Int64("value", value).Msgf("value below sensor floor, classified as %s", tier.Level)
	}

	job := Job{
		Reading: types.Reading{
			ID:         database.NewID(),
			DeviceID:   p.deviceID,
			Value:      value,
			ObservedAt: observedAt,
		},
	}

	if tier.IsAlert() {
		createdAt := p.now().UTC()
		if createdAt.Before(observedAt) {
			createdAt = observedAt
		}

		job.Alert = &types.Alert{
			ID:        database.NewID(),
			DeviceID:  p.deviceID,
			TierRank:  tier.Rank,
			Level:     tier.Level,
			Value:     value,
			Message:   tier.Message,
			CreatedAt: createdAt,
		}

		log.Info().Int64("value", value).Str("level", tier.Level).Msg(tier.Message)
	}

	p.writer.Enqueue(job)

	update := types.LiveUpdate{
		Value:     value,
		Timestamp: observedAt.Format(types.TimestampLayout),
		Level:     tier.Level,
	}
	if tier.IsAlert() {
		update.Message = tier.Message
	}

	frame, err := update.Frame(tier.IsAlert())
	if err != nil {
		log.Error().Err(err).Msg("failed to encode live update")
		return err
	}

	delivered := p.broadcaster.Broadcast(frame)
	metrics.FramesBroadcast.Inc()

	log.Debug().Int64("value", value).Str("level", tier.Level).Int("subscribers", delivered).Msg("reading handled")

	return nil
}
