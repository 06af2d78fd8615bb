package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/gas-monitor/pkg/types"
)

const (
	DefaultQueueSize   int    = 256
	DefaultMaxAttempts uint64 = 5
)

// Job is the persistence work for one ingested message.
type Job struct {
	Reading types.Reading
	Alert   *types.Alert
}

// RecordStore is the part of the persistence gateway the writer needs.
type RecordStore interface {
	SaveReading(ctx context.Context, r types.Reading) error
	SaveAlert(ctx context.Context, a types.Alert) error
}

// LastValueStore receives every reading after it has been written.
type LastValueStore interface {
	Set(ctx context.Context, r types.Reading) error
}

type WriterOption func(*Writer)

func WithQueueSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.queue = make(chan Job, n)
		}
	}
}

// WithRetryPolicy replaces the exponential backoff used between attempts.
func WithRetryPolicy(maxAttempts uint64, newBackOff func() backoff.BackOff) WriterOption {
	return func(w *Writer) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
		if newBackOff != nil {
			w.newBackOff = newBackOff
		}
	}
}

func WithLastValueStore(s LastValueStore) WriterOption {
	return func(w *Writer) {
		w.lastValue = s
	}
}

// Writer persists jobs from a bounded queue using a single goroutine, so records reach
// the store in the order they were enqueued.
type Writer struct {
	store       RecordStore
	lastValue   LastValueStore
	queue       chan Job
	maxAttempts uint64
	newBackOff  func() backoff.BackOff

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	log zerolog.Logger
}

func NewWriter(store RecordStore, opts ...WriterOption) *Writer {
	w := &Writer{
		store:       store,
		queue:       make(chan Job, DefaultQueueSize),
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  defaultBackOff,
		done:        make(chan struct{}),
		log:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Start launches the writer goroutine. Queued jobs are still written after ctx is
// cancelled, Close waits for them.
func (w *Writer) Start(ctx context.Context) {
	w.log = logging.GetFromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer close(w.done)

		for job := range w.queue {
			w.write(ctx, job)
		}
	}()
}

// Enqueue hands a job to the writer without blocking. It reports false when the job
// was dropped because the queue is full or the writer is closed.
func (w *Writer) Enqueue(job Job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}

	select {
	case w.queue <- job:
		return true
	default:
		metrics.PersistDropped.Inc()
		w.log.Warn().Str("reading", job.Reading.ID).Int("queued", len(w.queue)).Msg("write queue full, dropping persistence job")
		return false
	}
}

// Close stops accepting jobs and waits until the queue has been drained or ctx ends.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) write(ctx context.Context, job Job) {
	readingSaved := w.save(ctx, "reading", func(ctx context.Context) error {
		return w.store.SaveReading(ctx, job.Reading)
	})

	if job.Alert != nil {
		w.save(ctx, "alert", func(ctx context.Context) error {
			return w.store.SaveAlert(ctx, *job.Alert)
		})
	}

	if readingSaved && w.lastValue != nil {
		if err := w.lastValue.Set(ctx, job.Reading); err != nil {
			w.log.Warn().Err(err).Msg("failed to update last value")
		}
	}
}

func (w *Writer) save(ctx context.Context, record string, fn func(context.Context) error) bool {
	attempt := 0

	operation := func() error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, database.ErrInvalidRecord) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), w.maxAttempts-1), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, next time.Duration) {
		w.log.Debug().Err(err).Str("record", record).Int("attempt", attempt).Msgf("write failed, retrying in %s", next.Round(time.Millisecond))
	})

	if err != nil {
		metrics.PersistFailed.WithLabelValues(record).Inc()
		w.log.Error().Err(err).Str("record", record).Int("attempts", attempt).Msg("giving up on write")
		return false
	}

	metrics.PersistSucceeded.WithLabelValues(record).Inc()
	return true
}
