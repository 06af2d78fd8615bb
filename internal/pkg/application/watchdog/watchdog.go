package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
)

const DefaultTimeout time.Duration = time.Minute

// Watchdog notices when the sensor stops reporting. Observed is called for every decoded
// reading, Watch flags the sensor as silent once Timeout has passed without one.
type Watchdog struct {
	timeout  time.Duration
	now      func() time.Time
	started  time.Time
	lastSeen atomic.Int64
	silent   atomic.Bool
}

type Option func(*Watchdog)

func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) {
		w.now = now
	}
}

func New(timeout time.Duration, opts ...Option) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	w := &Watchdog{
		timeout: timeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.started = w.now().UTC()

	return w
}

func (w *Watchdog) Observed(t time.Time) {
	w.lastSeen.Store(t.UnixNano())
}

// LastObserved returns the time of the latest reading, if any has arrived.
func (w *Watchdog) LastObserved() (time.Time, bool) {
	ns := w.lastSeen.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}

func (w *Watchdog) Silent() bool {
	return w.silent.Load()
}

// Check updates the silent flag and returns how long to wait before the next check.
func (w *Watchdog) Check(ctx context.Context) time.Duration {
	log := logging.GetFromContext(ctx)

	now := w.now().UTC()
	last, ok := w.LastObserved()
	if !ok {
		last = w.started
	}

	silentFor := now.Sub(last)

	if silentFor >= w.timeout {
		if !w.silent.Swap(true) {
			metrics.SensorSilent.Set(1)
			log.Warn().Time("last_reading", last).Msgf("no reading received for %s", silentFor.Round(time.Second))
		}
		return w.timeout
	}

	if w.silent.Swap(false) {
		metrics.SensorSilent.Set(0)
		log.Info().Msg("sensor is reporting again")
	}

	return timeToNextCheck(last, now, w.timeout)
}

// Watch runs Check until ctx is done.
func (w *Watchdog) Watch(ctx context.Context) {
	timer := time.NewTimer(w.Check(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(w.Check(ctx))
		}
	}
}

func timeToNextCheck(last, now time.Time, timeout time.Duration) time.Duration {
	next := last.Add(timeout).Sub(now)

	if next <= 0 || next > timeout {
		return timeout
	}

	return next
}
