package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/diwise/gas-monitor/internal/pkg/application/classifier"
	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/gas-monitor/pkg/types"
)

func TestEveryValidMessageIsBroadcastAndPersistedInOrder(t *testing.T) {
	is, ctx, store, registry, writer, pipeline := testSetup(t)
	sub := registry.Register(subscribers.WithBufferSize(200))

	const N = 100

	messages := make(chan []byte, N)
	for i := 0; i < N; i++ {
		messages <- []byte(strconv.Itoa(300 + i*20))
	}
	close(messages)

	is.NoErr(pipeline.Run(ctx, messages))
	is.NoErr(writer.Close(ctx))

	for i := 0; i < N; i++ {
		frame := receive(t, sub)
		is.Equal(decodeFrame(t, frame).Value, int64(300+i*20))
	}

	saved := store.SaveReadingCalls()
	is.Equal(len(saved), N)
	for i, call := range saved {
		is.Equal(call.R.Value, int64(300+i*20))
		is.Equal(call.R.DeviceID, "esp32_01")
		is.True(call.R.ID != "")
	}
}

func TestAlertIsCreatedOnlyForAlertTiers(t *testing.T) {
	is, ctx, store, _, writer, pipeline := testSetup(t)

	values := []int64{300, 450, 500, 501, 900, 901, 1500, 2000, 2001, 2500, 10}
	for _, v := range values {
		is.NoErr(pipeline.Handle(ctx, []byte(strconv.FormatInt(v, 10))))
	}
	is.NoErr(writer.Close(ctx))

	readings := store.SaveReadingCalls()
	alerts := store.SaveAlertCalls()
	is.Equal(len(readings), len(values))

	expectedAlerts := 0
	for _, v := range values {
		if classifier.Classify(v).IsAlert() {
			expectedAlerts++
		}
	}
	is.Equal(len(alerts), expectedAlerts)

	observed := map[int64]time.Time{}
	for _, r := range readings {
		observed[r.R.Value] = r.R.ObservedAt
	}

	for _, a := range alerts {
		rank, level := classifier.Rank(a.A.Value)
		is.True(rank >= classifier.AlertThreshold)
		is.Equal(a.A.TierRank, rank)
		is.Equal(a.A.Level, level)
		is.True(!a.A.CreatedAt.Before(observed[a.A.Value])) // alert created before its reading was observed
	}
}

func TestMalformedMessageIsDroppedAndNextMessageIsProcessed(t *testing.T) {
	is, ctx, store, registry, writer, pipeline := testSetup(t)
	sub := registry.Register()

	malformed := testutil.ToFloat64(metrics.MessagesMalformed)

	messages := make(chan []byte, 2)
	messages <- []byte("abc")
	messages <- []byte("450")
	close(messages)

	is.NoErr(pipeline.Run(ctx, messages))
	is.NoErr(writer.Close(ctx))

	is.Equal(testutil.ToFloat64(metrics.MessagesMalformed)-malformed, float64(1))

	frame := receive(t, sub)
	is.Equal(decodeFrame(t, frame).Value, int64(450))
	is.Equal(len(sub.Outbound()), 0)

	is.Equal(len(store.SaveReadingCalls()), 1)
}

func TestHandleReturnsMalformedPayloadError(t *testing.T) {
	is, ctx, _, _, _, pipeline := testSetup(t)

	err := pipeline.Handle(ctx, []byte("abc"))
	is.True(errors.Is(err, ErrMalformedPayload))
}

func TestSafeAndDangerFrames(t *testing.T) {
	is, ctx, store, registry, writer, pipeline := testSetup(t)
	sub := registry.Register()

	is.NoErr(pipeline.Handle(ctx, []byte("450")))
	is.NoErr(pipeline.Handle(ctx, []byte("1500")))
	is.NoErr(writer.Close(ctx))

	safe := receive(t, sub)
	is.True(!bytes.HasPrefix(safe, []byte(types.AlertPrefix)))
	is.Equal(string(safe), `{"value":450,"timestamp":"2026-10-16T10:00:00.000Z","level":"SAFE"}`)

	danger := receive(t, sub)
	is.True(bytes.HasPrefix(danger, []byte(types.AlertPrefix)))
	update := decodeFrame(t, danger)
	is.Equal(update.Level, classifier.LevelDanger)
	is.Equal(update.Message, "DANGER! Gas leak detected!")
	is.Equal(update.Value, int64(1500))

	alerts := store.SaveAlertCalls()
	is.Equal(len(alerts), 1)
	is.Equal(alerts[0].A.TierRank, 3)
	is.Equal(alerts[0].A.Value, int64(1500))
}

func TestPersistenceFailureDoesNotPreventBroadcast(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	store := &database.GatewayMock{
		SaveReadingFunc: func(ctx context.Context, r types.Reading) error {
			return errors.New("store unavailable")
		},
		SaveAlertFunc: func(ctx context.Context, a types.Alert) error {
			return errors.New("store unavailable")
		},
	}

	failed := testutil.ToFloat64(metrics.PersistFailed.WithLabelValues("reading"))

	registry := subscribers.New(subscribers.DefaultMaxMissed)
	sub := registry.Register()

	writer := NewWriter(store, WithRetryPolicy(3, func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
	writer.Start(ctx)

	pipeline := NewPipeline("esp32_01", writer, registry)
	is.NoErr(pipeline.Handle(ctx, []byte("2500")))

	frame := receive(t, sub)
	is.True(bytes.HasPrefix(frame, []byte(types.AlertPrefix)))

	is.NoErr(writer.Close(ctx))
	is.Equal(len(store.SaveReadingCalls()), 3)
	is.Equal(len(store.SaveAlertCalls()), 3)
	is.Equal(testutil.ToFloat64(metrics.PersistFailed.WithLabelValues("reading"))-failed, float64(1))
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	is, _, _, _, _, pipeline := testSetup(t)

	ctx, cancel := context.WithCancel(context.Background())
	messages := make(chan []byte)

	stopped := make(chan error)
	go func() {
		stopped <- pipeline.Run(ctx, messages)
	}()

	cancel()

	select {
	case err := <-stopped:
		is.NoErr(err)
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func testSetup(t *testing.T) (*is.I, context.Context, *database.GatewayMock, *subscribers.Registry, *Writer, *Pipeline) {
	is := is.New(t)
	ctx := context.Background()

	mu := sync.Mutex{}
	store := &database.GatewayMock{
		SaveReadingFunc: func(ctx context.Context, r types.Reading) error {
			return nil
		},
		SaveAlertFunc: func(ctx context.Context, a types.Alert) error {
			return nil
		},
	}

	registry := subscribers.New(subscribers.DefaultMaxMissed)

	writer := NewWriter(store)
	writer.Start(ctx)

	tick := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := tick
		tick = tick.Add(time.Millisecond)
		return now
	}

	pipeline := NewPipeline("esp32_01", writer, registry, WithClock(clock))

	return is, ctx, store, registry, writer, pipeline
}

func receive(t *testing.T, s *subscribers.Subscriber) []byte {
	t.Helper()

	select {
	case frame, ok := <-s.Outbound():
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return nil
}

func decodeFrame(t *testing.T, frame []byte) types.LiveUpdate {
	t.Helper()

	u := types.LiveUpdate{}
	body := bytes.TrimPrefix(frame, []byte(types.AlertPrefix))
	if err := json.Unmarshal(body, &u); err != nil {
		t.Fatalf("invalid frame %q: %s", frame, err.Error())
	}
	return u
}

type observer struct {
	seen []time.Time
}

func (o *observer) Observed(t time.Time) {
	o.seen = append(o.seen, t)
}

func TestObserverSeesOnlyDecodedReadings(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	o := &observer{}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	writer := NewWriter(&database.GatewayMock{
		SaveReadingFunc: func(ctx context.Context, r types.Reading) error { return nil },
	})
	writer.Start(ctx)

	pipeline := NewPipeline("esp32_01", writer, subscribers.New(0), WithObserver(o), WithClock(func() time.Time { return now }))

	is.True(pipeline.Handle(ctx, []byte("abc")) != nil)
	is.NoErr(pipeline.Handle(ctx, []byte("450")))
	is.NoErr(writer.Close(ctx))

	is.Equal(len(o.seen), 1)
	is.True(o.seen[0].Equal(now))
}
