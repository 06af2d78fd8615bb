package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
	"github.com/diwise/gas-monitor/pkg/types"
)

const DefaultStatusTimeout time.Duration = 2 * time.Second

const (
	StatusHealthy   string = "healthy"
	StatusDegraded  string = "degraded"
	StatusUnhealthy string = "unhealthy"
)

type BrokerProbe interface {
	IsConnected() bool
	Broker() string
	Topic() string
}

type StoreProbe interface {
	Ping(ctx context.Context) error
}

type SensorProbe interface {
	LastObserved() (time.Time, bool)
	Silent() bool
}

type Probes struct {
	Broker BrokerProbe
	Store  StoreProbe
	Sensor SensorProbe
}

// statusHandler reports degraded while the broker is unreachable or the sensor is silent,
// and unhealthy when the store cannot be reached. Each probe is bounded by timeout so the
// endpoint always answers.
func statusHandler(log zerolog.Logger, probes Probes, registry *subscribers.Registry, deviceID string, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := types.Status{
			Status: StatusHealthy,
			WebSocket: types.WebSocketStatus{
				ActiveConnections: registry.Count(),
			},
			Store: types.StoreStatus{Reachable: true},
		}

		if probes.Broker != nil {
			status.MQTT = types.MQTTStatus{
				Connected: probe(ctx, timeout, func(context.Context) error {
					if !probes.Broker.IsConnected() {
						return errBrokerDisconnected
					}
					return nil
				}) == nil,
				Broker: probes.Broker.Broker(),
				Topic:  probes.Broker.Topic(),
			}

			if !status.MQTT.Connected {
				status.Status = StatusDegraded
			}
		}

		status.Sensor.DeviceID = deviceID
		if probes.Sensor != nil {
			if last, ok := probes.Sensor.LastObserved(); ok {
				status.Sensor.LastReading = last.Format(types.TimestampLayout)
			}
			status.Sensor.Silent = probes.Sensor.Silent()
		}

		if status.Sensor.Silent {
			status.Status = StatusDegraded
		}

		if probes.Store != nil {
			if err := probe(ctx, timeout, probes.Store.Ping); err != nil {
				log.Warn().Err(err).Msg("store is not reachable")
				status.Store = types.StoreStatus{Reachable: false, Error: err.Error()}
				status.Status = StatusUnhealthy
			}
		}

		status.Timestamp = time.Now().UTC().Format(types.TimestampLayout)

		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, status)
	}
}

var errBrokerDisconnected = errors.New("broker disconnected")

// probe runs fn in its own goroutine so that a probe ignoring ctx still cannot hold
// the response past the deadline.
func probe(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)

	go func() {
		result <- fn(ctx)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
