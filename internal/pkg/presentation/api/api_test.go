package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/application/query"
	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/router"
	"github.com/diwise/gas-monitor/pkg/types"
)

func TestHistoryIsReturnedAsJSONArray(t *testing.T) {
	is, svc, _, _, server := testSetup(t)

	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	svc.RecentReadingsFunc = func(ctx context.Context) ([]types.Reading, error) {
		return []types.Reading{
			{ID: "2", DeviceID: "esp32_01", Value: 1500, ObservedAt: now},
			{ID: "1", DeviceID: "esp32_01", Value: 450, ObservedAt: now.Add(-2 * time.Second)},
		}, nil
	}

	resp, body := get(t, server.URL+"/api/history")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/json")

	readings := []types.Reading{}
	is.NoErr(json.Unmarshal(body, &readings))
	is.Equal(len(readings), 2)
	is.Equal(readings[0].ID, "2")
}

func TestAlertsAreReturnedAsJSONArray(t *testing.T) {
	is, svc, _, _, server := testSetup(t)

	svc.RecentAlertsFunc = func(ctx context.Context) ([]types.Alert, error) {
		return []types.Alert{}, nil
	}

	resp, body := get(t, server.URL+"/api/alerts")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(strings.TrimSpace(string(body)), "[]")
}

func TestQueryFailureReturnsInternalServerError(t *testing.T) {
	is, svc, _, _, server := testSetup(t)

	svc.RecentAlertsFunc = func(ctx context.Context) ([]types.Alert, error) {
		return nil, errors.New("store down")
	}

	resp, _ := get(t, server.URL+"/api/alerts")
	is.Equal(resp.StatusCode, http.StatusInternalServerError)
}

func TestLatestReturnsNotFoundWhenNothingIsKnown(t *testing.T) {
	is, svc, _, _, server := testSetup(t)

	svc.LatestFunc = func(ctx context.Context, deviceID string) (types.Reading, error) {
		return types.Reading{}, query.ErrNotFound
	}

	resp, _ := get(t, server.URL+"/api/latest")
	is.Equal(resp.StatusCode, http.StatusNotFound)
	is.Equal(svc.LatestCalls()[0].DeviceID, "esp32_01")
}

func TestLatestForSpecificDevice(t *testing.T) {
	is, svc, _, _, server := testSetup(t)

	svc.LatestFunc = func(ctx context.Context, deviceID string) (types.Reading, error) {
		return types.Reading{ID: "x", DeviceID: deviceID, Value: 777}, nil
	}

	resp, body := get(t, server.URL+"/api/latest?device=esp32_02")
	is.Equal(resp.StatusCode, http.StatusOK)

	r := types.Reading{}
	is.NoErr(json.Unmarshal(body, &r))
	is.Equal(r.DeviceID, "esp32_02")
	is.Equal(r.Value, int64(777))
}

func TestIndexListsEndpoints(t *testing.T) {
	is, _, _, _, server := testSetup(t)

	resp, body := get(t, server.URL+"/api")
	is.Equal(resp.StatusCode, http.StatusOK)

	index := apiIndex{}
	is.NoErr(json.Unmarshal(body, &index))
	is.Equal(index.Endpoints["websocket"], "/ws/gas")
	is.Equal(index.Endpoints["history"], "/api/history")
}

func TestStatusIsHealthyWhenEverythingIsReachable(t *testing.T) {
	is, _, probes, _, server := testSetup(t)
	probes.broker.connected = true

	resp, body := get(t, server.URL+"/status")
	is.Equal(resp.StatusCode, http.StatusOK)

	status := types.Status{}
	is.NoErr(json.Unmarshal(body, &status))
	is.Equal(status.Status, StatusHealthy)
	is.True(status.MQTT.Connected)
	is.Equal(status.MQTT.Topic, "iot/sensor/gas")
	is.True(status.Store.Reachable)
}

func TestStatusIsDegradedWhenBrokerIsDown(t *testing.T) {
	is, _, _, _, server := testSetup(t)

	resp, body := get(t, server.URL+"/status")
	is.Equal(resp.StatusCode, http.StatusOK)

	status := types.Status{}
	is.NoErr(json.Unmarshal(body, &status))
	is.Equal(status.Status, StatusDegraded)
	is.True(!status.MQTT.Connected)
}

func TestStatusIgnoresBrokerWhenNoBrokerIsConfigured(t *testing.T) {
	is := is.New(t)
	registry := subscribers.New(subscribers.DefaultMaxMissed)
	defer registry.Close()

	handler := statusHandler(zerolog.Nop(), Probes{Store: &storeProbe{}, Sensor: &sensorProbe{}}, registry, "esp32_01", 100*time.Millisecond)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	is.Equal(w.Code, http.StatusOK)

	status := types.Status{}
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &status))
	is.Equal(status.Status, StatusHealthy)
}

func TestStatusIsDegradedWhenSensorIsSilent(t *testing.T) {
	is, _, probes, _, server := testSetup(t)
	probes.broker.connected = true
	probes.sensor.last = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	probes.sensor.silent = true

	resp, body := get(t, server.URL+"/status")
	is.Equal(resp.StatusCode, http.StatusOK)

	status := types.Status{}
	is.NoErr(json.Unmarshal(body, &status))
	is.Equal(status.Status, StatusDegraded)
	is.True(status.Sensor.Silent)
	is.Equal(status.Sensor.DeviceID, "esp32_01")
	is.Equal(status.Sensor.LastReading, "2026-10-16T10:00:00.000Z")
}

func TestStatusIsUnhealthyWhenStoreIsUnreachable(t *testing.T) {
	is, _, probes, _, server := testSetup(t)
	probes.broker.connected = true
	probes.store.err = errors.New("connection refused")

	resp, body := get(t, server.URL+"/status")
	is.Equal(resp.StatusCode, http.StatusServiceUnavailable)

	status := types.Status{}
	is.NoErr(json.Unmarshal(body, &status))
	is.Equal(status.Status, StatusUnhealthy)
	is.Equal(status.Store.Error, "connection refused")
}

func TestStatusAnswersWhenStoreHangs(t *testing.T) {
	is, _, probes, _, server := testSetup(t)
	probes.broker.connected = true
	probes.store.hang = make(chan struct{})
	defer close(probes.store.hang)

	begin := time.Now()
	resp, _ := get(t, server.URL+"/status")

	is.Equal(resp.StatusCode, http.StatusServiceUnavailable)
	is.True(time.Since(begin) < time.Second)
}

func TestLiveUpdatesAreStreamedToWebSocketClients(t *testing.T) {
	is, _, _, registry, server := testSetup(t)

	conn := dial(t, server)
	defer conn.Close()

	waitFor(t, func() bool { return registry.Count() == 1 })

	safe := []byte(`{"value":450,"timestamp":"2026-10-16T10:00:00.000Z","level":"SAFE"}`)
	alert := []byte(`ALERT:{"value":1500,"timestamp":"2026-10-16T10:00:02.000Z","level":"DANGER","message":"DANGER! Gas leak detected!"}`)

	is.Equal(registry.Broadcast(safe), 1)
	is.Equal(registry.Broadcast(alert), 1)

	conn.SetReadDeadline(time.Now().Add(time.Second))

	kind, msg, err := conn.ReadMessage()
	is.NoErr(err)
	is.Equal(kind, websocket.TextMessage)
	is.Equal(msg, safe)

	_, msg, err = conn.ReadMessage()
	is.NoErr(err)
	is.Equal(msg, alert)
}

func TestDisconnectedClientIsUnregistered(t *testing.T) {
	_, _, _, registry, server := testSetup(t)

	conn := dial(t, server)
	waitFor(t, func() bool { return registry.Count() == 1 })

	conn.Close()
	waitFor(t, func() bool { return registry.Count() == 0 })
}

func TestClientIsClosedWhenRegistryCloses(t *testing.T) {
	is, _, _, registry, server := testSetup(t)

	conn := dial(t, server)
	defer conn.Close()
	waitFor(t, func() bool { return registry.Count() == 1 })

	registry.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	is.True(websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestMetricsAreExposed(t *testing.T) {
	is, _, _, _, server := testSetup(t)

	resp, body := get(t, server.URL+"/metrics")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(string(body), "gasmonitor_subscribers"))
}

type brokerProbe struct {
	connected bool
}

func (b *brokerProbe) IsConnected() bool { return b.connected }
func (b *brokerProbe) Broker() string    { return "ssl://broker.local:8883" }
func (b *brokerProbe) Topic() string     { return "iot/sensor/gas" }

type storeProbe struct {
	err  error
	hang chan struct{}
}

func (s *storeProbe) Ping(ctx context.Context) error {
	if s.hang != nil {
		<-s.hang
	}
	return s.err
}

type sensorProbe struct {
	last   time.Time
	silent bool
}

func (s *sensorProbe) LastObserved() (time.Time, bool) { return s.last, !s.last.IsZero() }
func (s *sensorProbe) Silent() bool                     { return s.silent }

type testProbes struct {
	broker *brokerProbe
	store  *storeProbe
	sensor *sensorProbe
}

func testSetup(t *testing.T) (*is.I, *query.ServiceMock, *testProbes, *subscribers.Registry, *httptest.Server) {
	is := is.New(t)
	ctx := context.Background()

	svc := &query.ServiceMock{}
	registry := subscribers.New(subscribers.DefaultMaxMissed)
	probes := &testProbes{broker: &brokerProbe{}, store: &storeProbe{}, sensor: &sensorProbe{}}

	cfg := Config{
		ServiceName:    "gas-monitor",
		ServiceVersion: "test",
		DeviceID:       "esp32_01",
		StatusTimeout:  100 * time.Millisecond,
	}

	r := RegisterHandlers(ctx, cfg, router.New("gas-monitor"), svc, registry, Probes{Broker: probes.broker, Store: probes.store, Sensor: probes.sensor})

	server := httptest.NewServer(r)
	t.Cleanup(func() {
		registry.Close()
		server.Close()
	})

	return is, svc, probes, registry, server
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %s", err.Error())
	}

	return resp, body
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/gas"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %s", err.Error())
	}

	return conn
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("condition not met in time")
}
