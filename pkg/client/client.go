package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/tracing"
	"github.com/diwise/gas-monitor/pkg/types"
)

var ErrNotFound = errors.New("not found")

// GasMonitorClient reads history, alerts and status from a running gas-monitor.
type GasMonitorClient interface {
	History(ctx context.Context) ([]types.Reading, error)
	Alerts(ctx context.Context) ([]types.Alert, error)
	Latest(ctx context.Context, deviceID string) (types.Reading, error)
	Status(ctx context.Context) (types.Status, error)
}

type gasMonitorClient struct {
	url        string
	httpClient http.Client
}

var tracer = otel.Tracer("gas-monitor-client")

func New(gasMonitorURL string) GasMonitorClient {
	return &gasMonitorClient{
		url: strings.TrimSuffix(gasMonitorURL, "/"),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *gasMonitorClient) History(ctx context.Context) ([]types.Reading, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-history")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	readings := []types.Reading{}
	err = c.get(ctx, "/api/history", http.StatusOK, &readings)

	return readings, err
}

func (c *gasMonitorClient) Alerts(ctx context.Context) ([]types.Alert, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-alerts")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	alerts := []types.Alert{}
	err = c.get(ctx, "/api/alerts", http.StatusOK, &alerts)

	return alerts, err
}

func (c *gasMonitorClient) Latest(ctx context.Context, deviceID string) (types.Reading, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-latest")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path := "/api/latest"
	if deviceID != "" {
		path += "?device=" + url.QueryEscape(deviceID)
	}

	r := types.Reading{}
	err = c.get(ctx, path, http.StatusOK, &r)

	return r, err
}

// Status returns the reported status also when the service answers 503, since the body
// then says which dependency is unreachable.
func (c *gasMonitorClient) Status(ctx context.Context) (types.Status, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-status")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	s := types.Status{}
	err = c.get(ctx, "/status", http.StatusOK, &s)

	var statusErr *unexpectedStatusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusServiceUnavailable {
		err = json.Unmarshal(statusErr.body, &s)
	}

	return s, err
}

type unexpectedStatusError struct {
	code int
	body []byte
}

func (e *unexpectedStatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.code)
}

func (c *gasMonitorClient) get(ctx context.Context, path string, expectedStatus int, result any) error {
	log := logging.GetFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to retrieve %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != expectedStatus {
		log.Debug().Str("path", path).Msgf("request failed with status code %d", resp.StatusCode)
		return &unexpectedStatusError{code: resp.StatusCode, body: respBody}
	}

	err = json.Unmarshal(respBody, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}
