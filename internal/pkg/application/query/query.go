package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/lastvalue"
	"github.com/diwise/gas-monitor/pkg/types"
)

const (
	HistoryLimit int = 50
	AlertsLimit  int = 10
)

var ErrNotFound = errors.New("not found")

// Reader is the read side of the persistence gateway.
type Reader interface {
	RecentReadings(ctx context.Context, limit int) ([]types.Reading, error)
	RecentAlerts(ctx context.Context, limit int) ([]types.Alert, error)
}

//go:generate moq -rm -out query_mock.go . Service

type Service interface {
	RecentReadings(ctx context.Context) ([]types.Reading, error)
	RecentAlerts(ctx context.Context) ([]types.Alert, error)
	Latest(ctx context.Context, deviceID string) (types.Reading, error)
}

type service struct {
	reader    Reader
	lastValue lastvalue.Store
}

// New returns a Service reading from r. lastValue may be nil, Latest then falls back
// to the newest stored reading.
func New(r Reader, lastValue lastvalue.Store) Service {
	return &service{
		reader:    r,
		lastValue: lastValue,
	}
}

func (s *service) RecentReadings(ctx context.Context) ([]types.Reading, error) {
	readings, err := s.reader.RecentReadings(ctx, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	return readings, nil
}

func (s *service) RecentAlerts(ctx context.Context) ([]types.Alert, error) {
	alerts, err := s.reader.RecentAlerts(ctx, AlertsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return alerts, nil
}

func (s *service) Latest(ctx context.Context, deviceID string) (types.Reading, error) {
	if s.lastValue != nil {
		r, err := s.lastValue.Get(ctx, deviceID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, lastvalue.ErrNotFound) {
			log := logging.GetFromContext(ctx)
			log.Warn().Err(err).Str("device_id", deviceID).Msg("last value store unavailable, reading from store")
		}
	}

	readings, err := s.reader.RecentReadings(ctx, HistoryLimit)
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to query recent readings: %w", err)
	}

	r, ok := lo.Find(readings, func(r types.Reading) bool {
		return r.DeviceID == deviceID
	})
	if !ok {
		return types.Reading{}, ErrNotFound
	}

	return r, nil
}
