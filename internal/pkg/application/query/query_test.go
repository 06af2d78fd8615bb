package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/lastvalue"
	"github.com/diwise/gas-monitor/pkg/types"
)

func TestRecentReadingsUsesHistoryLimit(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	gw := &database.GatewayMock{
		RecentReadingsFunc: func(ctx context.Context, limit int) ([]types.Reading, error) {
			return nil, nil
		},
	}

	readings, err := New(gw, nil).RecentReadings(ctx)
	is.NoErr(err)
	is.True(readings != nil) // empty history should encode as []
	is.Equal(len(readings), 0)
	is.Equal(gw.RecentReadingsCalls()[0].Limit, HistoryLimit)
}

func TestRecentAlertsUsesAlertsLimit(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	gw := &database.GatewayMock{
		RecentAlertsFunc: func(ctx context.Context, limit int) ([]types.Alert, error) {
			return []types.Alert{{ID: "a", TierRank: 3}}, nil
		},
	}

	alerts, err := New(gw, nil).RecentAlerts(ctx)
	is.NoErr(err)
	is.Equal(len(alerts), 1)
	is.Equal(gw.RecentAlertsCalls()[0].Limit, AlertsLimit)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	gw := &database.GatewayMock{
		RecentReadingsFunc: func(ctx context.Context, limit int) ([]types.Reading, error) {
			return nil, boom
		},
		RecentAlertsFunc: func(ctx context.Context, limit int) ([]types.Alert, error) {
			return nil, boom
		},
	}

	svc := New(gw, nil)

	_, err := svc.RecentReadings(ctx)
	is.True(errors.Is(err, boom))

	_, err = svc.RecentAlerts(ctx)
	is.True(errors.Is(err, boom))
}

func TestLatestPrefersLastValueStore(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	gw := &database.GatewayMock{}
	lv := &lastvalue.StoreMock{
		GetFunc: func(ctx context.Context, deviceID string) (types.Reading, error) {
			return types.Reading{ID: "hot", DeviceID: deviceID, Value: 700}, nil
		},
	}

	r, err := New(gw, lv).Latest(ctx, "esp32_01")
	is.NoErr(err)
	is.Equal(r.ID, "hot")
	is.Equal(len(gw.RecentReadingsCalls()), 0)
}

func TestLatestFallsBackToStoredReadings(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	gw, err := database.New(database.NewSQLiteConnector(zerolog.Nop()))
	is.NoErr(err)
	defer gw.Close()

	now := time.Now().UTC().Truncate(time.Second)
	is.NoErr(gw.SaveReading(ctx, types.Reading{DeviceID: "esp32_01", Value: 450, ObservedAt: now.Add(-time.Minute)}))
	is.NoErr(gw.SaveReading(ctx, types.Reading{DeviceID: "esp32_02", Value: 900, ObservedAt: now}))

	lv := &lastvalue.StoreMock{
		GetFunc: func(ctx context.Context, deviceID string) (types.Reading, error) {
			return types.Reading{}, lastvalue.ErrNotFound
		},
	}

	svc := New(gw, lv)

	r, err := svc.Latest(ctx, "esp32_01")
	is.NoErr(err)
	is.Equal(r.Value, int64(450))

	_, err = svc.Latest(ctx, "unknown")
	is.True(errors.Is(err, ErrNotFound))
}

func TestLatestFallsBackToStoreWhenLastValueStoreFails(t *testing.T) {
	is := is.New(t)

	lv := &lastvalue.StoreMock{
		GetFunc: func(ctx context.Context, deviceID string) (types.Reading, error) {
			return types.Reading{}, errors.New("connection refused")
		},
	}
	gw := &database.GatewayMock{
		RecentReadingsFunc: func(ctx context.Context, limit int) ([]types.Reading, error) {
			return []types.Reading{{DeviceID: "esp32_01", Value: 1500}}, nil
		},
	}

	r, err := New(gw, lv).Latest(context.Background(), "esp32_01")
	is.NoErr(err)
	is.Equal(r.Value, int64(1500))
	is.Equal(len(lv.GetCalls()), 1)
	is.Equal(len(gw.RecentReadingsCalls()), 1)
}
