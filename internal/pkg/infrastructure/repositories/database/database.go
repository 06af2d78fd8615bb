package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diwise/gas-monitor/pkg/types"
)

//go:generate moq -rm -out database_mock.go . Gateway

// Gateway is the append-only store for readings and alerts.
type Gateway interface {
	SaveReading(ctx context.Context, r types.Reading) error
	SaveAlert(ctx context.Context, a types.Alert) error
	RecentReadings(ctx context.Context, limit int) ([]types.Reading, error)
	RecentAlerts(ctx context.Context, limit int) ([]types.Alert, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

type gateway struct {
	db *gorm.DB
}

func New(connect ConnectorFunc) (Gateway, error) {
	db, err := connect()
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&reading{}, &alert{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &gateway{db: db}, nil
}

func (g *gateway) SaveReading(ctx context.Context, r types.Reading) error {
	if r.DeviceID == "" || r.ObservedAt.IsZero() {
		return fmt.Errorf("%w: reading needs a device id and a timestamp", ErrInvalidRecord)
	}

	if r.ID == "" {
		r.ID = NewID()
	}

	return g.db.WithContext(ctx).Create(&reading{
		ID:         r.ID,
		DeviceID:   r.DeviceID,
		Value:      r.Value,
		ObservedAt: r.ObservedAt.UTC(),
	}).Error
}

func (g *gateway) SaveAlert(ctx context.Context, a types.Alert) error {
	if a.DeviceID == "" || a.CreatedAt.IsZero() || a.TierRank < 1 {
		return fmt.Errorf("%w: alert needs a device id, a rank and a timestamp", ErrInvalidRecord)
	}

	if a.ID == "" {
		a.ID = NewID()
	}

	return g.db.WithContext(ctx).Create(&alert{
		ID:        a.ID,
		DeviceID:  a.DeviceID,
		TierRank:  a.TierRank,
		Level:     a.Level,
		Value:     a.Value,
		Message:   a.Message,
		CreatedAt: a.CreatedAt.UTC(),
	}).Error
}

func (g *gateway) RecentReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var rows []reading

	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]types.Reading, 0, len(rows))
	for _, r := range rows {
		result = append(result, types.Reading{
			ID:         r.ID,
			DeviceID:   r.DeviceID,
			Value:      r.Value,
			ObservedAt: r.ObservedAt.UTC(),
		})
	}

	return result, nil
}

func (g *gateway) RecentAlerts(ctx context.Context, limit int) ([]types.Alert, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var rows []alert

	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]types.Alert, 0, len(rows))
	for _, a := range rows {
		result = append(result, types.Alert{
			ID:        a.ID,
			DeviceID:  a.DeviceID,
			TierRank:  a.TierRank,
			Level:     a.Level,
			Value:     a.Value,
			Message:   a.Message,
			CreatedAt: a.CreatedAt.UTC(),
		})
	}

	return result, nil
}

func (g *gateway) Ping(ctx context.Context) error {
	sqldb, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqldb.PingContext(ctx)
}

func (g *gateway) Close() error {
	sqldb, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

// NewID returns a time ordered id so that rows sharing a timestamp still sort by insertion.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
