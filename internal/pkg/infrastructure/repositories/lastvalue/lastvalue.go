package lastvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diwise/gas-monitor/pkg/types"
)

// DefaultTTL drops readings from devices that have gone silent for a day.
const DefaultTTL time.Duration = 24 * time.Hour

var ErrNotFound = errors.New("no value known for device")

//go:generate moq -rm -out lastvalue_mock.go . Store

// Store keeps the most recent reading per device.
type Store interface {
	Set(ctx context.Context, r types.Reading) error
	Get(ctx context.Context, deviceID string) (types.Reading, error)
	Ping(ctx context.Context) error
	Close() error
}

type store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(ctx context.Context, addr string) (Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("last value store at %s is not reachable: %w", addr, err)
	}

	return &store{rdb: rdb, ttl: DefaultTTL}, nil
}

func key(deviceID string) string {
	return fmt.Sprintf("gas:last:%s", deviceID)
}

func (s *store) Set(ctx context.Context, r types.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	err = s.rdb.Set(ctx, key(r.DeviceID), b, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to update last value for %s: %w", r.DeviceID, err)
	}

	return nil
}

func (s *store) Get(ctx context.Context, deviceID string) (types.Reading, error) {
	b, err := s.rdb.Get(ctx, key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Reading{}, ErrNotFound
		}
		return types.Reading{}, err
	}

	r := types.Reading{}
	if err = json.Unmarshal(b, &r); err != nil {
		return types.Reading{}, fmt.Errorf("corrupt last value for %s: %w", deviceID, err)
	}

	return r, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *store) Close() error {
	return s.rdb.Close()
}
