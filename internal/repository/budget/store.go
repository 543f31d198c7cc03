package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/holdex/internal/db"
	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

// store is the consumer interface for counter persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists usage counters on top of the remote KV store (INCRBY + GET with TTL).
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a counter store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Key builds the counter key for a service, metric and period start.
func Key(service string, metric quota.Metric, periodStart time.Time) string {
	period := periodStart.UTC().Format("2006-01-02")
	if metric == quota.MonthlyHours {
		period = periodStart.UTC().Format("2006-01")
	}
	return fmt.Sprintf("%susage:%s:%s:%s", domain.KeyPrefix, service, metric, period)
}

// IncrBy atomically increments the key value and sets TTL.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("usage INCRBY %s: %w", key, err)
	}

	// NX: the TTL is anchored to the first write of the period.
	if err := s.store.Expire(ctx, key, s.ttlForKey(key), true); err != nil {
		return fmt.Errorf("usage EXPIRE %s: %w", key, err)
	}

	return nil
}

// Get returns the persisted counter. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage GET %s parse: %w", key, err)
	}
	return val, nil
}

// GetMany returns the persisted counters for keys in one round trip.
// Missing keys read as 0.
func (s *Store) GetMany(ctx context.Context, keys []string) ([]int64, error) {
	raw, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("usage MGET: %w", err)
	}
	out := make([]int64, len(keys))
	for i, data := range raw {
		if data == nil {
			continue
		}
		v, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("usage MGET %s parse: %w", keys[i], err)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":"+string(quota.DailyRequests)+":") {
		return s.dailyTTL
	}
	return s.monthTTL
}
