// Package expiry arms per-transaction expiry deadlines and sweeps the ones
// that fall due.
package expiry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis"
)

const DefaultQueueKey = "payment:expiry"

// Queue is a delayed queue of transaction ids keyed by deadline.
type Queue interface {
	Schedule(ctx context.Context, id string, at time.Time) error
	// Due returns up to limit ids whose deadline is not after now, earliest first.
	Due(ctx context.Context, now time.Time, limit int64) ([]string, error)
	Remove(ctx context.Context, ids ...string) error
}

// RedisQueue keeps deadlines in a sorted set scored by unix milliseconds,
// so pending expiries survive a restart. Deadlines round up and reads round
// down, so an id is never due before its deadline.
type RedisQueue struct {
	client redis.RedisClient
	key    string
}

func NewRedisQueue(client redis.RedisClient, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Schedule(ctx context.Context, id string, at time.Time) error {
	if err := q.client.ZAdd(ctx, q.key, deadlineScore(at), id); err != nil {
		return fmt.Errorf("failed to schedule expiry for %s: %w", id, err)
	}
	return nil
}

func (q *RedisQueue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.key, nowScore(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read due expiries: %w", err)
	}
	return ids, nil
}

func (q *RedisQueue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.client.ZRem(ctx, q.key, ids...); err != nil {
		return fmt.Errorf("failed to remove expiries: %w", err)
	}
	return nil
}

func deadlineScore(t time.Time) float64 {
	ms := t.UnixMilli()
	if time.UnixMilli(ms).Before(t) {
		ms++
	}
	return float64(ms)
}

func nowScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

type MemoryQueue struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{deadlines: make(map[string]time.Time)}
}

func (q *MemoryQueue) Schedule(_ context.Context, id string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadlines[id] = at
	return nil
}

func (q *MemoryQueue) Due(_ context.Context, now time.Time, limit int64) ([]string, error) {
	q.mu.Lock()
	type entry struct {
		id string
		at time.Time
	}
	var due []entry
	for id, at := range q.deadlines {
		if !at.After(now) {
			due = append(due, entry{id, at})
		}
	}
	q.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	if limit > 0 && int64(len(due)) > limit {
		due = due[:limit]
	}
	ids := make([]string, len(due))
	for i, e := range due {
		ids[i] = e.id
	}
	return ids, nil
}

func (q *MemoryQueue) Remove(_ context.Context, ids ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		delete(q.deadlines, id)
	}
	return nil
}

// Len reports the number of armed deadlines.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deadlines)
}
