package expiry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	mu       sync.Mutex
	results  map[string]error
	expired  map[string]bool
	attempts []string
}

func newFakeExpirer() *fakeExpirer {
	return &fakeExpirer{results: map[string]error{}, expired: map[string]bool{}}
}

func (f *fakeExpirer) ExpireTransaction(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, id)
	if err := f.results[id]; err != nil {
		return false, err
	}
	if f.expired[id] {
		return false, nil
	}
	f.expired[id] = true
	return true, nil
}

type fakeLister struct {
	overdue []string
	err     error
}

func (f *fakeLister) ListOverdue(_ context.Context, _ time.Time, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.overdue) > limit {
		return f.overdue[:limit], nil
	}
	return f.overdue, nil
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	queue := NewMemoryQueue()
	require.NoError(t, queue.Schedule(ctx, "due", now.Add(-time.Second)))
	require.NoError(t, queue.Schedule(ctx, "exact", now))
	require.NoError(t, queue.Schedule(ctx, "future", now.Add(time.Minute)))
	require.NoError(t, queue.Schedule(ctx, "gone", now.Add(-time.Minute)))
	require.NoError(t, queue.Schedule(ctx, "flaky", now.Add(-time.Minute)))

	expirer := newFakeExpirer()
	expirer.results["gone"] = pkgerrors.ErrTransactionNotFound
	expirer.results["flaky"] = errors.New("db down")

	sweeper := NewSweeper(queue, expirer, nil, WithClock(clock))
	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, expirer.expired["due"])
	assert.True(t, expirer.expired["exact"])
	assert.NotContains(t, expirer.attempts, "future")

	// future is not yet due and flaky is retried later.
	assert.Equal(t, 2, queue.Len())
	ids, _ := queue.Due(ctx, now.Add(time.Hour), 10)
	assert.ElementsMatch(t, []string{"flaky", "future"}, ids)
}

func TestSweeper_SweepOnceAdvancingClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	current := now
	queue := NewMemoryQueue()
	require.NoError(t, queue.Schedule(ctx, "TXN-1", now.Add(15*time.Minute)))

	expirer := newFakeExpirer()
	sweeper := NewSweeper(queue, expirer, nil, WithClock(func() time.Time { return current }))

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, queue.Len())

	current = now.Add(15*time.Minute + time.Second)
	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, queue.Len())
}

func TestSweeper_ScanOverdue(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue ids", func(t *testing.T) {
		expirer := newFakeExpirer()
		sweeper := NewSweeper(NewMemoryQueue(), expirer, &fakeLister{overdue: []string{"a", "b"}})
		n, err := sweeper.ScanOverdue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("stops when a full batch makes no progress", func(t *testing.T) {
		expirer := newFakeExpirer()
		expirer.results["a"] = errors.New("db down")
		sweeper := NewSweeper(NewMemoryQueue(), expirer, &fakeLister{overdue: []string{"a"}}, WithBatchSize(1))
		n, err := sweeper.ScanOverdue(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("lister error", func(t *testing.T) {
		sweeper := NewSweeper(NewMemoryQueue(), newFakeExpirer(), &fakeLister{err: errors.New("boom")})
		_, err := sweeper.ScanOverdue(ctx)
		assert.Error(t, err)
	})

	t.Run("no store", func(t *testing.T) {
		sweeper := NewSweeper(NewMemoryQueue(), newFakeExpirer(), nil)
		n, err := sweeper.ScanOverdue(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(NewMemoryQueue(), newFakeExpirer(), nil, WithInterval(time.Millisecond))

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

// sortedSet is an in-process stand-in for the Redis sorted set commands.
type sortedSet struct {
	mu      sync.Mutex
	members map[string]float64
}

func (z *sortedSet) Get(context.Context, string) (string, error) { return "", nil }
func (z *sortedSet) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (z *sortedSet) Del(context.Context, string) error { return nil }
func (z *sortedSet) Close() error                      { return nil }

func (z *sortedSet) ZAdd(_ context.Context, _ string, score float64, member string) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.members[member] = score
	return nil
}

func (z *sortedSet) ZRangeByScore(_ context.Context, _ string, max float64, limit int64) ([]string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	var ids []string
	for m, s := range z.members {
		if s <= max {
			ids = append(ids, m)
		}
	}
	if limit > 0 && int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (z *sortedSet) ZRem(_ context.Context, _ string, members ...string) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	for _, m := range members {
		delete(z.members, m)
	}
	return nil
}

// deadlineExpirer expires an id only once the clock reaches its exact deadline.
type deadlineExpirer struct {
	now       func() time.Time
	deadlines map[string]time.Time
	expired   map[string]bool
}

func (d *deadlineExpirer) ExpireTransaction(_ context.Context, id string) (bool, error) {
	if d.expired[id] || d.now().Before(d.deadlines[id]) {
		return false, nil
	}
	d.expired[id] = true
	return true, nil
}

func TestSweeper_RedisQueueSubMillisecondDeadline(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 700_000, time.UTC)
	current := start
	clock := func() time.Time { return current }

	deadline := start.Add(15 * time.Minute)
	queue := NewRedisQueue(&sortedSet{members: map[string]float64{}}, "expiry")
	require.NoError(t, queue.Schedule(ctx, "TXN-1", deadline))

	expirer := &deadlineExpirer{now: clock, deadlines: map[string]time.Time{"TXN-1": deadline}, expired: map[string]bool{}}
	sweeper := NewSweeper(queue, expirer, nil, WithClock(clock))

	// same millisecond as the deadline, but before it
	current = deadline.Add(-300 * time.Microsecond)
	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	ids, err := queue.Due(ctx, deadline.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"TXN-1"}, ids, "deadline must stay armed")

	current = deadline.Add(time.Hour)
	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, expirer.expired["TXN-1"])
}
