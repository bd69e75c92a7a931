package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, q.Schedule(ctx, "b", now.Add(-time.Minute)))
	require.NoError(t, q.Schedule(ctx, "a", now.Add(-2*time.Minute)))
	require.NoError(t, q.Schedule(ctx, "c", now))
	require.NoError(t, q.Schedule(ctx, "later", now.Add(time.Second)))

	ids, err := q.Due(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	ids, err = q.Due(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, q.Remove(ctx, "a", "b", "c"))
	assert.Equal(t, 1, q.Len())

	ids, err = q.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisQueue(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000).UTC()

	tests := []struct {
		name      string
		setupMock func(m *mocks.MockRedisClient)
		run       func(q *RedisQueue) error
		wantErr   string
	}{
		{
			name: "schedule adds scored member",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZAdd(ctx, "expiry", float64(1_700_000_000_000), "TXN-1").Return(nil)
			},
			run: func(q *RedisQueue) error { return q.Schedule(ctx, "TXN-1", at) },
		},
		{
			name: "schedule rounds a sub-millisecond deadline up",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZAdd(ctx, "expiry", float64(1_700_000_000_001), "TXN-1").Return(nil)
			},
			run: func(q *RedisQueue) error { return q.Schedule(ctx, "TXN-1", at.Add(300*time.Microsecond)) },
		},
		{
			name: "due rounds now down",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZRangeByScore(ctx, "expiry", float64(1_700_000_000_000), int64(10)).Return(nil, nil)
			},
			run: func(q *RedisQueue) error {
				_, err := q.Due(ctx, at.Add(900*time.Microsecond), 10)
				return err
			},
		},
		{
			name: "schedule error is wrapped",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZAdd(ctx, "expiry", gomock.Any(), "TXN-1").Return(errors.New("down"))
			},
			run:     func(q *RedisQueue) error { return q.Schedule(ctx, "TXN-1", at) },
			wantErr: "failed to schedule expiry for TXN-1",
		},
		{
			name: "due reads by score",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZRangeByScore(ctx, "expiry", float64(1_700_000_000_000), int64(50)).Return([]string{"TXN-1"}, nil)
			},
			run: func(q *RedisQueue) error {
				ids, err := q.Due(ctx, at, 50)
				if err == nil && len(ids) != 1 {
					return errors.New("unexpected ids")
				}
				return err
			},
		},
		{
			name:      "remove nothing is a no-op",
			setupMock: func(m *mocks.MockRedisClient) {},
			run:       func(q *RedisQueue) error { return q.Remove(ctx) },
		},
		{
			name: "remove members",
			setupMock: func(m *mocks.MockRedisClient) {
				m.EXPECT().ZRem(ctx, "expiry", "TXN-1", "TXN-2").Return(nil)
			},
			run: func(q *RedisQueue) error { return q.Remove(ctx, "TXN-1", "TXN-2") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockRedisClient(ctrl)
			tt.setupMock(client)

			err := tt.run(NewRedisQueue(client, "expiry"))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
