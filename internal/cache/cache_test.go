package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	Subject string  `json:"subject"`
	Mean    float64 `json:"mean"`
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "scorelens:view:00000000000000ff:rank:10", Key(255, "rank", "10"))
	assert.Equal(t, "scorelens:view:0000000000000001:overview", Key(1, "overview"))
}

func TestStores(t *testing.T) {
	r, _ := newRedis(t)
	stores := map[string]Store{"memory": NewMemory(), "redis": r}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var got view
			assert.True(t, errors.Is(s.Get(ctx, "k", &got), ErrMiss))
			assert.True(t, errors.Is(s.Get(ctx, "", &got), ErrKeyEmpty))
			assert.True(t, errors.Is(s.Set(ctx, "", got, 0), ErrKeyEmpty))

			require.NoError(t, s.Set(ctx, "k", view{"Math", 72.5}, time.Minute))
			require.NoError(t, s.Get(ctx, "k", &got))
			assert.Equal(t, view{"Math", 72.5}, got)

			var wrong int
			assert.True(t, errors.Is(s.Get(ctx, "k", &wrong), ErrSerialization))
			require.NoError(t, s.Close())
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, m.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, m.Get(ctx, "a", &v))
	now = now.Add(time.Minute)
	assert.True(t, errors.Is(m.Get(ctx, "a", &v), ErrMiss))
	require.NoError(t, m.Get(ctx, "b", &v))
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, m.Len())
}

func TestRedisExpiry(t *testing.T) {
	r, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "a", "x", time.Second))
	mr.FastForward(2 * time.Second)
	var s string
	assert.True(t, errors.Is(r.Get(ctx, "a", &s), ErrMiss))
}

func TestMemo(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	calls := 0
	compute := func() ([]view, error) {
		calls++
		return []view{{"Math", 80}}, nil
	}
	v, hit, err := Memo(ctx, m, quietLog(), "views", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []view{{"Math", 80}}, v)
	v, hit, err = Memo(ctx, m, quietLog(), "views", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []view{{"Math", 80}}, v)
	assert.Equal(t, 1, calls)

	v, hit, err = Memo[[]view](ctx, nil, nil, "views", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, v, 1)
	assert.Equal(t, 2, calls)
}

func TestMemoDoesNotStoreFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("encode failed")
	calls := 0
	compute := func() ([]view, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []view{{"Math", 80}}, nil
	}
	_, hit, err := Memo(ctx, m, quietLog(), "views", time.Minute, compute)
	assert.ErrorIs(t, err, boom)
	assert.False(t, hit)

	var cached []view
	assert.ErrorIs(t, m.Get(ctx, "views", &cached), ErrMiss)

	v, hit, err := Memo(ctx, m, quietLog(), "views", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit, "the failed build was recomputed")
	assert.Equal(t, []view{{"Math", 80}}, v)
}

func TestMemoSurvivesRedisOutage(t *testing.T) {
	r, mr := newRedis(t)
	mr.Close()
	v, hit, err := Memo(context.Background(), r, quietLog(), "k", time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
