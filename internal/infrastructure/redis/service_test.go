package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := NewServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func TestNewServiceWithoutURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	assert.Nil(t, NewService())
}

func TestNewServiceUnreachable(t *testing.T) {
	t.Setenv("REDIS_URL", "127.0.0.1:1")
	assert.Nil(t, NewService(), "an unreachable server yields no service")
}

func TestNewServiceConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", mr.Addr())
	t.Setenv("REDIS_PASSWORD", "")

	svc := NewService()
	require.NotNil(t, svc)
	defer svc.Close()
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	require.NoError(t, svc.Set(ctx, "k", "v", time.Minute))
	got, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, svc.Delete(ctx, "k"))
	_, err = svc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPushCapped(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.PushCapped(ctx, "list", fmt.Sprintf("v%d", i), 3, time.Hour))
	}

	n, err := svc.Len(ctx, "list")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	values, err := svc.Range(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"v4", "v3", "v2"}, values)
	assert.Equal(t, time.Hour, mr.TTL("list"))

	values, err = svc.Range(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestOperationsFailAfterServerCloses(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, svc.Ping(ctx))
	assert.Error(t, svc.PushCapped(ctx, "list", "v", 3, 0))
}
