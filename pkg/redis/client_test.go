package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	incr   map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, incr: map[string]int64{}}
}

func (f *fakeStore) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.values[key] = asString(value)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *goredis.StringCmd {
	if v, ok := f.values[key]; ok {
		return goredis.NewStringResult(v, nil)
	}
	return goredis.NewStringResult("", goredis.Nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.values[key] = asString(value)
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(_ context.Context, key string) *goredis.IntCmd {
	f.incr[key]++
	return goredis.NewIntResult(f.incr[key], nil)
}

func (f *fakeStore) Expire(_ context.Context, _ string, _ time.Duration) *goredis.BoolCmd {
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func TestKeyNamespacing(t *testing.T) {
	c := &Client{store: newFakeStore()}

	assert.Equal(t, "agri:idempotency:webhook:evt-1", c.IdempotencyKey("webhook", "evt-1"))
	assert.Equal(t, "agri:rate_limit:login:ip", c.RateLimitKey("login:ip"))
	assert.Equal(t, "agri:cache:analytics:seller-1:30d", c.CacheKey("analytics", "seller-1", "30d"))
}

func TestSetNXFirstWriterWins(t *testing.T) {
	c := &Client{store: newFakeStore()}
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFixedWindowAllow(t *testing.T) {
	c := &Client{store: newFakeStore()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := c.FixedWindowAllow(ctx, "login", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, count, err := c.FixedWindowAllow(ctx, "login", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(4), count)
}

func TestJSONCacheRoundTrip(t *testing.T) {
	c := &Client{store: newFakeStore()}
	ctx := context.Background()

	type summary struct {
		Orders  int    `json:"orders"`
		Revenue string `json:"revenue"`
	}

	var missed summary
	err := c.GetJSON(ctx, "missing", &missed)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetJSON(ctx, "k", summary{Orders: 4, Revenue: "1250.50"}, time.Minute))

	var got summary
	require.NoError(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, 4, got.Orders)
	assert.Equal(t, "1250.50", got.Revenue)
}
