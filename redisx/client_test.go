package redisx_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	granite "github.com/graniteware/granite"
	"github.com/graniteware/granite/redisx"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ...redisx.Option) (*redisx.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	c := redisx.NewFromClient(rdb, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_StringRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.GetString(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.SetString(ctx, "greeting", "hello"))
	v, found, err := c.GetString(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", v)
}

func TestClient_TypedAccessors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetBool(ctx, "enabled", true))
	b, found, err := c.GetBool(ctx, "enabled")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, b)

	require.NoError(t, c.SetInt(ctx, "count", 41))
	n, err := c.Incr(ctx, "count")
	require.NoError(t, err)
	require.Equal(t, int64(42), n)

	i, found, err := c.GetInt(ctx, "count")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(42), i)
}

func TestClient_JSONValidatesBothWays(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	schema := granite.MustCompile(map[string]any{
		"+Type": "Object",
		"Name":  "String",
		"Age":   "Integer",
	})

	err := c.SetJSON(ctx, "user:1", map[string]any{"Name": "alice", "Age": "x"}, schema)
	_, isIssues := granite.AsIssues(err)
	require.True(t, isIssues, "bad document must not be stored")

	require.NoError(t, c.SetJSON(ctx, "user:1", map[string]any{"Name": "alice", "Age": 30}, schema))
	doc, found, err := c.GetJSON(ctx, "user:1", schema)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(30), doc.(map[string]any)["Age"])
}

func TestClient_HashAndList(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.HSetString(ctx, "session", "user", "alice"))
	v, found, err := c.HGetString(ctx, "session", "user")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", v)

	_, found, err = c.HGetInt(ctx, "session", "absent")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.RPushString(ctx, "queue", "a", "b", "c"))
	all, err := c.LRangeStrings(ctx, "queue", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, all)

	head, found, err := c.LPopString(ctx, "queue")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "a", head)
}

func TestClient_PrefixAndTTL(t *testing.T) {
	c, mr := newTestClient(t, redisx.WithPrefix("app:"), redisx.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, c.SetString(ctx, "k", "v"))
	require.True(t, mr.Exists("app:k"))
	require.Greater(t, mr.TTL("app:k"), time.Duration(0))

	require.NoError(t, c.Delete(ctx, "k"))
	require.False(t, mr.Exists("app:k"))
}
