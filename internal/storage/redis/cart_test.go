package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bookie/internal/domain/cart"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*CartStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartStorage(client, ttl), mr
}

func TestLoad_Miss(t *testing.T) {
	s, _ := setupTestRedis(t, 0)

	_, err := s.Load(context.Background(), cart.Key("u1"))
	require.ErrorIs(t, err, cart.ErrNoBlob)
}

func TestSaveLoad(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, cart.Key("u1"), []byte(`{"items":[]}`)))

	raw, err := mr.Get("bookie_cart:u1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, raw)

	got, err := s.Load(ctx, cart.Key("u1"))
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(got))
}

func TestSave_TTL(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("x")))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "k")
	require.ErrorIs(t, err, cart.ErrNoBlob)
}

func TestLoad_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	mr.Close()

	_, err := s.Load(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrNoBlob)
	require.Error(t, s.Ping(context.Background()))
}

func TestStore_CorruptBlobInRedis(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()
	require.NoError(t, mr.Set(cart.Key("u1"), "%%%"))

	st := cart.NewStore(s, cart.Key("u1"), nil)
	items, err := st.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	c, err := st.AddItem(ctx, cart.Item{ID: "b1"}, 1)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	raw, err := mr.Get(cart.Key("u1"))
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"b1"`)
}
