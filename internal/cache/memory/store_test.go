package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paarshan4800/fin-advisor/internal/cache"
)

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	value := []byte(`{"handle":"mq:1"}`)
	require.NoError(t, s.Set(ctx, "k", value, time.Minute))

	value[0] = 'X'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"handle":"mq:1"}`, string(got))
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 300*time.Second))

	now = now.Add(299 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("mq:%024x", i), []byte("rows"), time.Second))
	}
	require.Equal(t, 1000, s.Len())

	now = now.Add(30 * time.Second)
	require.NoError(t, s.Set(ctx, "fresh", []byte("v"), time.Hour))
	assert.Equal(t, 1001, s.Len(), "sweeps are at most once per interval")

	now = now.Add(time.Hour)
	require.NoError(t, s.Set(ctx, "latest", []byte("v"), time.Minute))
	assert.Equal(t, 1, s.Len())
	_, err := s.Get(ctx, "latest")
	assert.NoError(t, err)
}

func TestStore_MissingKey(t *testing.T) {
	_, err := NewStore().Get(context.Background(), "absent")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestStore_EmptyKey(t *testing.T) {
	assert.Error(t, NewStore().Set(context.Background(), "", []byte("v"), time.Second))
}

func TestNamespaced(t *testing.T) {
	ctx := context.Background()
	inner := NewStore()
	ns := cache.WithNamespace(inner, "finance_agent")

	require.NoError(t, ns.Set(ctx, "mq:abc", []byte("v"), time.Minute))

	got, err := inner.Get(ctx, "finance_agent:mq:abc")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	got, err = ns.Get(ctx, "mq:abc")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	_, err = cache.WithNamespace(inner, "other").Get(ctx, "mq:abc")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}
