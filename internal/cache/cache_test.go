package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Items []int  `json:"items"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	in := payload{Name: "draft", Items: []int{1, 2}}
	require.NoError(t, c.Set(ctx, "draft:1", in, time.Minute))

	// Mutating the original must not reach the stored copy.
	in.Items[0] = 99

	var out payload
	require.NoError(t, c.Get(ctx, "draft:1", &out))
	assert.Equal(t, payload{Name: "draft", Items: []int{1, 2}}, out)

	assert.ErrorIs(t, c.Get(ctx, "missing", &out), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "forever", 2, 0))

	clock = clock.Add(2 * time.Minute)
	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "forever", &v))
	assert.Equal(t, 2, v)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	for _, k := range []string{"emb:a", "emb:b", "draft:a"} {
		require.NoError(t, c.Set(ctx, k, k, 0))
	}

	require.NoError(t, c.DeletePattern(ctx, "emb:*"))
	require.NoError(t, c.Delete(ctx, "nope"))

	var s string
	assert.ErrorIs(t, c.Get(ctx, "emb:a", &s), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "emb:b", &s), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "draft:a", &s))
	assert.Equal(t, "draft:a", s)
}
