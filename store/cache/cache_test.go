package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set(ctx, "a", 1)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.SetWithTTL(ctx, "short", "x", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestCache_MaxItemsEvicts(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var evicted []string
	c := New(Config{
		DefaultTTL: time.Minute,
		MaxItems:   2,
		OnEviction: func(key string, _ any) {
			mu.Lock()
			evicted = append(evicted, key)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.SetWithTTL(ctx, "first", 1, time.Second)
	c.SetWithTTL(ctx, "second", 2, time.Hour)
	c.SetWithTTL(ctx, "third", 3, time.Hour)

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get(ctx, "first")
	assert.False(t, ok)
	assert.Equal(t, []string{"first"}, evicted)
}

type cachedPlan struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

type fakeRedis struct {
	NilRedisCache
	data map[string][]byte
}

func (f *fakeRedis) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) {
	f.data[key] = value
}

func (f *fakeRedis) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeRedis) Delete(_ context.Context, key string) {
	delete(f.data, key)
}

func TestTieredCache_PromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := &fakeRedis{data: map[string][]byte{}}
	tc := NewTieredCache(DefaultTieredConfig(), l2)
	defer tc.Close()

	tc.Set(ctx, "plan:1", &cachedPlan{ID: 1, Name: "Go"})
	require.Contains(t, l2.data, "plan:1")

	// Drop L1 so the read must come from L2.
	tc.l1.Clear(ctx)
	var got cachedPlan
	require.True(t, tc.Get(ctx, "plan:1", &got))
	assert.Equal(t, cachedPlan{ID: 1, Name: "Go"}, got)
	assert.Equal(t, 1, tc.l1.Size())

	tc.Delete(ctx, "plan:1")
	assert.False(t, tc.Get(ctx, "plan:1", &got))
	assert.NotContains(t, l2.data, "plan:1")
}

func TestTieredCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	tc := NewTieredCache(nil, nil)
	defer tc.Close()

	tc.Set(ctx, "k", []int{1, 2, 3})
	var got []int
	require.True(t, tc.Get(ctx, "k", &got))
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, false, tc.Stats()["l2_enabled"])
}
