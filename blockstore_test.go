package verfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	data := []byte("some block")
	c, err := bs.Put(ctx, CodecRaw, data)
	require.NoError(t, err)

	got, err := bs.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := bs.Has(ctx, c)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBlockStoreDeduplicates(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	a, err := bs.Put(ctx, CodecRaw, []byte("same"))
	require.NoError(t, err)
	b, err := bs.Put(ctx, CodecRaw, []byte("same"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, bs.Len())
}

func TestMemoryBlockStoreNotFound(t *testing.T) {
	bs := NewMemoryBlockStore()

	_, err := bs.Get(context.Background(), testCid(t, "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := bs.Has(context.Background(), testCid(t, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBlockStorePutCopiesData(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	data := []byte("mutable buffer")
	c, err := bs.Put(ctx, CodecRaw, data)
	require.NoError(t, err)

	data[0] = 'X'

	got, err := bs.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable buffer"), got)
}

func TestMemoryBlockStoreHonorsContext(t *testing.T) {
	bs := NewMemoryBlockStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bs.Put(ctx, CodecRaw, []byte("data"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = bs.Get(ctx, testCid(t, "any"))
	assert.ErrorIs(t, err, context.Canceled)
}
