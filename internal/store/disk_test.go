package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verfs/verfs"
)

func openTestStore(t *testing.T, opts ...Option) *DiskStore {
	t.Helper()
	st, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return st
}

func TestDiskStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	data := []byte("block payload")
	c, err := st.Put(ctx, verfs.CodecRaw, data)
	require.NoError(t, err)

	got, err := st.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := st.Has(ctx, c)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDiskStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(dir)
	require.NoError(t, err)
	c, err := st.Put(ctx, verfs.CodecRaw, []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := Open(dir)
	require.NoError(t, err)
	defer st2.Close()

	got, err := st2.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestDiskStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	missing, err := verfs.ComputeCID(verfs.CodecRaw, []byte("never stored"))
	require.NoError(t, err)

	_, err = st.Get(ctx, missing)
	assert.ErrorIs(t, err, verfs.ErrNotFound)

	ok, err := st.Has(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskStorePutBlockVerifies(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	data := []byte("verified payload")
	c, err := verfs.ComputeCID(verfs.CodecRaw, data)
	require.NoError(t, err)

	require.NoError(t, st.PutBlock(ctx, c, data))

	err = st.PutBlock(ctx, c, []byte("tampered payload!"))
	assert.Error(t, err, "mismatching bytes must be rejected")

	got, err := st.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDiskStoreCompressesLargeBlocks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(dir, WithCompressionLevel(3))
	require.NoError(t, err)

	// Highly repetitive, well past the compression threshold.
	data := bytes.Repeat([]byte("verfs "), 4096)
	c, err := st.Put(ctx, verfs.CodecRaw, data)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Reopen to bypass the cache and read back through decompression.
	st2, err := Open(dir)
	require.NoError(t, err)
	defer st2.Close()

	got, err := st2.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDiskStoreWithoutCompressionStillReadsCompressed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(dir)
	require.NoError(t, err)
	data := bytes.Repeat([]byte("verfs "), 4096)
	c, err := st.Put(ctx, verfs.CodecRaw, data)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := Open(dir, WithoutCompression())
	require.NoError(t, err)
	defer st2.Close()

	got, err := st2.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDiskStoreRefs(t *testing.T) {
	st := openTestStore(t)

	c, err := verfs.ComputeCID(verfs.CodecRaw, []byte("root"))
	require.NoError(t, err)

	_, err = st.GetRef("main")
	assert.ErrorIs(t, err, verfs.ErrNotFound)

	require.NoError(t, st.PutRef("main", c))
	got, err := st.GetRef("main")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// Refs are mutable pointers; repointing replaces the target.
	c2, err := verfs.ComputeCID(verfs.CodecRaw, []byte("newer root"))
	require.NoError(t, err)
	require.NoError(t, st.PutRef("main", c2))
	got, err = st.GetRef("main")
	require.NoError(t, err)
	assert.Equal(t, c2, got)
}
