package verfs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCid derives a valid CID from a seed string.
func testCid(t *testing.T, seed string) cid.Cid {
	t.Helper()
	c, err := ComputeCID(CodecRaw, []byte(seed))
	require.NoError(t, err)
	return c
}

// countingStore wraps MemoryBlockStore to observe how often Put is reached.
type countingStore struct {
	*MemoryBlockStore
	puts atomic.Int64
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryBlockStore: NewMemoryBlockStore()}
}

func (s *countingStore) Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	s.puts.Add(1)
	return s.MemoryBlockStore.Put(ctx, codec, data)
}

var testTime = time.Unix(1700000000, 0).UTC()

func TestNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	fileNode := NewFileNode(NewFile(testTime, testCid(t, "content")))
	fileNode = fileNode.UpdatePrevious([]cid.Cid{testCid(t, "ancestor")})

	dir := NewDirectory(testTime)
	dir.PutChildCid("readme.md", testCid(t, "child-a"))
	dir.PutChildCid("data.bin", testCid(t, "child-b"))
	dirNode := NewDirNode(dir)

	fileCid, err := fileNode.Store(ctx, bs)
	require.NoError(t, err)
	dirCid, err := dirNode.Store(ctx, bs)
	require.NoError(t, err)

	loadedFile, err := LoadNode(ctx, fileCid, bs)
	require.NoError(t, err)
	loadedDir, err := LoadNode(ctx, dirCid, bs)
	require.NoError(t, err)

	assert.True(t, loadedFile.Equal(fileNode))
	assert.True(t, loadedDir.Equal(dirNode))
	assert.True(t, loadedFile.IsFile())
	assert.True(t, loadedDir.IsDir())
}

func TestStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	bs := newCountingStore()

	node := NewFileNode(NewFile(testTime, testCid(t, "content")))

	first, err := node.Store(ctx, bs)
	require.NoError(t, err)
	putsAfterFirst := bs.puts.Load()

	second, err := node.Store(ctx, bs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, putsAfterFirst, bs.puts.Load(), "second store must hit the memoization cell")

	// A content-identical value has its own cell, but serialization is
	// deterministic: it lands on the same CID without adding a block.
	twin := NewFileNode(NewFile(testTime, testCid(t, "content")))
	third, err := twin.Store(ctx, bs)
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, bs.Len())
}

func TestUpsertMtimeIsCopyOnWrite(t *testing.T) {
	later := testTime.Add(time.Hour)

	a := NewFileNode(NewFile(testTime, testCid(t, "content")))
	b := a
	a.UpsertMtime(later)

	aFile, err := a.AsFile()
	require.NoError(t, err)
	bFile, err := b.AsFile()
	require.NoError(t, err)

	assert.Equal(t, later.Unix(), aFile.Metadata().Modified)
	assert.Equal(t, testTime.Unix(), bFile.Metadata().Modified, "other handle must keep the pre-mutation value")

	c := NewDirNode(NewDirectory(testTime))
	d := c
	c.UpsertMtime(later)

	cDir, err := c.AsDir()
	require.NoError(t, err)
	dDir, err := d.AsDir()
	require.NoError(t, err)

	assert.Equal(t, later.Unix(), cDir.Metadata().Modified)
	assert.Equal(t, testTime.Unix(), dDir.Metadata().Modified)
}

func TestMutatedCloneGetsFreshCell(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	node := NewFileNode(NewFile(testTime, testCid(t, "content")))
	_, err := node.Store(ctx, bs)
	require.NoError(t, err)

	_, ok := node.PersistedCid()
	assert.True(t, ok)

	updated := node.UpdatePrevious([]cid.Cid{testCid(t, "ancestor")})
	_, ok = updated.PersistedCid()
	assert.False(t, ok, "a clone has not been persisted under any CID yet")
}

func TestNarrowingExclusivity(t *testing.T) {
	fileNode := NewFileNode(NewFile(testTime, testCid(t, "content")))
	dirNode := NewDirNode(NewDirectory(testTime))

	_, err := fileNode.AsFile()
	assert.NoError(t, err)
	_, err = fileNode.AsDir()
	assert.ErrorIs(t, err, ErrNotADirectory)
	assert.True(t, fileNode.IsFile())
	assert.False(t, fileNode.IsDir())

	_, err = dirNode.AsDir()
	assert.NoError(t, err)
	_, err = dirNode.AsFile()
	assert.ErrorIs(t, err, ErrNotAFile)
	assert.True(t, dirNode.IsDir())
	assert.False(t, dirNode.IsFile())
}

func TestUpdatePreviousReplacesSet(t *testing.T) {
	c1 := testCid(t, "one")
	c2 := testCid(t, "two")

	node := NewFileNode(NewFile(testTime, testCid(t, "content")))
	updated := node.UpdatePrevious([]cid.Cid{c1, c2, c1})

	previous := updated.Previous()
	assert.Equal(t, 2, previous.Len(), "duplicates must collapse")
	assert.True(t, previous.Contains(c1))
	assert.True(t, previous.Contains(c2))

	assert.Equal(t, 0, node.Previous().Len(), "receiver must be untouched")

	// Input order must not matter.
	reordered := node.UpdatePrevious([]cid.Cid{c2, c1})
	assert.True(t, reordered.Previous().Equal(previous))
}

func TestNodeEquality(t *testing.T) {
	fileNode := NewFileNode(NewFile(testTime, testCid(t, "content")))
	sameInstance := fileNode
	sameValue := NewFileNode(NewFile(testTime, testCid(t, "content")))
	otherValue := NewFileNode(NewFile(testTime, testCid(t, "other")))
	dirNode := NewDirNode(NewDirectory(testTime))

	assert.True(t, fileNode.Equal(sameInstance))
	assert.True(t, fileNode.Equal(sameValue))
	assert.False(t, fileNode.Equal(otherValue))
	assert.False(t, fileNode.Equal(dirNode), "cross-variant comparison is always unequal")
	assert.False(t, dirNode.Equal(fileNode))
}

func TestLoadNodeNotFound(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	_, err := LoadNode(ctx, testCid(t, "nowhere"), bs)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadNodeDecodeError(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	c, err := bs.Put(ctx, CodecRaw, []byte("not a node record"))
	require.NoError(t, err)

	_, err = LoadNode(ctx, c, bs)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestStoreCancelledContextDoesNotMemoize(t *testing.T) {
	bs := NewMemoryBlockStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	node := NewFileNode(NewFile(testTime, testCid(t, "content")))
	_, err := node.Store(ctx, bs)
	require.Error(t, err)

	_, ok := node.PersistedCid()
	assert.False(t, ok, "a failed store must leave the cell unset")

	// The same value stores fine once the caller retries without the
	// cancelled context.
	c, err := node.Store(context.Background(), bs)
	require.NoError(t, err)
	memoized, ok := node.PersistedCid()
	require.True(t, ok)
	assert.Equal(t, c, memoized)
}

func TestFileInDirectoryScenario(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryBlockStore()

	contentCid := testCid(t, "file body")
	file := NewFile(testTime, contentCid)
	fileNode := NewFileNode(file)

	cidA, err := fileNode.Store(ctx, bs)
	require.NoError(t, err)

	dir := NewDirectory(testTime)
	dir.PutChildCid("hello.txt", cidA)

	cidB, err := NewDirNode(dir).Store(ctx, bs)
	require.NoError(t, err)

	loaded, err := LoadNode(ctx, cidB, bs)
	require.NoError(t, err)
	loadedDir, err := loaded.AsDir()
	require.NoError(t, err)

	require.Equal(t, []string{"hello.txt"}, loadedDir.ChildNames())
	link, ok := loadedDir.Child("hello.txt")
	require.True(t, ok)

	childCid, ok := link.Cid()
	require.True(t, ok)
	assert.Equal(t, cidA, childCid)

	childNode, err := link.Resolve(ctx, bs)
	require.NoError(t, err)
	loadedFile, err := childNode.AsFile()
	require.NoError(t, err)

	assert.Equal(t, contentCid, loadedFile.ContentCid())
	assert.Equal(t, file.Metadata(), loadedFile.Metadata())
	assert.True(t, loadedFile.Previous().Equal(file.Previous()))
}
