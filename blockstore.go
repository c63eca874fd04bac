package verfs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
)

// Codecs used for block addressing. Node records are dag-cbor; opaque content
// referenced by file nodes is raw.
const (
	CodecRaw     = uint64(cid.Raw)
	CodecDagCbor = uint64(cid.DagCBOR)
)

// BlockStore is the content-addressable persistence service nodes are written
// to. Put must be content-deterministic: the same bytes under the same codec
// always map to the same CID, and storing them twice is a no-op.
type BlockStore interface {
	Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error)
	Get(ctx context.Context, c cid.Cid) ([]byte, error)
	Has(ctx context.Context, c cid.Cid) (bool, error)
}

// MemoryBlockStore keeps blocks in a map. It is safe for concurrent use and
// is the store of choice for tests and short-lived pipelines.
type MemoryBlockStore struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

// NewMemoryBlockStore creates an empty in-memory block store.
func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{blocks: make(map[string][]byte)}
}

// Put stores data under its computed CID.
func (s *MemoryBlockStore) Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	c, err := ComputeCID(codec, data)
	if err != nil {
		return cid.Undef, err
	}
	s.mu.Lock()
	if _, ok := s.blocks[c.KeyString()]; !ok {
		buf := make([]byte, len(data))
		copy(buf, data)
		s.blocks[c.KeyString()] = buf
	}
	s.mu.Unlock()
	return c, nil
}

// Get retrieves the block addressed by c.
func (s *MemoryBlockStore) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blocks[c.KeyString()]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}
	return data, nil
}

// Has reports whether a block exists for c.
func (s *MemoryBlockStore) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.blocks[c.KeyString()]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored blocks.
func (s *MemoryBlockStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
