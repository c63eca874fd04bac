package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"

	"github.com/verfs/verfs"
	"github.com/verfs/verfs/internal/compression"
)

// DiskStore implements verfs.BlockStore on the local filesystem.
//
// Layout:
//
//	basePath/
//	  objects/
//	    <shard>/<rest-of-cid>   (immutable, possibly zstd-compressed)
//	  refs/
//	    <name>                  (plain text root CID)
type DiskStore struct {
	basePath   string
	cache      *lru.Cache[string, []byte]
	compressor *compression.Compressor
}

var _ verfs.BlockStore = (*DiskStore)(nil)

// Open creates or opens a disk store rooted at basePath.
func Open(basePath string, opts ...Option) (*DiskStore, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	for _, dir := range []string{filepath.Join(basePath, "objects"), filepath.Join(basePath, "refs")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	cache, err := lru.New[string, []byte](options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create block cache: %w", err)
	}

	compressor, err := compression.NewCompressor(options.CompressionLevel, options.CompressionEnabled)
	if err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}

	return &DiskStore{
		basePath:   basePath,
		cache:      cache,
		compressor: compressor,
	}, nil
}

// Put stores data under its computed CID. Storing the same bytes twice is a
// no-op.
func (s *DiskStore) Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	c, err := verfs.ComputeCID(codec, data)
	if err != nil {
		return cid.Undef, err
	}
	if err := s.write(c, data); err != nil {
		return cid.Undef, err
	}
	return c, nil
}

// PutBlock stores data under a CID computed elsewhere (e.g. received from a
// remote), verifying that the bytes actually hash to it.
func (s *DiskStore) PutBlock(ctx context.Context, c cid.Cid, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	computed, err := c.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("verify block: %w", err)
	}
	if computed != c {
		return fmt.Errorf("block does not match cid %s (got %s)", c, computed)
	}
	return s.write(c, data)
}

func (s *DiskStore) write(c cid.Cid, data []byte) error {
	path := s.objectPath(c)
	if _, err := os.Stat(path); err == nil {
		return nil // already stored
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}
	if err := os.WriteFile(path, s.compressor.Compress(data), 0644); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	s.cache.Add(c.KeyString(), data)
	log.Debugw("stored block", "cid", c, "size", len(data))
	return nil
}

// Get retrieves the block addressed by c.
func (s *DiskStore) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if data, ok := s.cache.Get(c.KeyString()); ok {
		return data, nil
	}

	raw, err := os.ReadFile(s.objectPath(c))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verfs.ErrNotFound, c)
		}
		return nil, fmt.Errorf("read block: %w", err)
	}

	data, err := s.compressor.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress block %s: %w", c, err)
	}

	s.cache.Add(c.KeyString(), data)
	return data, nil
}

// Has reports whether a block exists for c.
func (s *DiskStore) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.cache.Contains(c.KeyString()) {
		return true, nil
	}
	_, err := os.Stat(s.objectPath(c))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// PutRef points a symbolic name at a root CID.
func (s *DiskStore) PutRef(name string, c cid.Cid) error {
	path := s.refPath(name)
	if err := os.WriteFile(path, []byte(c.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("write ref %s: %w", name, err)
	}
	log.Debugw("updated ref", "name", name, "cid", c)
	return nil
}

// GetRef resolves a symbolic name to the CID it points at.
func (s *DiskStore) GetRef(name string) (cid.Cid, error) {
	data, err := os.ReadFile(s.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return cid.Undef, fmt.Errorf("ref %s: %w", name, verfs.ErrNotFound)
		}
		return cid.Undef, fmt.Errorf("read ref %s: %w", name, err)
	}
	c, err := cid.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return cid.Undef, fmt.Errorf("parse ref %s: %w", name, err)
	}
	return c, nil
}

// Close releases the compressor.
func (s *DiskStore) Close() error {
	return s.compressor.Close()
}

// objectPath shards blocks git-style under objects/, using the base32
// multibase form of the CID as filename.
func (s *DiskStore) objectPath(c cid.Cid) string {
	enc, _ := multibase.Encode(multibase.Base32, c.Bytes())
	if len(enc) < 4 {
		return filepath.Join(s.basePath, "objects", enc)
	}
	return filepath.Join(s.basePath, "objects", enc[1:3], enc[3:])
}

func (s *DiskStore) refPath(name string) string {
	return filepath.Join(s.basePath, "refs", name)
}
