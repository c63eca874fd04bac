// Package store implements the disk-backed block store.
//
// Blocks are immutable, keyed by CID and sharded on the filesystem the way
// git shards objects. Payloads are zstd-compressed at rest and served through
// a small in-memory LRU. A refs directory maps symbolic names to root CIDs so
// callers can track the latest persisted state of a tree.
package store

import (
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("verfs/store")

// Options configures a DiskStore.
type Options struct {
	CacheSize          int
	CompressionLevel   int
	CompressionEnabled bool
}

// Option is a functional option for Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CacheSize:          512,
		CompressionLevel:   2,
		CompressionEnabled: true,
	}
}

// WithCacheSize sets the number of blocks kept in the in-memory cache.
func WithCacheSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheSize = n
		}
	}
}

// WithCompressionLevel sets the zstd level (1 fastest, 2 default, 3 better).
func WithCompressionLevel(level int) Option {
	return func(o *Options) { o.CompressionLevel = level }
}

// WithoutCompression stores blocks uncompressed. Blocks written earlier with
// compression enabled remain readable.
func WithoutCompression() Option {
	return func(o *Options) { o.CompressionEnabled = false }
}
