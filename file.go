package verfs

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
)

// File is the leaf node variant. It references its content by CID and never
// needs recursive I/O to serialize: persisting a file writes exactly one
// block.
type File struct {
	metadata Metadata
	userland cid.Cid
	previous CidSet

	persistedAs *CidCell
}

// NewFile creates a file node referencing content, with both timestamps set
// to t and an empty previous-version set.
func NewFile(t time.Time, content cid.Cid) *File {
	return &File{
		metadata:    NewMetadata(t),
		userland:    content,
		persistedAs: &CidCell{},
	}
}

// Metadata returns the file's timestamps.
func (f *File) Metadata() Metadata { return f.metadata }

// ContentCid returns the address of the file's content.
func (f *File) ContentCid() cid.Cid { return f.userland }

// Previous returns the set of immediate ancestor persisted states.
func (f *File) Previous() CidSet { return f.previous }

// PersistedAs exposes the write-once cell holding the CID this exact value
// was last stored under.
func (f *File) PersistedAs() *CidCell { return f.persistedAs }

// clone returns a private copy with an unset memoization cell: the copy has
// not been persisted under any CID yet, even though its content is identical.
func (f *File) clone() *File {
	return &File{
		metadata:    f.metadata,
		userland:    f.userland,
		previous:    f.previous,
		persistedAs: &CidCell{},
	}
}

// Store persists the file and returns its address. Repeated calls on the same
// value hit the memoization cell instead of re-serializing.
func (f *File) Store(ctx context.Context, bs BlockStore) (cid.Cid, error) {
	return f.persistedAs.GetOrInit(func() (cid.Cid, error) {
		data, err := encodeEnvelope(&nodeEnvelope{
			Kind:     kindFile,
			Metadata: f.metadata,
			Userland: &cidLink{Cid: f.userland},
			Previous: linksFromSet(f.previous),
		})
		if err != nil {
			return cid.Undef, err
		}
		return bs.Put(ctx, CodecDagCbor, data)
	})
}

// LoadFile fetches and decodes a file node from the store.
func LoadFile(ctx context.Context, c cid.Cid, bs BlockStore) (*File, error) {
	n, err := LoadNode(ctx, c, bs)
	if err != nil {
		return nil, err
	}
	return n.AsFile()
}

// Equal reports field-wise equality, short-circuiting on identity.
func (f *File) Equal(other *File) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	return f.metadata == other.metadata &&
		f.userland == other.userland &&
		f.previous.Equal(other.previous)
}

func fileFromEnvelope(env *nodeEnvelope) (*File, error) {
	if env.Userland == nil {
		return nil, fmt.Errorf("%w: file node missing content link", ErrDecode)
	}
	return &File{
		metadata:    env.Metadata,
		userland:    env.Userland.Cid,
		previous:    setFromLinks(env.Previous),
		persistedAs: &CidCell{},
	}, nil
}
