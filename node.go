package verfs

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
)

// Node unifies the two file-system variants behind one handle; exactly one of
// the payloads is set. Copying a Node shares the underlying value. Mutating
// operations clone the value first and redirect the mutated handle, so
// holders of other copies keep observing the pre-mutation state.
type Node struct {
	file *File
	dir  *Directory
}

// NewFileNode wraps a file in a node handle.
func NewFileNode(f *File) Node { return Node{file: f} }

// NewDirNode wraps a directory in a node handle.
func NewDirNode(d *Directory) Node { return Node{dir: d} }

// UpsertMtime sets the modification time on a private copy of the underlying
// value and points this handle at it.
func (n *Node) UpsertMtime(t time.Time) {
	switch {
	case n.file != nil:
		f := n.file.clone()
		f.metadata.UpsertMtime(t)
		n.file = f
	case n.dir != nil:
		d := n.dir.clone()
		d.metadata.UpsertMtime(t)
		n.dir = d
	}
}

// UpdatePrevious returns a node whose previous-version set is replaced by the
// deduplicated, order-normalized set built from cids. The receiver is left
// untouched.
func (n Node) UpdatePrevious(cids []cid.Cid) Node {
	switch {
	case n.file != nil:
		f := n.file.clone()
		f.previous = NewCidSet(cids...)
		return Node{file: f}
	case n.dir != nil:
		d := n.dir.clone()
		d.previous = NewCidSet(cids...)
		return Node{dir: d}
	}
	return n
}

// Previous returns the previous-version set of the active variant.
func (n Node) Previous() CidSet {
	switch {
	case n.file != nil:
		return n.file.previous
	case n.dir != nil:
		return n.dir.previous
	}
	return CidSet{}
}

// AsDir narrows the node to its directory variant. It fails with
// ErrNotADirectory when the active variant is a file.
func (n Node) AsDir() (*Directory, error) {
	if n.dir == nil {
		return nil, ErrNotADirectory
	}
	return n.dir, nil
}

// AsFile narrows the node to its file variant. It fails with ErrNotAFile when
// the active variant is a directory.
func (n Node) AsFile() (*File, error) {
	if n.file == nil {
		return nil, ErrNotAFile
	}
	return n.file, nil
}

// IsDir reports whether the active variant is a directory.
func (n Node) IsDir() bool { return n.dir != nil }

// IsFile reports whether the active variant is a file.
func (n Node) IsFile() bool { return n.file != nil }

// Store persists the active variant and returns its address. Files serialize
// synchronously; directories persist their in-memory children first.
func (n Node) Store(ctx context.Context, bs BlockStore) (cid.Cid, error) {
	switch {
	case n.file != nil:
		return n.file.Store(ctx, bs)
	case n.dir != nil:
		return n.dir.Store(ctx, bs)
	}
	return cid.Undef, errEmptyNode
}

// PersistedCid returns the CID this exact value was last stored under, if its
// memoization cell has been populated.
func (n Node) PersistedCid() (cid.Cid, bool) {
	switch {
	case n.file != nil:
		return n.file.persistedAs.Get()
	case n.dir != nil:
		return n.dir.persistedAs.Get()
	}
	return cid.Undef, false
}

// LoadNode fetches cid from the store and reconstructs the matching variant
// from the tagged wire form. A directory's children are not loaded; they stay
// CID references until resolved.
func LoadNode(ctx context.Context, c cid.Cid, bs BlockStore) (Node, error) {
	data, err := bs.Get(ctx, c)
	if err != nil {
		return Node{}, err
	}
	return DecodeNode(data)
}

// Equal reports whether both handles hold the same variant with equal values.
// Same-instance comparison short-circuits the field comparison; the result is
// identical either way.
func (n Node) Equal(other Node) bool {
	switch {
	case n.file != nil && other.file != nil:
		return n.file == other.file || n.file.Equal(other.file)
	case n.dir != nil && other.dir != nil:
		return n.dir == other.dir || n.dir.Equal(other.dir)
	}
	return false
}
