package verfs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/sourcegraph/conc/pool"
)

// storeConcurrency bounds the number of children persisted in parallel per
// directory.
const storeConcurrency = 4

// Directory is the interior node variant. Its children may still be in-memory
// nodes; persisting the directory first persists those, so their addresses
// can be embedded in the serialized child map.
//
// The child-mutating methods operate on the receiver directly and are meant
// for values the caller exclusively owns (typically a directory under
// construction). Shared values are mutated through the copy-on-write
// operations on Node.
type Directory struct {
	metadata Metadata
	children map[string]*Link
	previous CidSet

	persistedAs *CidCell
}

// NewDirectory creates an empty directory node with both timestamps set to t.
func NewDirectory(t time.Time) *Directory {
	return &Directory{
		metadata:    NewMetadata(t),
		children:    make(map[string]*Link),
		persistedAs: &CidCell{},
	}
}

// Metadata returns the directory's timestamps.
func (d *Directory) Metadata() Metadata { return d.metadata }

// Previous returns the set of immediate ancestor persisted states.
func (d *Directory) Previous() CidSet { return d.previous }

// PersistedAs exposes the write-once cell holding the CID this exact value
// was last stored under.
func (d *Directory) PersistedAs() *CidCell { return d.persistedAs }

// Child returns the link stored under name.
func (d *Directory) Child(name string) (*Link, bool) {
	l, ok := d.children[name]
	return l, ok
}

// ChildNames returns the child names in lexical order.
func (d *Directory) ChildNames() []string {
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PutChild links an in-memory child node under name, replacing any existing
// entry.
func (d *Directory) PutChild(name string, n Node) {
	d.children[name] = NewLinkFromNode(n)
}

// PutChildCid links an already-persisted child by address.
func (d *Directory) PutChildCid(name string, c cid.Cid) {
	d.children[name] = NewLinkFromCid(c)
}

// RemoveChild drops the entry under name, if present.
func (d *Directory) RemoveChild(name string) {
	delete(d.children, name)
}

// clone returns a private copy with an unset memoization cell. Links are
// shared: their caches describe the same immutable children.
func (d *Directory) clone() *Directory {
	children := make(map[string]*Link, len(d.children))
	for name, l := range d.children {
		children[name] = l
	}
	return &Directory{
		metadata:    d.metadata,
		children:    children,
		previous:    d.previous,
		persistedAs: &CidCell{},
	}
}

// Store persists the directory and returns its address. Children that are
// still in-memory nodes are persisted first, in parallel, because the
// directory record embeds their CIDs. Repeated calls on the same value hit
// the memoization cell.
//
// Recursion depth follows the tree depth and is unbounded here.
func (d *Directory) Store(ctx context.Context, bs BlockStore) (cid.Cid, error) {
	return d.persistedAs.GetOrInit(func() (cid.Cid, error) {
		entries, err := d.resolveChildren(ctx, bs)
		if err != nil {
			return cid.Undef, err
		}
		data, err := encodeEnvelope(&nodeEnvelope{
			Kind:     kindDir,
			Metadata: d.metadata,
			Entries:  entries,
			Previous: linksFromSet(d.previous),
		})
		if err != nil {
			return cid.Undef, err
		}
		return bs.Put(ctx, CodecDagCbor, data)
	})
}

// resolveChildren persists any unpersisted children and returns the child map
// in wire form.
func (d *Directory) resolveChildren(ctx context.Context, bs BlockStore) (map[string]cidLink, error) {
	entries := make(map[string]cidLink, len(d.children))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(storeConcurrency).WithContext(ctx).WithCancelOnError()
	for name, link := range d.children {
		p.Go(func(ctx context.Context) error {
			c, err := link.ResolveCid(ctx, bs)
			if err != nil {
				return fmt.Errorf("persist child %q: %w", name, err)
			}
			mu.Lock()
			entries[name] = cidLink{Cid: c}
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadDirectory fetches and decodes a directory node from the store.
func LoadDirectory(ctx context.Context, c cid.Cid, bs BlockStore) (*Directory, error) {
	n, err := LoadNode(ctx, c, bs)
	if err != nil {
		return nil, err
	}
	return n.AsDir()
}

// Equal reports field-wise equality, short-circuiting on identity.
func (d *Directory) Equal(other *Directory) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.metadata != other.metadata || !d.previous.Equal(other.previous) {
		return false
	}
	if len(d.children) != len(other.children) {
		return false
	}
	for name, l := range d.children {
		ol, ok := other.children[name]
		if !ok || !l.Equal(ol) {
			return false
		}
	}
	return true
}

// dirFromEnvelope rebuilds a directory whose children stay CID links until a
// traversal collaborator resolves them.
func dirFromEnvelope(env *nodeEnvelope) *Directory {
	children := make(map[string]*Link, len(env.Entries))
	for name, l := range env.Entries {
		children[name] = NewLinkFromCid(l.Cid)
	}
	return &Directory{
		metadata:    env.Metadata,
		children:    children,
		previous:    setFromLinks(env.Previous),
		persistedAs: &CidCell{},
	}
}
