package verfs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ipfs/go-cid"
)

// Link is a directory's reference to one child: a CID, an in-memory node, or
// both once the node has been persisted or the address dereferenced. The
// caches only grow; a link never forgets what it learned.
type Link struct {
	cid  CidCell
	node atomic.Pointer[Node]
}

var errDanglingLink = errors.New("verfs: link holds neither node nor cid")

// NewLinkFromCid references an already-persisted child by address.
func NewLinkFromCid(c cid.Cid) *Link {
	l := &Link{}
	l.cid.Set(c)
	return l
}

// NewLinkFromNode references an in-memory child that may not have been
// persisted yet.
func NewLinkFromNode(n Node) *Link {
	l := &Link{}
	l.node.Store(&n)
	return l
}

// Cid returns the child's address if it is known without touching the store.
func (l *Link) Cid() (cid.Cid, bool) {
	return l.cid.Get()
}

// Node returns the in-memory child if it was linked directly or has been
// resolved before.
func (l *Link) Node() (Node, bool) {
	if p := l.node.Load(); p != nil {
		return *p, true
	}
	return Node{}, false
}

// ResolveCid returns the child's address, persisting the in-memory node first
// when the address is not known yet.
func (l *Link) ResolveCid(ctx context.Context, bs BlockStore) (cid.Cid, error) {
	return l.cid.GetOrInit(func() (cid.Cid, error) {
		p := l.node.Load()
		if p == nil {
			return cid.Undef, errDanglingLink
		}
		return p.Store(ctx, bs)
	})
}

// Resolve returns the child node, loading it from the store on first use.
func (l *Link) Resolve(ctx context.Context, bs BlockStore) (Node, error) {
	if p := l.node.Load(); p != nil {
		return *p, nil
	}
	c, ok := l.cid.Get()
	if !ok {
		return Node{}, errDanglingLink
	}
	n, err := LoadNode(ctx, c, bs)
	if err != nil {
		return Node{}, err
	}
	l.node.CompareAndSwap(nil, &n)
	return *l.node.Load(), nil
}

// Equal compares two links, preferring addresses when both sides know them.
func (l *Link) Equal(other *Link) bool {
	if l == other {
		return true
	}
	if l == nil || other == nil {
		return false
	}
	if lc, lok := l.cid.Get(); lok {
		if oc, ook := other.cid.Get(); ook {
			return lc == oc
		}
	}
	ln, lok := l.Node()
	on, ook := other.Node()
	return lok && ook && ln.Equal(on)
}
