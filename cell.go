package verfs

import (
	"sync/atomic"

	"github.com/ipfs/go-cid"
)

// CidCell is a write-once cell remembering the CID an in-memory node value
// was persisted under. Once set it is never overwritten for that value;
// concurrent initializers race and the first to finish wins, with every
// caller observing the winner's value.
type CidCell struct {
	v atomic.Pointer[cid.Cid]
}

// Get returns the memoized CID, if the cell has been populated.
func (c *CidCell) Get() (cid.Cid, bool) {
	if p := c.v.Load(); p != nil {
		return *p, true
	}
	return cid.Undef, false
}

// Set records id if the cell is still unset, reporting whether this call won.
func (c *CidCell) Set(id cid.Cid) bool {
	return c.v.CompareAndSwap(nil, &id)
}

// GetOrInit returns the memoized CID, running init to produce one if the cell
// is empty. The cell is written only after init succeeds, so a failed or
// cancelled store leaves it unset.
func (c *CidCell) GetOrInit(init func() (cid.Cid, error)) (cid.Cid, error) {
	if p := c.v.Load(); p != nil {
		return *p, nil
	}
	id, err := init()
	if err != nil {
		return cid.Undef, err
	}
	if c.v.CompareAndSwap(nil, &id) {
		return id, nil
	}
	// Lost the race; the winner's value is the one every caller sees.
	return *c.v.Load(), nil
}
