package verfs

import (
	"sort"

	"github.com/ipfs/go-cid"
)

// CidSet is an ordered set of CIDs: sorted by binary representation, no
// duplicates. Nodes use it to record their immediate ancestor persisted
// states. The zero value is the empty set.
type CidSet struct {
	cids []cid.Cid
}

// NewCidSet builds a set from cids, collapsing duplicates and normalizing
// order. Undefined CIDs are ignored.
func NewCidSet(cids ...cid.Cid) CidSet {
	seen := make(map[cid.Cid]struct{}, len(cids))
	out := make([]cid.Cid, 0, len(cids))
	for _, c := range cids {
		if !c.Defined() {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].KeyString() < out[j].KeyString()
	})
	return CidSet{cids: out}
}

// Len returns the number of members.
func (s CidSet) Len() int { return len(s.cids) }

// Contains reports membership.
func (s CidSet) Contains(c cid.Cid) bool {
	i := sort.Search(len(s.cids), func(i int) bool {
		return s.cids[i].KeyString() >= c.KeyString()
	})
	return i < len(s.cids) && s.cids[i] == c
}

// Slice returns the members in set order. The caller owns the returned slice.
func (s CidSet) Slice() []cid.Cid {
	out := make([]cid.Cid, len(s.cids))
	copy(out, s.cids)
	return out
}

// Equal reports whether both sets have the same members.
func (s CidSet) Equal(other CidSet) bool {
	if len(s.cids) != len(other.cids) {
		return false
	}
	for i, c := range s.cids {
		if other.cids[i] != c {
			return false
		}
	}
	return true
}
