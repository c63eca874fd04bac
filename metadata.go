package verfs

import "time"

// Metadata carries the timestamps tracked per node. Times are kept at second
// precision so that re-encoding a loaded node reproduces the original bytes,
// and therefore the original CID.
type Metadata struct {
	Created  int64 `cbor:"c"`
	Modified int64 `cbor:"m"`
}

// NewMetadata returns metadata with both timestamps set to t.
func NewMetadata(t time.Time) Metadata {
	u := t.Unix()
	return Metadata{Created: u, Modified: u}
}

// UpsertMtime sets the modification time, overwriting any prior value.
func (m *Metadata) UpsertMtime(t time.Time) {
	m.Modified = t.Unix()
}

// CreatedTime returns the creation timestamp.
func (m Metadata) CreatedTime() time.Time { return time.Unix(m.Created, 0).UTC() }

// ModifiedTime returns the modification timestamp.
func (m Metadata) ModifiedTime() time.Time { return time.Unix(m.Modified, 0).UTC() }
