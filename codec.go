package verfs

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Canonical CBOR options: sorted map keys, definite lengths only, unix
// integer times. The same node value must always serialize to the same bytes,
// and therefore the same CID.
var encOptions = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloatNone,
	Time:          cbor.TimeUnix,
	TimeTag:       cbor.EncTagNone,
	IndefLength:   cbor.IndefLengthForbidden,
	BigIntConvert: cbor.BigIntConvertShortest,
}

// Strict decode options: bounded containers and nesting, duplicate map keys
// rejected.
var decOptions = cbor.DecOptions{
	MaxArrayElements: 65536,
	MaxMapPairs:      65536,
	MaxNestedLevels:  64,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
}

var (
	em, _ = encOptions.EncMode()
	dm, _ = decOptions.DecMode()
)

// ComputeCID returns the CIDv1 address of data under the given codec.
func ComputeCID(codec uint64, data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("multihash: %w", err)
	}
	return cid.NewCidV1(codec, mh), nil
}

const cidTagNumber = 42

// cidLink wraps a CID for wire encoding: CBOR tag 42 over the identity
// multibase prefix (0x00) followed by the binary CID.
type cidLink struct {
	Cid cid.Cid
}

// MarshalCBOR encodes the link as a tagged byte string.
func (l cidLink) MarshalCBOR() ([]byte, error) {
	if !l.Cid.Defined() {
		return nil, fmt.Errorf("verfs: cannot encode link to undefined cid")
	}
	content := append([]byte{0x00}, l.Cid.Bytes()...)
	return em.Marshal(cbor.Tag{Number: cidTagNumber, Content: content})
}

// UnmarshalCBOR decodes a tagged byte string back into a CID.
func (l *cidLink) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := dm.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if tag.Number != cidTagNumber {
		return fmt.Errorf("%w: expected tag %d for cid link, got %d", ErrDecode, cidTagNumber, tag.Number)
	}
	raw, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("%w: cid link content must be a byte string", ErrDecode)
	}
	if len(raw) < 2 || raw[0] != 0x00 {
		return fmt.Errorf("%w: cid link missing identity multibase prefix", ErrDecode)
	}
	c, err := cid.Cast(raw[1:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	l.Cid = c
	return nil
}

// Node kind tags in the wire envelope.
const (
	kindFile = "file"
	kindDir  = "dir"
)

// nodeEnvelope is the tagged wire form shared by both node variants. Userland
// is set for files, Entries for directories.
type nodeEnvelope struct {
	Kind     string             `cbor:"k"`
	Metadata Metadata           `cbor:"m"`
	Userland *cidLink           `cbor:"u,omitempty"`
	Entries  map[string]cidLink `cbor:"e,omitempty"`
	Previous []cidLink          `cbor:"p"`
}

func encodeEnvelope(env *nodeEnvelope) ([]byte, error) {
	data, err := em.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode node: %w", err)
	}
	return data, nil
}

// DecodeNode reconstructs a node from its tagged wire form.
func DecodeNode(data []byte) (Node, error) {
	var env nodeEnvelope
	if err := dm.Unmarshal(data, &env); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch env.Kind {
	case kindFile:
		f, err := fileFromEnvelope(&env)
		if err != nil {
			return Node{}, err
		}
		return Node{file: f}, nil
	case kindDir:
		return Node{dir: dirFromEnvelope(&env)}, nil
	default:
		return Node{}, fmt.Errorf("%w: unknown node kind %q", ErrDecode, env.Kind)
	}
}

func linksFromSet(s CidSet) []cidLink {
	out := make([]cidLink, 0, s.Len())
	for _, c := range s.Slice() {
		out = append(out, cidLink{Cid: c})
	}
	return out
}

func setFromLinks(links []cidLink) CidSet {
	cids := make([]cid.Cid, 0, len(links))
	for _, l := range links {
		cids = append(cids, l.Cid)
	}
	return NewCidSet(cids...)
}
