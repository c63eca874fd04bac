package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ipfs/go-cid"
)

// Layer sizing for the packing plan.
const (
	layerTargetSize = 5 * 1024 * 1024
	layerSoftMax    = 10 * 1024 * 1024
)

// PackBlocks serializes blocks into a layer payload.
// Entry format: [cidLen 2B][cid][dataLen 8B][data], entries sorted by CID so
// the same block set always packs to the same bytes.
func PackBlocks(blocks map[cid.Cid][]byte) []byte {
	cids := sortedCids(blocks)

	var buf bytes.Buffer
	for _, c := range cids {
		data := blocks[c]
		raw := c.Bytes()
		binary.Write(&buf, binary.BigEndian, uint16(len(raw)))
		buf.Write(raw)
		binary.Write(&buf, binary.BigEndian, uint64(len(data)))
		buf.Write(data)
	}
	return buf.Bytes()
}

// UnpackBlocks reverses PackBlocks.
func UnpackBlocks(data []byte) (map[cid.Cid][]byte, error) {
	blocks := make(map[cid.Cid][]byte)
	r := bytes.NewReader(data)

	for r.Len() > 0 {
		var cidLen uint16
		if err := binary.Read(r, binary.BigEndian, &cidLen); err != nil {
			return nil, fmt.Errorf("read cid length: %w", err)
		}

		raw := make([]byte, cidLen)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("read cid: %w", err)
		}
		c, err := cid.Cast(raw)
		if err != nil {
			return nil, fmt.Errorf("parse cid: %w", err)
		}

		var dataLen uint64
		if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
			return nil, fmt.Errorf("read data length: %w", err)
		}
		if dataLen > uint64(r.Len()) {
			return nil, fmt.Errorf("truncated block %s", c)
		}

		blockData := make([]byte, dataLen)
		if _, err := io.ReadFull(r, blockData); err != nil {
			return nil, fmt.Errorf("read block data: %w", err)
		}

		blocks[c] = blockData
	}

	return blocks, nil
}

// BuildLayerPlan splits blocks into layer-sized groups, in CID order. Groups
// stay under the soft maximum unless a single block alone exceeds it.
func BuildLayerPlan(blocks map[cid.Cid][]byte) [][]cid.Cid {
	cids := sortedCids(blocks)

	var plan [][]cid.Cid
	var current []cid.Cid
	var size int64

	for _, c := range cids {
		blockSize := int64(len(blocks[c]))
		if len(current) > 0 && size+blockSize > layerSoftMax {
			plan = append(plan, current)
			current = nil
			size = 0
		}
		current = append(current, c)
		size += blockSize
		if size >= layerTargetSize {
			plan = append(plan, current)
			current = nil
			size = 0
		}
	}
	if len(current) > 0 {
		plan = append(plan, current)
	}

	return plan
}

// CollectBlocks extracts the named blocks into their own map.
func CollectBlocks(cids []cid.Cid, blocks map[cid.Cid][]byte) map[cid.Cid][]byte {
	out := make(map[cid.Cid][]byte, len(cids))
	for _, c := range cids {
		out[c] = blocks[c]
	}
	return out
}

func sortedCids(blocks map[cid.Cid][]byte) []cid.Cid {
	cids := make([]cid.Cid, 0, len(blocks))
	for c := range blocks {
		cids = append(cids, c)
	}
	sort.Slice(cids, func(i, j int) bool {
		return cids[i].KeyString() < cids[j].KeyString()
	})
	return cids
}
