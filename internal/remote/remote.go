// Package remote syncs block sets with an OCI registry.
//
// A pushed root is stored as an image: blocks are packed into
// zstd-compressed layers and the root CID is recorded in a config label, so
// any registry that speaks the OCI distribution spec can host a version DAG.
package remote

import (
	"context"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("verfs/remote")

// Remote handles registry operations for a block set rooted at a CID.
type Remote interface {
	// Push uploads the root CID and its blocks to the registry.
	Push(ctx context.Context, root cid.Cid, blocks map[cid.Cid][]byte) error

	// Pull downloads the current root CID and its blocks.
	Pull(ctx context.Context) (cid.Cid, map[cid.Cid][]byte, error)
}
