package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	ociremote "github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/ipfs/go-cid"
	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/conc/pool"
)

const (
	// DefaultConcurrency bounds parallel layer transfers.
	DefaultConcurrency = 4

	rootLabel = "dev.verfs.root"
)

// OCIRemote implements Remote against an image reference such as
// "ttl.sh/myorg/tree:main".
type OCIRemote struct {
	ref         name.Reference
	basic       *authn.Basic
	concurrency int
}

var _ Remote = (*OCIRemote)(nil)

// NewOCIRemote creates a remote from a standard image ref. Credentials come
// from the system keychain unless SetBasicAuth is used.
func NewOCIRemote(imageRef string) (*OCIRemote, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	return &OCIRemote{ref: ref, concurrency: DefaultConcurrency}, nil
}

// SetConcurrency sets the number of parallel layer transfers.
func (r *OCIRemote) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// SetBasicAuth switches from keychain auth to explicit credentials.
func (r *OCIRemote) SetBasicAuth(username, password string) {
	r.basic = &authn.Basic{Username: username, Password: password}
}

func (r *OCIRemote) String() string { return r.ref.String() }

// blockLayer implements v1.Layer over a packed block payload, zstd-compressed
// for transfer.
type blockLayer struct {
	compressed   []byte
	uncompressed []byte
}

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

func newBlockLayer(payload []byte) *blockLayer {
	return &blockLayer{
		compressed:   zstdEncoder.EncodeAll(payload, nil),
		uncompressed: payload,
	}
}

func (l *blockLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *blockLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *blockLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}

func (l *blockLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}

func (l *blockLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *blockLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads root and its blocks as an image at the configured ref.
func (r *OCIRemote) Push(ctx context.Context, root cid.Cid, blocks map[cid.Cid][]byte) error {
	plan := BuildLayerPlan(blocks)
	log.Infow("pushing blocks", "ref", r.ref.String(), "root", root, "blocks", len(blocks), "layers", len(plan))

	layers := make([]v1.Layer, 0, len(plan))
	for _, group := range plan {
		layers = append(layers, newBlockLayer(PackBlocks(CollectBlocks(group, blocks))))
	}

	img, err := r.buildImage(layers, root)
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	options := append(r.remoteOptions(), ociremote.WithJobs(r.concurrency))
	_, err = retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, ociremote.Write(r.ref, img, options...)
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", r.ref.String(), err)
	}

	log.Infow("push done", "ref", r.ref.String(), "root", root)
	return nil
}

func (r *OCIRemote) buildImage(layers []v1.Layer, root cid.Cid) (v1.Image, error) {
	img := empty.Image

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	cfg.Config.Labels = map[string]string{rootLabel: root.String()}

	return mutate.ConfigFile(img, cfg)
}

// Pull downloads the current root CID and every block in its layers. Layers
// are fetched in parallel.
func (r *OCIRemote) Pull(ctx context.Context) (cid.Cid, map[cid.Cid][]byte, error) {
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		return ociremote.Image(r.ref, r.remoteOptions()...)
	})
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("fetch image: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("get config: %w", err)
	}

	rootStr := cfg.Config.Labels[rootLabel]
	if rootStr == "" {
		return cid.Undef, nil, fmt.Errorf("missing %s label", rootLabel)
	}
	root, err := cid.Decode(rootStr)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("parse root cid: %w", err)
	}

	layers, err := img.Layers()
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("get layers: %w", err)
	}

	log.Infow("pulling blocks", "ref", r.ref.String(), "root", root, "layers", len(layers))

	var mu sync.Mutex
	blocks := make(map[cid.Cid][]byte)

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx).WithCancelOnError()
	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("open layer: %w", err)
			}
			payload, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			unpacked, err := UnpackBlocks(payload)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			for c, data := range unpacked {
				blocks[c] = data
			}
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return cid.Undef, nil, err
	}

	log.Infow("pull done", "ref", r.ref.String(), "root", root, "blocks", len(blocks))
	return root, blocks, nil
}

func (r *OCIRemote) remoteOptions() []ociremote.Option {
	if r.basic != nil {
		return []ociremote.Option{ociremote.WithAuth(r.basic)}
	}
	return []ociremote.Option{ociremote.WithAuthFromKeychain(authn.DefaultKeychain)}
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
