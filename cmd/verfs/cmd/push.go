package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/verfs/verfs"
	"github.com/verfs/verfs/internal/remote"
	"github.com/verfs/verfs/internal/store"
)

var pushCmd = &cobra.Command{
	Use:   "push <image-ref> <cid>",
	Short: "Push a node and everything it references to an OCI registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) (err error) {
	root, err := cid.Decode(args[1])
	if err != nil {
		return fmt.Errorf("invalid cid %q: %w", args[1], err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	blocks, err := collectBlocks(cmd.Context(), st, root)
	if err != nil {
		return err
	}

	r, err := remote.NewOCIRemote(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pushing %d blocks to %s...\n", len(blocks), r)
	if err := r.Push(cmd.Context(), root, blocks); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done. Root: %s\n", root)
	return nil
}

// collectBlocks gathers every locally available block reachable from root:
// node records, directory children, file content, and version ancestors.
// Ancestors missing from the local store are skipped; history may live
// elsewhere.
func collectBlocks(ctx context.Context, st *store.DiskStore, root cid.Cid) (map[cid.Cid][]byte, error) {
	blocks := make(map[cid.Cid][]byte)
	stack := []cid.Cid{root}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := blocks[c]; ok {
			continue
		}

		ok, err := st.Has(ctx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			if c == root {
				return nil, fmt.Errorf("root %s: %w", root, verfs.ErrNotFound)
			}
			continue
		}

		data, err := st.Get(ctx, c)
		if err != nil {
			return nil, err
		}
		blocks[c] = data

		node, err := verfs.DecodeNode(data)
		if err != nil {
			continue // opaque content block
		}

		stack = append(stack, node.Previous().Slice()...)
		switch {
		case node.IsFile():
			file, _ := node.AsFile()
			stack = append(stack, file.ContentCid())
		case node.IsDir():
			dir, _ := node.AsDir()
			for _, name := range dir.ChildNames() {
				link, _ := dir.Child(name)
				childCid, err := link.ResolveCid(ctx, st)
				if err != nil {
					return nil, fmt.Errorf("resolve child %q: %w", name, err)
				}
				stack = append(stack, childCid)
			}
		}
	}

	return blocks, nil
}
