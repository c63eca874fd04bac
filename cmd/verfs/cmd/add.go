package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/verfs/verfs"
	"github.com/verfs/verfs/internal/store"
)

var addRef string

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Store a file or directory tree as a node",
	Long: "Store the file or directory at <path> as a content-addressed node and print its CID.\n" +
		"With --ref, the new node records the ref's current CID as its previous version and the ref is moved forward.",
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addRef, "ref", "", "named ref to version against and update")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	node, err := buildNode(ctx, st, args[0])
	if err != nil {
		return err
	}

	if addRef != "" {
		prev, rerr := st.GetRef(addRef)
		switch {
		case rerr == nil:
			node = node.UpdatePrevious([]cid.Cid{prev})
		case !errors.Is(rerr, verfs.ErrNotFound):
			return rerr
		}
	}

	c, err := node.Store(ctx, st)
	if err != nil {
		return fmt.Errorf("store %s: %w", args[0], err)
	}

	if addRef != "" {
		if err := st.PutRef(addRef, c); err != nil {
			return err
		}
	}

	fmt.Println(c)
	return nil
}

// buildNode turns a local path into an in-memory node tree. Files become file
// nodes over raw content blocks; directories link their children as in-memory
// nodes, persisted all at once by the final Store.
func buildNode(ctx context.Context, st *store.DiskStore, path string) (verfs.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return verfs.Node{}, err
	}

	if info.IsDir() {
		dir := verfs.NewDirectory(info.ModTime())
		entries, err := os.ReadDir(path)
		if err != nil {
			return verfs.Node{}, err
		}
		for _, entry := range entries {
			child, err := buildNode(ctx, st, filepath.Join(path, entry.Name()))
			if err != nil {
				return verfs.Node{}, err
			}
			dir.PutChild(entry.Name(), child)
		}
		return verfs.NewDirNode(dir), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return verfs.Node{}, err
	}
	contentCid, err := st.Put(ctx, verfs.CodecRaw, data)
	if err != nil {
		return verfs.Node{}, fmt.Errorf("store content of %s: %w", path, err)
	}

	mtime := info.ModTime()
	if mtime.IsZero() {
		mtime = time.Now()
	}
	return verfs.NewFileNode(verfs.NewFile(mtime, contentCid)), nil
}
