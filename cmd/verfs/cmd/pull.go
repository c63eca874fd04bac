package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verfs/verfs/internal/remote"
)

var pullRef string

var pullCmd = &cobra.Command{
	Use:   "pull <image-ref>",
	Short: "Pull a node and its blocks from an OCI registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullRef, "ref", "", "named ref to point at the pulled root")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) (err error) {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r, err := remote.NewOCIRemote(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pulling %s...\n", r)
	root, blocks, err := r.Pull(cmd.Context())
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	for c, data := range blocks {
		if err := st.PutBlock(cmd.Context(), c, data); err != nil {
			return fmt.Errorf("store block %s: %w", c, err)
		}
	}

	if pullRef != "" {
		if err := st.PutRef(pullRef, root); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Done. %d blocks. Root: %s\n", len(blocks), root)
	fmt.Println(root)
	return nil
}
