package cmd

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/verfs/verfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls <cid>",
	Short: "List the children of a directory node",
	Args:  cobra.ExactArgs(1),
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) (err error) {
	c, err := cid.Decode(args[0])
	if err != nil {
		return fmt.Errorf("invalid cid %q: %w", args[0], err)
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

	dir, err := verfs.LoadDirectory(cmd.Context(), c, st)
	if err != nil {
		return err
	}

	names := dir.ChildNames()
	if len(names) == 0 {
		fmt.Println("(empty directory)")
		return nil
	}

	for _, name := range names {
		link, _ := dir.Child(name)
		childCid, err := link.ResolveCid(cmd.Context(), st)
		if err != nil {
			return fmt.Errorf("resolve child %q: %w", name, err)
		}
		fmt.Printf("%s\t%s\n", childCid, name)
	}

	return nil
}
