package cmd

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/verfs/verfs"
)

var statCmd = &cobra.Command{
	Use:   "stat <cid>",
	Short: "Show a node's metadata and version ancestry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) (err error) {
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

	node, err := verfs.LoadNode(cmd.Context(), c, st)
	if err != nil {
		return err
	}

	switch {
	case node.IsFile():
		file, _ := node.AsFile()
		fmt.Println("kind:     file")
		fmt.Printf("content:  %s\n", file.ContentCid())
		printCommon(file.Metadata(), file.Previous())
	case node.IsDir():
		dir, _ := node.AsDir()
		fmt.Println("kind:     dir")
		fmt.Printf("children: %d\n", len(dir.ChildNames()))
		printCommon(dir.Metadata(), dir.Previous())
	}

	return nil
}

func printCommon(meta verfs.Metadata, previous verfs.CidSet) {
	fmt.Printf("created:  %s\n", meta.CreatedTime().Format("2006-01-02 15:04:05"))
	fmt.Printf("modified: %s\n", meta.ModifiedTime().Format("2006-01-02 15:04:05"))
	for _, prev := range previous.Slice() {
		fmt.Printf("previous: %s\n", prev)
	}
}
