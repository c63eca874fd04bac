package cmd

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/verfs/verfs"
)

var logCmd = &cobra.Command{
	Use:   "log <cid>",
	Short: "Walk a node's version ancestry",
	Long:  "Walk the previous-version DAG breadth-first from <cid>, printing each persisted state.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) (err error) {
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

	seen := map[cid.Cid]struct{}{c: {}}
	queue := []cid.Cid{c}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node, err := verfs.LoadNode(cmd.Context(), current, st)
		if err != nil {
			return err
		}

		kind := "file"
		var meta verfs.Metadata
		if node.IsDir() {
			kind = "dir"
			dir, _ := node.AsDir()
			meta = dir.Metadata()
		} else {
			file, _ := node.AsFile()
			meta = file.Metadata()
		}

		fmt.Printf("%s\t%s\t%s\n", current, kind, meta.ModifiedTime().Format("2006-01-02 15:04:05"))

		for _, prev := range node.Previous().Slice() {
			if _, ok := seen[prev]; ok {
				continue
			}
			seen[prev] = struct{}{}
			queue = append(queue, prev)
		}
	}

	return nil
}
