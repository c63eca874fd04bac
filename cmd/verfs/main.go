package main

import "github.com/verfs/verfs/cmd/verfs/cmd"

func main() {
	cmd.Execute()
}
