// go-shmem runs one-sided communication jobs over a symmetric heap.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-shmem/cmd"
)

var (
	version string
	commit  string
	branch  string
)

func main() { // run the app
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
