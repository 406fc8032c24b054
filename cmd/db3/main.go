package main

import (
	"os"

	"github.com/datachainlab/db3/cmd/db3/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
