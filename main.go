package main

import (
	"os"

	"github.com/fabiofalopes/opencode/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
