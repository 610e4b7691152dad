package main

import (
	"os"

	"github.com/psantana5/vidgen/cmd/vidgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
