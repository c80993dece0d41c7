// Package main provides the entry point for the cortexd CLI.
package main

import (
	"os"

	"github.com/cortexmind/cortexd/cmd/cortexd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
