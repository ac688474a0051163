// Package main is the haulboard command.
package main

import (
	"os"

	"github.com/leapstack-labs/haulboard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
