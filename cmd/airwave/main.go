// Package main is the entry point for the airwave playout runtime.
package main

import (
	"os"

	"github.com/jmylchreest/airwave/cmd/airwave/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
