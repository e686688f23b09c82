// Command gmcsim runs the Gillespie kinetic Monte Carlo engine: it reads a
// reaction network and initial state from SQLite, runs a batch of
// independent stochastic trajectories in parallel, and writes each
// trajectory back to the initial-state database.
package main

import (
	"os"

	"gmcsim/cmd/gmcsim/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
