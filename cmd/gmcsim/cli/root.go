// Package cli wires the gmcsim command tree. CLI argument parsing is
// explicitly out of scope for the core engine (spec.md §1); this package
// is the thin external collaborator spec.md §6 describes, grounded on
// inference-sim/cmd/root.go's cobra rootCmd/runCmd split.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gmcsim",
	Short: "Parallel Gillespie kinetic Monte Carlo engine",
}

// Execute runs the CLI. Errors are already reported by the command that
// produced them; Execute only wraps and returns them, and main turns a
// non-nil error into a nonzero exit code.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("gmcsim: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
