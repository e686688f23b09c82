// Package config validates and holds the run parameters spec.md §6 lists
// as CLI inputs. Parsing the flags themselves lives in cmd/gmcsim (CLI
// argument parsing is explicitly out of scope for the core, spec.md §1);
// this package is the boundary where those values are checked before
// anything else touches them.
package config

import "fmt"

// DependencyMode mirrors network.DependencyMode without importing the
// network package, so config stays a leaf the CLI and the core both
// depend on without a cycle.
type DependencyMode string

const (
	DependencyModeEager         DependencyMode = "eager"
	DependencyModeLazyThreshold DependencyMode = "lazy-threshold"
)

// RunConfig bundles every validated parameter a dispatcher run needs.
type RunConfig struct {
	ReactionDBPath     string
	InitialStateDBPath string

	NumberOfSimulations int
	BaseSeed            uint64
	NumberOfThreads     int
	StepCutoff          int
	DependencyThreshold int
	DependencyMode      DependencyMode

	// CheckStatePositivity enables the debug-only negative-count
	// assertion described in SPEC_FULL.md §4.4.
	CheckStatePositivity bool
}

// Validate checks the invariants spec.md §6 states for each CLI input:
// N ≥ 1, number_of_threads ≥ 1, step_cutoff ≥ 1, dependency_threshold ≥ 0.
// Configuration errors are fatal at startup per spec.md §7 — Validate
// gives the caller one place to produce the descriptive message before
// exiting nonzero.
func (c RunConfig) Validate() error {
	if c.ReactionDBPath == "" {
		return fmt.Errorf("reaction database path must not be empty")
	}
	if c.InitialStateDBPath == "" {
		return fmt.Errorf("initial-state database path must not be empty")
	}
	if c.NumberOfSimulations < 1 {
		return fmt.Errorf("number of simulations must be >= 1, got %d", c.NumberOfSimulations)
	}
	if c.NumberOfThreads < 1 {
		return fmt.Errorf("number of threads must be >= 1, got %d", c.NumberOfThreads)
	}
	if c.StepCutoff < 1 {
		return fmt.Errorf("step cutoff must be >= 1, got %d", c.StepCutoff)
	}
	if c.DependencyThreshold < 0 {
		return fmt.Errorf("dependency threshold must be >= 0, got %d", c.DependencyThreshold)
	}
	switch c.DependencyMode {
	case "", DependencyModeEager, DependencyModeLazyThreshold:
	default:
		return fmt.Errorf("unknown dependency mode %q", c.DependencyMode)
	}
	return nil
}
