// Package network models a Gillespie reaction network: species metadata,
// reaction stoichiometry and rates, the mutable species-count state, and
// the dependency graph used to limit propensity recomputation after a
// reaction fires.
//
// A *ReactionNetwork is constructed once from the persistence façade and
// is shared read-only across every trajectory goroutine; no field on it
// is mutated after New returns, except the mutex-guarded dependency-graph
// bookkeeping of LazyThreshold mode. Per-trajectory mutable state (species
// counts) lives in State, owned exclusively by one simulation.
package network

import "fmt"

// NoSpecies is the sentinel stored in an unused reactant/product slot,
// matching the reaction table's -1 convention (spec §6).
const NoSpecies = -1

// SpeciesID identifies a species by its small nonnegative integer index.
type SpeciesID int

// Species carries static per-species metadata.
type Species struct {
	ID               SpeciesID
	DegreesOfFreedom int
}

// ReactionID identifies a reaction by its small nonnegative integer index.
type ReactionID int

// Reaction is the static description of one homogeneous reaction: 0–2
// reactants, 0–2 products, and a base rate constant.
type Reaction struct {
	ID                ReactionID
	NumberOfReactants int
	NumberOfProducts  int
	Reactants         [2]SpeciesID
	Products          [2]SpeciesID
	Rate              float64
}

// Factors are global rate modifiers applied on top of each reaction's base
// rate, recovered from original_source/NPMC/sql_types.h's FactorsSql row.
// A network with no factors table loaded behaves exactly like spec.md's
// unmodified combinatorial formula: Zero and Two default to 1.0, and
// Duplicate defaults to 0.5, since original_source/GMC/reaction_network.h's
// identical-reactant propensity (factor_duplicate * factor_two * c*(c-1) *
// rate) never divides by 2 itself — the 1/2 in spec.md §3's
// count(r1)*(count(r1)-1)/2 combinatorial factor comes entirely from
// factor_duplicate, so an "identity" factors table must carry 0.5 there,
// not 1.0.
type Factors struct {
	Zero      float64 // applied to 0-reactant reactions
	Two       float64 // applied to bimolecular reactions
	Duplicate float64 // applied in addition to Two when both reactants are the same species; carries the 1/2 of the combinatorial count(r1)*(count(r1)-1)/2 factor
}

// DefaultFactors returns the factor set that reproduces spec.md §3's
// unmodified combinatorial formula when no factors table is present.
func DefaultFactors() Factors {
	return Factors{Zero: 1, Two: 1, Duplicate: 0.5}
}

// State is the mutable vector of per-species counts. Each Simulation owns
// a private State; it is never shared between goroutines.
type State struct {
	Counts []int64
}

// NewState allocates a State with space for n species, all counts zero.
func NewState(n int) *State {
	return &State{Counts: make([]int64, n)}
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	counts := make([]int64, len(s.Counts))
	copy(counts, s.Counts)
	return &State{Counts: counts}
}

// Get returns the count for a species, or zero if out of range.
func (s *State) Get(id SpeciesID) int64 {
	if int(id) < 0 || int(id) >= len(s.Counts) {
		return 0
	}
	return s.Counts[id]
}

// InconsistentStateError reports a reaction firing that would drive a
// species count negative — a bug in the input data or the dependency
// graph, per spec.md §7. It is a typed error (rather than a bare fmt.Errorf
// string) so a caller can choose, per spec.md §7's alternative policy, to
// abort only the offending trajectory instead of the whole process.
type InconsistentStateError struct {
	ReactionID ReactionID
	SpeciesID  SpeciesID
	Count      int64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf(
		"reaction %d would drive species %d to a negative count (would become %d)",
		e.ReactionID, e.SpeciesID, e.Count)
}
