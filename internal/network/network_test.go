package network

import (
	"errors"
	"testing"
)

func singleSpeciesDecayNetwork() *ReactionNetwork {
	species := []Species{{ID: 0, DegreesOfFreedom: 1}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 1, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, NoSpecies}, Products: [2]SpeciesID{NoSpecies, NoSpecies}, Rate: 2.0},
	}
	state := NewState(1)
	state.Counts[0] = 10
	return New(species, reactions, state, nil, DefaultFactors(), Config{})
}

func TestComputePropensityUnimolecular(t *testing.T) {
	n := singleSpeciesDecayNetwork()
	got := n.ComputePropensity(n.InitialState, 0)
	want := 10.0 * 2.0
	if got != want {
		t.Fatalf("propensity = %v, want %v", got, want)
	}
}

func TestComputePropensityBimolecularDistinct(t *testing.T) {
	species := []Species{{ID: 0}, {ID: 1}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 2, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, 1}, Rate: 1.5},
	}
	state := NewState(2)
	state.Counts[0] = 4
	state.Counts[1] = 3
	n := New(species, reactions, state, nil, DefaultFactors(), Config{})

	got := n.ComputePropensity(state, 0)
	want := 1.5 * 4 * 3
	if got != want {
		t.Fatalf("propensity = %v, want %v", got, want)
	}
}

func TestComputePropensityIdenticalReactants(t *testing.T) {
	species := []Species{{ID: 0}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 2, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, 0}, Rate: 1.0},
	}
	state := NewState(1)
	state.Counts[0] = 5
	n := New(species, reactions, state, nil, DefaultFactors(), Config{})

	got := n.ComputePropensity(state, 0)
	want := 0.5 * 5 * 4 // count(r1)*(count(r1)-1)/2, the 1/2 carried by DefaultFactors().Duplicate
	if got != want {
		t.Fatalf("propensity = %v, want %v", got, want)
	}
}

// TestIdenticalReactantScenario is the canonical S3 scenario: {A:4},
// A+A->nothing at rate 2.0, no factors table. The combinatorial factor is
// count(A)*(count(A)-1)/2, so the initial propensity is 12, and it drops to
// 2 after the first firing consumes two A's.
func TestIdenticalReactantScenario(t *testing.T) {
	species := []Species{{ID: 0}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 2, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, 0}, Rate: 2.0},
	}
	state := NewState(1)
	state.Counts[0] = 4
	n := New(species, reactions, state, nil, DefaultFactors(), Config{})

	if got, want := n.InitialPropensities[0], 12.0; got != want {
		t.Fatalf("initial propensity = %v, want %v", got, want)
	}

	s := n.InitialState.Clone()
	updates, err := n.ApplyAndCollectUpdates(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Counts[0] != 2 {
		t.Fatalf("count after firing = %d, want 2", s.Counts[0])
	}
	if len(updates) != 1 || updates[0].Propensity != 2.0 {
		t.Fatalf("updates = %+v, want a single update with propensity 2.0", updates)
	}
}

func TestComputePropensityZeroReactants(t *testing.T) {
	species := []Species{{ID: 0}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 0, NumberOfProducts: 1, Products: [2]SpeciesID{0, NoSpecies}, Rate: 3.0},
	}
	state := NewState(1)
	n := New(species, reactions, state, nil, DefaultFactors(), Config{})

	got := n.ComputePropensity(state, 0)
	if got != 3.0 {
		t.Fatalf("propensity = %v, want 3.0", got)
	}
}

func TestApplyAndCollectUpdatesMutatesState(t *testing.T) {
	n := singleSpeciesDecayNetwork()
	state := n.InitialState.Clone()

	updates, err := n.ApplyAndCollectUpdates(state, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Counts[0] != 9 {
		t.Fatalf("count after firing = %d, want 9", state.Counts[0])
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	want := 9.0 * 2.0
	if updates[0].Propensity != want {
		t.Fatalf("updated propensity = %v, want %v", updates[0].Propensity, want)
	}
}

func TestApplyAndCollectUpdatesNegativeStateErrors(t *testing.T) {
	n := singleSpeciesDecayNetwork()
	state := NewState(1) // zero count, reaction needs 1 reactant

	_, err := n.ApplyAndCollectUpdates(state, 0)
	if err == nil {
		t.Fatalf("expected an InconsistentStateError, got nil")
	}
	var target *InconsistentStateError
	if !errors.As(err, &target) {
		t.Fatalf("error %v is not an *InconsistentStateError", err)
	}
}

func TestFixedSpeciesNeverMutated(t *testing.T) {
	species := []Species{{ID: 0}, {ID: 1}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 1, NumberOfProducts: 1, Reactants: [2]SpeciesID{0, NoSpecies}, Products: [2]SpeciesID{1, NoSpecies}, Rate: 1.0},
	}
	state := NewState(2)
	state.Counts[0] = 5
	fixed := []bool{true, false}
	n := New(species, reactions, state, fixed, DefaultFactors(), Config{})

	s := n.InitialState.Clone()
	_, err := n.ApplyAndCollectUpdates(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Counts[0] != 5 {
		t.Fatalf("fixed species count changed: got %d, want 5", s.Counts[0])
	}
	if s.Counts[1] != 1 {
		t.Fatalf("non-fixed product not incremented: got %d, want 1", s.Counts[1])
	}
}

func TestDependencyThresholdFallsBackToUpdateAll(t *testing.T) {
	// Three reactions all sharing species 0: reaction 0's dependent set
	// (reactions that also touch species 0) should be reactions {0,1,2}.
	// With a threshold of 1, that set (size 3) exceeds the cap and the
	// network must fall back to "update all" for reaction 0.
	species := []Species{{ID: 0}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 1, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, NoSpecies}, Rate: 1.0},
		{ID: 1, NumberOfReactants: 1, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, NoSpecies}, Rate: 1.0},
		{ID: 2, NumberOfReactants: 1, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, NoSpecies}, Rate: 1.0},
	}
	state := NewState(1)
	state.Counts[0] = 10

	capped := New(species, reactions, state, nil, DefaultFactors(), Config{DependencyThreshold: 1, DependencyMode: Eager})
	uncapped := New(species, reactions, state, nil, DefaultFactors(), Config{DependencyThreshold: 0, DependencyMode: Eager})

	sCapped := capped.InitialState.Clone()
	updatesCapped, err := capped.ApplyAndCollectUpdates(sCapped, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updatesCapped) != len(reactions) {
		t.Fatalf("capped network should recompute-all, got %d updates, want %d", len(updatesCapped), len(reactions))
	}

	sUncapped := uncapped.InitialState.Clone()
	updatesUncapped, err := uncapped.ApplyAndCollectUpdates(sUncapped, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updatesUncapped) != len(reactions) {
		t.Fatalf("uncapped dependency set should also cover all 3 reactions here, got %d", len(updatesUncapped))
	}
}

func TestLazyThresholdDeferComputation(t *testing.T) {
	species := []Species{{ID: 0}}
	reactions := []Reaction{
		{ID: 0, NumberOfReactants: 1, NumberOfProducts: 0, Reactants: [2]SpeciesID{0, NoSpecies}, Rate: 1.0},
	}
	state := NewState(1)
	state.Counts[0] = 10

	n := New(species, reactions, state, nil, DefaultFactors(), Config{DependencyThreshold: 2, DependencyMode: LazyThreshold})

	s := n.InitialState.Clone()
	for i := 0; i < 2; i++ {
		updates, err := n.ApplyAndCollectUpdates(s, 0)
		if err != nil {
			t.Fatalf("fire %d: unexpected error: %v", i, err)
		}
		if len(updates) != len(reactions) {
			t.Fatalf("fire %d: expected update-all before threshold, got %d updates", i, len(updates))
		}
	}
}
