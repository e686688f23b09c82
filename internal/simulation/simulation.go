// Package simulation runs one Gillespie trajectory: repeatedly draw an
// event from the solver, apply it to a private copy of the network state,
// append it to history, and stop on step cutoff or propensity exhaustion.
//
// Grounded on tobyjaguar-mini-world/internal/engine/simulation.go's split
// of "owned state + growing event log + step loop", adapted to the
// fire-once-per-event semantics of original_source/GMC/simulation.h's
// execute_step instead of a fixed-interval tick loop.
package simulation

import (
	"fmt"

	"gmcsim/internal/gillespie"
	"gmcsim/internal/network"
)

// HistoryElement is one fired event: which reaction, and the absolute
// simulation time immediately after it fired.
type HistoryElement struct {
	ReactionID network.ReactionID
	Time       float64
}

// HistoryPacket is the move-only result of one completed trajectory,
// handed from a worker goroutine to the dispatcher.
//
// Ownership (spec.md §4.4/§5): the History slice is allocated exactly
// once, by Run, and is never copied on its way to the dispatcher — the
// dispatch package passes the packet by value (it is four machine words:
// a seed and a three-word slice header) and only the backing array, which is never
// duplicated, is large.
type HistoryPacket struct {
	Seed    uint64
	History []HistoryElement
}

// Simulation owns everything needed to run exactly one trajectory: a
// private copy of the species-count state, a dedicated solver and RNG,
// and the growing history log. It is never shared between goroutines.
type Simulation struct {
	network *network.ReactionNetwork
	seed    uint64
	state   *network.State
	solver  *gillespie.Solver

	step       int
	stepCutoff int
	time       float64
	history    []HistoryElement

	// checkStatePositivity enables the optional post-step assertion
	// recovered from original_source/GMC/simulation.h's
	// check_state_positivity (called there with the call commented out —
	// SPEC_FULL.md §4.4 carries it forward as a debug-only toggle instead of a
	// permanent cost). Off by default.
	checkStatePositivity bool
}

// New constructs a Simulation for one trajectory. net is shared read-only
// across every trajectory; seed determines this trajectory's entire
// random stream independent of any other trajectory or worker count.
func New(net *network.ReactionNetwork, seed uint64, stepCutoff int) *Simulation {
	return &Simulation{
		network:    net,
		seed:       seed,
		state:      net.InitialState.Clone(),
		solver:     gillespie.New(seed, net.InitialPropensities),
		stepCutoff: stepCutoff,
		history:    make([]HistoryElement, 0, stepCutoff+1),
	}
}

// EnableStatePositivityCheck turns on the debug-only negative-count
// assertion after every step.
func (s *Simulation) EnableStatePositivityCheck() { s.checkStatePositivity = true }

// Run executes the trajectory to completion — step cutoff reached, or the
// solver reporting no event (total propensity exhausted, a normal
// termination per spec.md §4.2) — and returns the finished HistoryPacket.
func (s *Simulation) Run() (HistoryPacket, error) {
	for s.step < s.stepCutoff {
		ok, err := s.executeStep()
		if err != nil {
			return HistoryPacket{}, err
		}
		if !ok {
			break
		}
	}
	return HistoryPacket{Seed: s.seed, History: s.history}, nil
}

// executeStep performs one Gillespie step: sample, advance time, record,
// mutate state, recompute dependent propensities. Returns false (with no
// error) when the solver reports no event.
func (s *Simulation) executeStep() (bool, error) {
	event, ok := s.solver.Event()
	if !ok {
		return false, nil
	}

	s.time += event.Dt
	s.history = append(s.history, HistoryElement{ReactionID: event.ReactionID, Time: s.time})
	s.step++

	updates, err := s.network.ApplyAndCollectUpdates(s.state, event.ReactionID)
	if err != nil {
		return false, fmt.Errorf("step %d: %w", s.step, err)
	}
	s.solver.UpdateBatch(updates)

	if s.checkStatePositivity {
		if bad, id := s.stateHasNegative(); bad {
			return false, fmt.Errorf("step %d: negative state encountered for species %d", s.step, id)
		}
	}

	return true, nil
}

func (s *Simulation) stateHasNegative() (bool, network.SpeciesID) {
	for i, c := range s.state.Counts {
		if c < 0 {
			return true, network.SpeciesID(i)
		}
	}
	return false, 0
}
