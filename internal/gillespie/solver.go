// Package gillespie implements the propensity sampler and solver: the
// state a Gillespie direct-method draw needs (the propensity vector,
// its running sum, active-reaction count, and the index of the last
// nonzero entry) and the event() / update() operations spec.md §4.2
// defines.
package gillespie

import (
	"log/slog"
	"math"

	"gmcsim/internal/network"
	"gmcsim/internal/rng"
)

// Event is the result of one sampler draw: the reaction selected to fire
// and the waiting time until it does.
type Event struct {
	ReactionID network.ReactionID
	Dt         float64
}

// Solver wraps a propensity vector with the running aggregates spec.md
// §4.2 requires to sample in O(R) and to detect when no reaction can fire.
type Solver struct {
	rng *rng.Stream

	propensities []float64

	propensitySum    float64
	activeCount      int
	lastNonzeroIndex int
	hasNonzero       bool
}

// New builds a Solver over a copy of initialPropensities. The vector is
// copied rather than aliased so the caller's slice (typically
// network.ReactionNetwork.InitialPropensities, which is shared read-only
// across trajectories) is never mutated by this solver.
func New(seed uint64, initialPropensities []float64) *Solver {
	s := &Solver{
		rng:          rng.New(seed),
		propensities: append([]float64(nil), initialPropensities...),
	}
	for i, p := range s.propensities {
		s.propensitySum += p
		if p > 0 {
			s.activeCount++
			s.lastNonzeroIndex = i
			s.hasNonzero = true
		}
	}
	return s
}

// PropensitySum returns the current Σ prop[i].
func (s *Solver) PropensitySum() float64 { return s.propensitySum }

// ActiveCount returns the current count of reactions with nonzero propensity.
func (s *Solver) ActiveCount() int { return s.activeCount }

// Event draws the next reaction and waiting time, or reports no event when
// every propensity is zero (spec.md §4.2 step 1 — a normal, non-error
// trajectory termination, not a fatal condition).
func (s *Solver) Event() (Event, bool) {
	if s.activeCount == 0 {
		s.propensitySum = 0
		return Event{}, false
	}

	r1 := s.rng.Generate()
	r2 := s.rng.Generate()

	fraction := s.propensitySum * r1
	partial := 0.0
	found := -1
	for i, p := range s.propensities {
		partial += p
		if partial > fraction {
			found = i
			break
		}
	}

	dt := -math.Log(r2) / s.propensitySum

	if found < 0 {
		// Scan fell off the end: floating-point drift. Recovered per
		// spec.md §4.2 step 4 and §7 — fall back to the last known
		// nonzero index rather than treating this as fatal.
		slog.Debug("propensity scan fell off the end; using last nonzero reaction", "reaction_id", s.lastNonzeroIndex)
		return Event{ReactionID: network.ReactionID(s.lastNonzeroIndex), Dt: dt}, true
	}
	return Event{ReactionID: network.ReactionID(found), Dt: dt}, true
}

// Update applies one propensity change, maintaining propensitySum,
// activeCount and lastNonzeroIndex (spec.md §4.2's update operation).
func (s *Solver) Update(u network.Update) {
	idx := int(u.ReactionID)
	old := s.propensities[idx]

	if old > 0 {
		s.activeCount--
	}
	if u.Propensity > 0 {
		s.activeCount++
		if !s.hasNonzero || idx > s.lastNonzeroIndex {
			s.lastNonzeroIndex = idx
			s.hasNonzero = true
		}
	}

	s.propensitySum += u.Propensity - old
	s.propensities[idx] = u.Propensity
}

// UpdateBatch applies a sequence of updates in order, matching spec.md
// §4.2's batch form.
func (s *Solver) UpdateBatch(updates []network.Update) {
	for _, u := range updates {
		s.Update(u)
	}
}
