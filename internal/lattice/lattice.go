// Package lattice implements the optional lattice-extended sampler: a
// per-site-pair propensity table layered on top of the homogeneous
// Gillespie propensity vector, for adsorption/desorption-style reactions
// that depend on a pair of lattice sites rather than a global species
// count.
//
// Grounded on original_source/LGMC/LatSolver.h, with the two deviations
// spec.md §4.5/§9 calls out deliberately *not* reproduced — see the
// comments on Solver.EventLattice below.
package lattice

import (
	"log/slog"
	"math"

	"gmcsim/internal/network"
	"gmcsim/internal/rng"
)

// SiteID identifies a lattice site.
type SiteID int

// PairKey canonicalizes a pair of site ids so that pair(a,b) == pair(b,a),
// per spec.md §3's "Lattice propensity table" definition.
type PairKey struct {
	A, B SiteID
}

// CanonicalPair orders the two site ids so the smaller is always A.
func CanonicalPair(a, b SiteID) PairKey {
	if a <= b {
		return PairKey{A: a, B: b}
	}
	return PairKey{A: b, B: a}
}

// entry is one (propensity, reaction) pair stored for a site pair.
type entry struct {
	propensity float64
	reactionID network.ReactionID
}

// LatticeUpdate adds one entry to a site pair's propensity list and folds
// its propensity into the running sum — the lattice table only grows via
// UpdateLattice, matching LatSolver::update(LatticeUpdate) which always appends.
type LatticeUpdate struct {
	Pair       PairKey
	Propensity float64
	ReactionID network.ReactionID
}

// Event is a plain (non-lattice) Gillespie event drawn from the
// homogeneous propensity vector during a lattice-extended sample.
type Event struct {
	ReactionID network.ReactionID
	Dt         float64
}

// LatticeEvent is drawn from the per-pair lattice table.
type LatticeEvent struct {
	SiteOne, SiteTwo SiteID
	ReactionID       network.ReactionID
	Dt               float64
}

// orderedPairs tracks the insertion order of pair keys so map iteration
// (unspecified order in Go) becomes deterministic for a fixed insertion
// history, per spec.md §4.5 and §9's "Lattice map iteration" design note.
type orderedPairs struct {
	order []PairKey
	rows  map[PairKey][]entry
}

func newOrderedPairs() *orderedPairs {
	return &orderedPairs{rows: make(map[PairKey][]entry)}
}

func (o *orderedPairs) append(pair PairKey, e entry) {
	if _, ok := o.rows[pair]; !ok {
		o.order = append(o.order, pair)
	}
	o.rows[pair] = append(o.rows[pair], e)
}

// Solver extends gillespie.Solver with the lattice propensity table. It
// does not embed gillespie.Solver because the lattice sampler needs to
// scan the gas-phase vector and the lattice table as one combined draw
// (spec.md §4.5 step 1-2), which a plain Update/Event split can't express.
type Solver struct {
	rng *rng.Stream

	gasPropensities []float64
	gasSum          float64
	activeCount     int
	lastNonzero     int
	hasNonzero      bool

	pairs      *orderedPairs
	latticeSum float64
}

// New builds a lattice Solver over a copy of the initial homogeneous
// propensities; the lattice table starts empty and grows via UpdateLattice.
func New(seed uint64, initialPropensities []float64) *Solver {
	s := &Solver{
		rng:             rng.New(seed),
		gasPropensities: append([]float64(nil), initialPropensities...),
		pairs:           newOrderedPairs(),
	}
	for i, p := range s.gasPropensities {
		s.gasSum += p
		if p > 0 {
			s.activeCount++
			s.lastNonzero = i
			s.hasNonzero = true
		}
	}
	return s
}

// Update applies a homogeneous propensity change, identical in effect to
// gillespie.Solver.Update.
func (s *Solver) Update(u network.Update) {
	idx := int(u.ReactionID)
	old := s.gasPropensities[idx]

	if old > 0 {
		s.activeCount--
	}
	if u.Propensity > 0 {
		s.activeCount++
		if !s.hasNonzero || idx > s.lastNonzero {
			s.lastNonzero = idx
			s.hasNonzero = true
		}
	}

	s.gasSum += u.Propensity - old
	s.gasPropensities[idx] = u.Propensity
}

// UpdateBatch applies a sequence of homogeneous updates in order.
func (s *Solver) UpdateBatch(updates []network.Update) {
	for _, u := range updates {
		s.Update(u)
	}
}

// UpdateLattice appends one entry to its pair's propensity list and folds
// it into the lattice sum.
func (s *Solver) UpdateLattice(u LatticeUpdate) {
	s.latticeSum += u.Propensity
	s.pairs.append(u.Pair, entry{propensity: u.Propensity, reactionID: u.ReactionID})
}

// UpdateLatticeBatch applies a sequence of lattice updates in order.
func (s *Solver) UpdateLatticeBatch(updates []LatticeUpdate) {
	for _, u := range updates {
		s.UpdateLattice(u)
	}
}

// EventLattice samples across both the homogeneous vector and the lattice
// table, per spec.md §4.5.
//
// Two deviations from original_source/LGMC/LatSolver.h are deliberate, not
// bugs carried forward — see SPEC_FULL.md §9:
//
//  1. The outer scan over the lattice map terminates as soon as a match is
//     found (the source's `while (!isFound || it != props.end())` keeps
//     iterating after a match; spec.md §4.5 explicitly asks for early
//     termination).
//  2. On a normal (non-drift) match, whichever vector the match falls in,
//     this returns the *scanned* reaction id. The source's plain-Gillespie
//     branch returns last_non_zero_event instead, which spec.md §4.2
//     reserves for the FP-drift fallback only.
func (s *Solver) EventLattice() (*Event, *LatticeEvent) {
	total := s.gasSum + s.latticeSum
	if total <= 0 {
		s.gasSum = 0
		s.latticeSum = 0
		return nil, nil
	}

	r1 := s.rng.Generate()
	r2 := s.rng.Generate()
	fraction := total * r1
	dt := -math.Log(r2) / total

	partial := 0.0
	for i, p := range s.gasPropensities {
		partial += p
		if partial > fraction {
			return &Event{ReactionID: network.ReactionID(i), Dt: dt}, nil
		}
	}

	for _, pair := range s.pairs.order {
		for _, e := range s.pairs.rows[pair] {
			partial += e.propensity
			if partial > fraction {
				return nil, &LatticeEvent{
					SiteOne:    pair.A,
					SiteTwo:    pair.B,
					ReactionID: e.reactionID,
					Dt:         dt,
				}
			}
		}
	}

	// FP drift: the scan fell off the end of both tables. Fall back to the
	// last known nonzero homogeneous index, exactly as the plain sampler
	// does (spec.md §4.2 step 4).
	slog.Debug("lattice propensity scan fell off the end; using last nonzero reaction", "reaction_id", s.lastNonzero)
	return &Event{ReactionID: network.ReactionID(s.lastNonzero), Dt: dt}, nil
}
