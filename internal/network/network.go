package network

import "sync"

// DependencyMode selects how the dependency graph is populated.
//
// Eager computes every reaction's dependent set once, at construction,
// and falls back to "recompute all" only when that set would exceed
// DependencyThreshold — this is spec.md §3/§4.3's stated behavior and is
// the default.
//
// LazyThreshold instead defers computing a reaction's dependent set until
// it has fired DependencyThreshold times, using "recompute all" for every
// firing up to that point — the behavior of
// original_source/GMC/reaction_network.h's get_dependency_node. It is kept
// as an explicit, documented alternative (see SPEC_FULL.md §3) rather than
// silently adopted, since it inverts the meaning of the threshold.
type DependencyMode int

const (
	// Eager computes dependency sets up front; a positive
	// DependencyThreshold caps their size before falling back to
	// "recompute all" for that reaction (0 means no cap).
	Eager DependencyMode = iota
	// LazyThreshold defers dependency computation until a reaction has
	// fired DependencyThreshold times.
	LazyThreshold
)

// dependencyNode holds one reaction's dependent set, or nil if this
// reaction should always trigger a full recompute ("update all" sentinel).
type dependencyNode struct {
	dependents  []ReactionID // nil means "update all"
	occurrences int          // fire count, used only in LazyThreshold mode
}

// ReactionNetwork is the static, shared-read-only description of a
// Gillespie system: species, reactions, rate factors, fixed species, and
// the derived dependency graph. It is built once by New and every
// trajectory goroutine reads it concurrently. In Eager mode nothing on it
// is mutated afterward and no lock is taken; in LazyThreshold mode the
// dependency graph's occurrence counters and lazily computed dependent
// sets change after construction, guarded by mu.
type ReactionNetwork struct {
	Species   []Species
	Reactions []Reaction
	Factors   Factors

	// FixedState marks species whose count a firing reaction must not
	// change (e.g. a buffered reservoir), recovered from
	// original_source/GMC/reaction_network.h's fixed_state vector.
	FixedState []bool

	InitialState       *State
	InitialPropensities []float64

	dependencyThreshold int
	dependencyMode      DependencyMode
	dependencyGraph     []dependencyNode

	// mu guards dependencyGraph occurrence counters in LazyThreshold mode
	// only; in Eager mode the graph is fully computed before New returns
	// and never touched again, so no lock is taken on the hot path.
	mu sync.Mutex
}

// Config bundles the inputs New needs beyond what the persistence façade
// loads directly.
type Config struct {
	DependencyThreshold int
	DependencyMode      DependencyMode
}

// New constructs a ReactionNetwork from already-loaded rows. Loading from
// the persistence façade is the caller's responsibility (see
// internal/store); New itself performs no I/O so that it can be unit
// tested against literal fixtures.
func New(
	species []Species,
	reactions []Reaction,
	initialState *State,
	fixedState []bool,
	factors Factors,
	cfg Config,
) *ReactionNetwork {
	n := &ReactionNetwork{
		Species:             species,
		Reactions:           reactions,
		Factors:             factors,
		FixedState:          fixedState,
		InitialState:        initialState,
		dependencyThreshold: cfg.DependencyThreshold,
		dependencyMode:      cfg.DependencyMode,
		dependencyGraph:     make([]dependencyNode, len(reactions)),
	}

	if n.dependencyMode == Eager {
		for i := range n.Reactions {
			n.computeDependencyNode(ReactionID(i))
		}
	}

	n.InitialPropensities = make([]float64, len(reactions))
	for i := range reactions {
		n.InitialPropensities[i] = n.ComputePropensity(initialState, ReactionID(i))
	}

	return n
}

// ComputePropensity implements the combinatorial propensity formula from
// spec.md §3, extended with the Factors rate modifiers recovered from
// original_source/GMC/reaction_network.h's compute_propensity.
func (n *ReactionNetwork) ComputePropensity(state *State, id ReactionID) float64 {
	r := n.Reactions[id]

	switch r.NumberOfReactants {
	case 0:
		return n.Factors.Zero * r.Rate
	case 1:
		return float64(state.Get(r.Reactants[0])) * r.Rate
	default: // 2
		c0 := float64(state.Get(r.Reactants[0]))
		if r.Reactants[0] == r.Reactants[1] {
			return n.Factors.Duplicate * n.Factors.Two * c0 * (c0 - 1) * r.Rate
		}
		c1 := float64(state.Get(r.Reactants[1]))
		return n.Factors.Two * c0 * c1 * r.Rate
	}
}

// Update is a single propensity change to apply to a solver: the reaction
// whose propensity changed, and its freshly computed value.
type Update struct {
	ReactionID ReactionID
	Propensity float64
}

// ApplyAndCollectUpdates mutates state by firing reactionID (decrementing
// its reactants, incrementing its products, skipping any species marked
// fixed), then returns the propensity updates for every reaction the
// dependency graph says could have changed as a result.
//
// Returns an *InconsistentStateError, leaving state already partially
// mutated, if firing the reaction would drive any species negative —
// callers that want spec.md §7's "abort just the offending trajectory"
// policy should discard the Simulation on this error rather than retry it.
func (n *ReactionNetwork) ApplyAndCollectUpdates(state *State, reactionID ReactionID) ([]Update, error) {
	r := n.Reactions[reactionID]

	for m := 0; m < r.NumberOfReactants; m++ {
		sp := r.Reactants[m]
		if n.isFixed(sp) {
			continue
		}
		if state.Counts[sp] <= 0 {
			return nil, &InconsistentStateError{ReactionID: reactionID, SpeciesID: sp, Count: state.Counts[sp] - 1}
		}
		state.Counts[sp]--
	}
	for m := 0; m < r.NumberOfProducts; m++ {
		sp := r.Products[m]
		if n.isFixed(sp) {
			continue
		}
		state.Counts[sp]++
	}

	dependents := n.dependents(reactionID)
	var updates []Update
	if dependents == nil {
		updates = make([]Update, len(n.Reactions))
		for i := range n.Reactions {
			updates[i] = Update{ReactionID: ReactionID(i), Propensity: n.ComputePropensity(state, ReactionID(i))}
		}
	} else {
		updates = make([]Update, len(dependents))
		for i, rid := range dependents {
			updates[i] = Update{ReactionID: rid, Propensity: n.ComputePropensity(state, rid)}
		}
	}
	return updates, nil
}

func (n *ReactionNetwork) isFixed(sp SpeciesID) bool {
	return int(sp) >= 0 && int(sp) < len(n.FixedState) && n.FixedState[sp]
}

// dependents returns the dependency list for reactionID, or nil to mean
// "update all". In LazyThreshold mode this mutates the node's occurrence
// counter and may trigger computation — this is the only place the
// network's state changes after construction, so in that mode it holds
// the network-wide mu for the whole read-modify-write (each trajectory's
// reactions are processed sequentially by its own goroutine, but the
// counters are shared by every trajectory).
func (n *ReactionNetwork) dependents(id ReactionID) []ReactionID {
	node := &n.dependencyGraph[id]

	if n.dependencyMode == LazyThreshold {
		n.mu.Lock()
		if node.dependents == nil && node.occurrences >= n.dependencyThreshold {
			n.computeDependencyNodeLocked(id)
		}
		node.occurrences++
		result := node.dependents
		n.mu.Unlock()
		return result
	}

	return node.dependents
}

// computeDependencyNode derives reactionID's dependent set: every
// reaction j such that some reactant of j is a reactant or product of
// reactionID (spec.md §3). If dependencyThreshold is positive and the
// derived set would exceed it, the node is left with a nil dependents
// slice, the "recompute all" sentinel; a threshold of 0 means no cap.
func (n *ReactionNetwork) computeDependencyNode(id ReactionID) {
	n.computeDependencyNodeLocked(id)
}

func (n *ReactionNetwork) computeDependencyNodeLocked(id ReactionID) {
	trigger := n.Reactions[id]

	var dependents []ReactionID
	for j := range n.Reactions {
		if n.reactionDependsOn(n.Reactions[j], trigger) {
			dependents = append(dependents, ReactionID(j))
		}
	}

	if n.dependencyThreshold > 0 && len(dependents) > n.dependencyThreshold {
		n.dependencyGraph[id].dependents = nil
		return
	}
	if dependents == nil {
		dependents = []ReactionID{}
	}
	n.dependencyGraph[id].dependents = dependents
}

// reactionDependsOn reports whether candidate's propensity can change when
// trigger fires: true iff any reactant of candidate is also a reactant or
// product of trigger.
func (n *ReactionNetwork) reactionDependsOn(candidate, trigger Reaction) bool {
	for l := 0; l < candidate.NumberOfReactants; l++ {
		for m := 0; m < trigger.NumberOfReactants; m++ {
			if candidate.Reactants[l] == trigger.Reactants[m] {
				return true
			}
		}
		for m := 0; m < trigger.NumberOfProducts; m++ {
			if candidate.Reactants[l] == trigger.Products[m] {
				return true
			}
		}
	}
	return false
}
