// Package store is the persistence façade (spec.md §4.7/§6): the narrow
// set of operations the reaction network and the dispatcher need against
// two SQLite databases — a read-only reaction-network database and a
// read-write initial-state/trajectories database.
//
// Grounded on tobyjaguar-mini-world/internal/persistence/db.go's use of
// sqlx over modernc.org/sqlite (pure Go, no cgo), including its
// WAL/busy-timeout connection string and Beginx/Commit/Rollback
// transaction idiom.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gmcsim/internal/network"
)

// ReactionStore is a read-only handle on the reaction-network database.
type ReactionStore struct {
	conn *sqlx.DB
}

// OpenReactionStore opens the reaction-network database read-only.
// spec.md §6 describes this database as read-only input; opening it with
// mode=ro means a misconfigured path that happens to also be the
// initial-state database can't be corrupted by a stray write from this
// side.
func OpenReactionStore(path string) (*ReactionStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?mode=ro&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open reaction db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open reaction db: %w", err)
	}
	return &ReactionStore{conn: conn}, nil
}

// Close closes the underlying connection.
func (r *ReactionStore) Close() error { return r.conn.Close() }

// Metadata mirrors spec.md §6's metadata table, extended with
// number_of_reactions — recovered from
// original_source/GMC/reaction_network.h's MetadataSql, which the core
// engine uses for the post-load sanity check (§6). number_of_sites and
// number_of_interactions are only meaningful in lattice mode.
type Metadata struct {
	NumberOfSpecies      int `db:"number_of_species"`
	NumberOfReactions    int `db:"number_of_reactions"`
	NumberOfSites        int `db:"number_of_sites"`
	NumberOfInteractions int `db:"number_of_interactions"`
}

// LoadMetadata loads the single metadata row, used as the sanity check
// against the species/reactions actually read.
func (r *ReactionStore) LoadMetadata() (Metadata, error) {
	var row Metadata
	if err := r.conn.Get(&row, "SELECT number_of_species, number_of_reactions, number_of_sites, number_of_interactions FROM metadata"); err != nil {
		return Metadata{}, fmt.Errorf("load metadata: %w", err)
	}
	return row, nil
}

type speciesRow struct {
	SpeciesID        int `db:"species_id"`
	DegreesOfFreedom int `db:"degrees_of_freedom"`
}

// LoadSpecies loads every row of the species table.
func (r *ReactionStore) LoadSpecies() ([]network.Species, error) {
	var rows []speciesRow
	if err := r.conn.Select(&rows, "SELECT species_id, degrees_of_freedom FROM species ORDER BY species_id"); err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	out := make([]network.Species, len(rows))
	for i, row := range rows {
		out[i] = network.Species{ID: network.SpeciesID(row.SpeciesID), DegreesOfFreedom: row.DegreesOfFreedom}
	}
	return out, nil
}

type reactionRow struct {
	ReactionID        int     `db:"reaction_id"`
	NumberOfReactants int     `db:"number_of_reactants"`
	NumberOfProducts  int     `db:"number_of_products"`
	Reactant1         int     `db:"reactant_1"`
	Reactant2         int     `db:"reactant_2"`
	Product1          int     `db:"product_1"`
	Product2          int     `db:"product_2"`
	Rate              float64 `db:"rate"`
}

// LoadReactions loads every row of the reactions table, ordered by
// reaction_id, matching spec.md §6's schema and
// original_source/GMC/reaction_network.h's loading loop.
func (r *ReactionStore) LoadReactions() ([]network.Reaction, error) {
	var rows []reactionRow
	if err := r.conn.Select(&rows, `SELECT reaction_id, number_of_reactants, number_of_products,
		reactant_1, reactant_2, product_1, product_2, rate
		FROM reactions ORDER BY reaction_id`); err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}

	out := make([]network.Reaction, len(rows))
	for i, row := range rows {
		if row.ReactionID != i {
			return nil, fmt.Errorf("load reactions: gap or out-of-order reaction_id at position %d (got %d)", i, row.ReactionID)
		}
		out[i] = network.Reaction{
			ID:                network.ReactionID(row.ReactionID),
			NumberOfReactants: row.NumberOfReactants,
			NumberOfProducts:  row.NumberOfProducts,
			Reactants:         [2]network.SpeciesID{network.SpeciesID(row.Reactant1), network.SpeciesID(row.Reactant2)},
			Products:          [2]network.SpeciesID{network.SpeciesID(row.Product1), network.SpeciesID(row.Product2)},
			Rate:              row.Rate,
		}
	}
	return out, nil
}

type factorsRow struct {
	FactorZero      float64 `db:"factor_zero"`
	FactorTwo       float64 `db:"factor_two"`
	FactorDuplicate float64 `db:"factor_duplicate"`
}

// LoadFactors loads the optional factors table (SPEC_FULL.md §3). Absent
// table ⇒ identity factors, matching spec.md's unmodified formula.
func (r *ReactionStore) LoadFactors() (network.Factors, error) {
	hasTable, err := r.tableExists("factors")
	if err != nil {
		return network.Factors{}, err
	}
	if !hasTable {
		return network.DefaultFactors(), nil
	}

	var row factorsRow
	if err := r.conn.Get(&row, "SELECT factor_zero, factor_two, factor_duplicate FROM factors"); err != nil {
		return network.Factors{}, fmt.Errorf("load factors: %w", err)
	}
	return network.Factors{Zero: row.FactorZero, Two: row.FactorTwo, Duplicate: row.FactorDuplicate}, nil
}

func (r *ReactionStore) tableExists(name string) (bool, error) {
	var count int
	err := r.conn.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}
