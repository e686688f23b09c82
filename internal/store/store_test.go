package store

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func seedReactionDB(t *testing.T, withFactors bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reactions.db")

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer conn.Close()

	schema := `
	CREATE TABLE metadata (
		number_of_species INTEGER NOT NULL,
		number_of_reactions INTEGER NOT NULL,
		number_of_sites INTEGER NOT NULL DEFAULT 0,
		number_of_interactions INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE species (
		species_id INTEGER PRIMARY KEY,
		degrees_of_freedom INTEGER NOT NULL
	);
	CREATE TABLE reactions (
		reaction_id INTEGER PRIMARY KEY,
		number_of_reactants INTEGER NOT NULL,
		number_of_products INTEGER NOT NULL,
		reactant_1 INTEGER NOT NULL,
		reactant_2 INTEGER NOT NULL,
		product_1 INTEGER NOT NULL,
		product_2 INTEGER NOT NULL,
		rate REAL NOT NULL
	);`
	if _, err := conn.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	if withFactors {
		if _, err := conn.Exec(`CREATE TABLE factors (
			factor_zero REAL NOT NULL, factor_two REAL NOT NULL, factor_duplicate REAL NOT NULL)`); err != nil {
			t.Fatalf("create factors table: %v", err)
		}
		if _, err := conn.Exec(`INSERT INTO factors VALUES (1.0, 2.0, 0.5)`); err != nil {
			t.Fatalf("insert factors: %v", err)
		}
	}

	if _, err := conn.Exec(`INSERT INTO metadata VALUES (2, 1, 0, 0)`); err != nil {
		t.Fatalf("insert metadata: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO species VALUES (0, 1), (1, 1)`); err != nil {
		t.Fatalf("insert species: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO reactions VALUES (0, 1, 1, 0, -1, 1, -1, 2.5)`); err != nil {
		t.Fatalf("insert reactions: %v", err)
	}

	return path
}

func TestLoadMetadataSpeciesReactions(t *testing.T) {
	path := seedReactionDB(t, false)

	rs, err := OpenReactionStore(path)
	if err != nil {
		t.Fatalf("open reaction store: %v", err)
	}
	defer rs.Close()

	meta, err := rs.LoadMetadata()
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	if meta.NumberOfSpecies != 2 || meta.NumberOfReactions != 1 {
		t.Fatalf("metadata = %+v, want species=2 reactions=1", meta)
	}

	species, err := rs.LoadSpecies()
	if err != nil {
		t.Fatalf("load species: %v", err)
	}
	if len(species) != 2 {
		t.Fatalf("loaded %d species, want 2", len(species))
	}

	reactions, err := rs.LoadReactions()
	if err != nil {
		t.Fatalf("load reactions: %v", err)
	}
	if len(reactions) != 1 || reactions[0].Rate != 2.5 {
		t.Fatalf("loaded reactions = %+v, want 1 reaction with rate 2.5", reactions)
	}
}

func TestLoadFactorsDefaultsWhenTableAbsent(t *testing.T) {
	path := seedReactionDB(t, false)

	rs, err := OpenReactionStore(path)
	if err != nil {
		t.Fatalf("open reaction store: %v", err)
	}
	defer rs.Close()

	factors, err := rs.LoadFactors()
	if err != nil {
		t.Fatalf("load factors: %v", err)
	}
	if factors.Zero != 1 || factors.Two != 1 || factors.Duplicate != 0.5 {
		t.Fatalf("factors = %+v, want identity defaults (Duplicate carries the combinatorial 1/2)", factors)
	}
}

func TestLoadFactorsReadsTableWhenPresent(t *testing.T) {
	path := seedReactionDB(t, true)

	rs, err := OpenReactionStore(path)
	if err != nil {
		t.Fatalf("open reaction store: %v", err)
	}
	defer rs.Close()

	factors, err := rs.LoadFactors()
	if err != nil {
		t.Fatalf("load factors: %v", err)
	}
	if factors.Zero != 1.0 || factors.Two != 2.0 || factors.Duplicate != 0.5 {
		t.Fatalf("factors = %+v, want {1.0 2.0 0.5}", factors)
	}
}

func TestLoadReactionsRejectsGapInIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gapped.db")
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`CREATE TABLE reactions (
		reaction_id INTEGER PRIMARY KEY, number_of_reactants INTEGER, number_of_products INTEGER,
		reactant_1 INTEGER, reactant_2 INTEGER, product_1 INTEGER, product_2 INTEGER, rate REAL)`); err != nil {
		t.Fatalf("create reactions table: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO reactions VALUES (0, 1, 0, 0, -1, -1, -1, 1.0), (2, 1, 0, 0, -1, -1, -1, 1.0)`); err != nil {
		t.Fatalf("insert reactions: %v", err)
	}

	rs, err := OpenReactionStore(path)
	if err != nil {
		t.Fatalf("open reaction store: %v", err)
	}
	defer rs.Close()

	if _, err := rs.LoadReactions(); err == nil {
		t.Fatalf("expected an error for a gapped reaction_id sequence")
	}
}
