package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"gmcsim/internal/network"
	"gmcsim/internal/simulation"
)

// InitialStateStore is a read-write handle on the initial-state database:
// it supplies the starting species counts and the optional fixed-state
// table, and receives written trajectory rows.
type InitialStateStore struct {
	conn *sqlx.DB
}

// OpenInitialStateStore opens (and migrates) the initial-state database
// read-write, matching spec.md §6's "Initial-state database (read-write)".
func OpenInitialStateStore(path string) (*InitialStateStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open initial-state db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open initial-state db: %w", err)
	}

	s := &InitialStateStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate initial-state db: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *InitialStateStore) Close() error { return s.conn.Close() }

func (s *InitialStateStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trajectories (
		seed        INTEGER NOT NULL,
		step        INTEGER NOT NULL,
		reaction_id INTEGER NOT NULL,
		time        REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trajectories_seed_step ON trajectories(seed, step);
	`
	_, err := s.conn.Exec(schema)
	return err
}

type initialStateRow struct {
	SpeciesID int   `db:"species_id"`
	Count     int64 `db:"count"`
}

// LoadInitialState loads the initial_state table into a State sized for
// numSpecies (spec.md §6).
func (s *InitialStateStore) LoadInitialState(numSpecies int) (*network.State, error) {
	var rows []initialStateRow
	if err := s.conn.Select(&rows, "SELECT species_id, count FROM initial_state"); err != nil {
		return nil, fmt.Errorf("load initial_state: %w", err)
	}

	state := network.NewState(numSpecies)
	for _, row := range rows {
		if row.SpeciesID < 0 || row.SpeciesID >= numSpecies {
			return nil, fmt.Errorf("load initial_state: species_id %d out of range [0,%d)", row.SpeciesID, numSpecies)
		}
		state.Counts[row.SpeciesID] = row.Count
	}
	return state, nil
}

// LoadFixedState loads the optional fixed_state table
// (SPEC_FULL.md §3/§4.3). Absent table ⇒ no species fixed.
func (s *InitialStateStore) LoadFixedState(numSpecies int) ([]bool, error) {
	hasTable, err := s.tableExists("fixed_state")
	if err != nil {
		return nil, err
	}
	fixed := make([]bool, numSpecies)
	if !hasTable {
		return fixed, nil
	}

	var ids []int
	if err := s.conn.Select(&ids, "SELECT species_id FROM fixed_state"); err != nil {
		return nil, fmt.Errorf("load fixed_state: %w", err)
	}
	for _, id := range ids {
		if id >= 0 && id < numSpecies {
			fixed[id] = true
		}
	}
	return fixed, nil
}

func (s *InitialStateStore) tableExists(name string) (bool, error) {
	var count int
	err := s.conn.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

// WriteTrajectory persists one completed trajectory in a single
// transaction, so partial trajectories are never visible to a reader
// (spec.md §5's "each trajectory is written inside a single
// transaction"). Grounded on
// tobyjaguar-mini-world/internal/persistence/db.go's Beginx/Preparex/Commit
// pattern.
func (s *InitialStateStore) WriteTrajectory(packet simulation.HistoryPacket) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin trajectory write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO trajectories (seed, step, reaction_id, time) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trajectory insert: %w", err)
	}
	defer stmt.Close()

	for step, elem := range packet.History {
		if _, err := stmt.Exec(packet.Seed, step, elem.ReactionID, elem.Time); err != nil {
			return fmt.Errorf("insert trajectory row (seed=%d step=%d): %w", packet.Seed, step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trajectory write: %w", err)
	}
	return nil
}

// DeduplicateTrajectories removes rows that share (seed, step), keeping
// only the row with the smallest rowid — the dedup sweep spec.md §4.7/§6
// describes, and kept as a safety net per SPEC_FULL.md §9 even though the
// dispatcher's single-writer design should make duplicates unreachable.
func (s *InitialStateStore) DeduplicateTrajectories() error {
	const stmt = `DELETE FROM trajectories WHERE rowid NOT IN
		(SELECT MIN(rowid) FROM trajectories GROUP BY seed, step)`
	if _, err := s.conn.Exec(stmt); err != nil {
		return fmt.Errorf("deduplicate trajectories: %w", err)
	}
	return nil
}
