package bandit

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists Beta posteriors per arm id in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// migrates its schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("bandit: open %s: %w", dbPath, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("bandit: migrate: %w", err)
	}
	return s, nil
}

// NewStore wraps an already-open *sql.DB, migrating its schema.
// Callers that manage their own DB lifecycle use this instead of Open.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("bandit: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bandit_posteriors (
			arm_id TEXT PRIMARY KEY,
			alpha REAL NOT NULL,
			beta REAL NOT NULL,
			pulls INTEGER NOT NULL DEFAULT 0,
			last_updated INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the posterior for armID, or ok=false if none is stored
// yet (callers fall back to InitialPrior).
func (s *Store) Get(armID string) (Posterior, bool, error) {
	row := s.db.QueryRow(`SELECT alpha, beta, pulls, last_updated FROM bandit_posteriors WHERE arm_id = ?`, armID)
	var p Posterior
	if err := row.Scan(&p.Alpha, &p.Beta, &p.Pulls, &p.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return Posterior{}, false, nil
		}
		return Posterior{}, false, fmt.Errorf("bandit: get %s: %w", armID, err)
	}
	return p, true, nil
}

// All loads every stored posterior, keyed by arm id.
func (s *Store) All() (map[string]Posterior, error) {
	rows, err := s.db.Query(`SELECT arm_id, alpha, beta, pulls, last_updated FROM bandit_posteriors`)
	if err != nil {
		return nil, fmt.Errorf("bandit: query all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Posterior)
	for rows.Next() {
		var armID string
		var p Posterior
		if err := rows.Scan(&armID, &p.Alpha, &p.Beta, &p.Pulls, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("bandit: scan row: %w", err)
		}
		out[armID] = p
	}
	return out, rows.Err()
}

// Put upserts the posterior for armID.
func (s *Store) Put(armID string, p Posterior) error {
	_, err := s.db.Exec(`
		INSERT INTO bandit_posteriors (arm_id, alpha, beta, pulls, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(arm_id) DO UPDATE SET alpha=excluded.alpha, beta=excluded.beta,
			pulls=excluded.pulls, last_updated=excluded.last_updated
	`, armID, p.Alpha, p.Beta, p.Pulls, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("bandit: put %s: %w", armID, err)
	}
	return nil
}

// Observe loads armID's current posterior (or its initial prior for
// source if none is stored), applies the outcome, persists, and
// returns the updated posterior.
func (s *Store) Observe(armID string, source Source, reward float64, now time.Time) (Posterior, error) {
	p, ok, err := s.Get(armID)
	if err != nil {
		return Posterior{}, err
	}
	if !ok {
		p = InitialPrior(source)
	}
	p = Update(p, reward, now.UnixMilli())
	if err := s.Put(armID, p); err != nil {
		return Posterior{}, err
	}
	return p, nil
}

// Prune deletes posterior rows for arms not present in liveArmIDs.
// Returns the number of rows deleted.
func (s *Store) Prune(liveArmIDs []string) (int, error) {
	if len(liveArmIDs) == 0 {
		res, err := s.db.Exec(`DELETE FROM bandit_posteriors`)
		if err != nil {
			return 0, fmt.Errorf("bandit: prune all: %w", err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}

	placeholders := make([]string, len(liveArmIDs))
	args := make([]any, len(liveArmIDs))
	for i, id := range liveArmIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM bandit_posteriors WHERE arm_id NOT IN (%s)`, strings.Join(placeholders, ","))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("bandit: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
