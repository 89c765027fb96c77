// Package viewstate persists which outline nodes are expanded, keyed by
// notebook root, so a tree reopens the way it was left.
package viewstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBName is the file created in the data directory.
const DBName = "outline.db"

// Store manages expanded state in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the store in dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize view state: %w", err)
	}

	return s, nil
}

// init creates the database schema
func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS view_state (
		root TEXT NOT NULL,
		node_id TEXT NOT NULL,
		expanded INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (root, node_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load returns the saved state of every node under root. A root that was
// never saved yields an empty map.
func (s *Store) Load(root string) (map[string]bool, error) {
	rows, err := s.db.Query("SELECT node_id, expanded FROM view_state WHERE root = ?", root)
	if err != nil {
		return nil, fmt.Errorf("query view state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]bool)
	for rows.Next() {
		var id string
		var expanded bool
		if err := rows.Scan(&id, &expanded); err != nil {
			return nil, fmt.Errorf("scan view state: %w", err)
		}
		state[id] = expanded
	}
	return state, rows.Err()
}

// Save replaces the state stored for root with state.
func (s *Store) Save(root string, state map[string]bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM view_state WHERE root = ?", root); err != nil {
		return fmt.Errorf("clear view state: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO view_state (root, node_id, expanded, updated_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for id, expanded := range state {
		if _, err := stmt.Exec(root, id, expanded, now); err != nil {
			return fmt.Errorf("save %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Set records the state of a single node.
func (s *Store) Set(root, id string, expanded bool) error {
	query := `
	INSERT OR REPLACE INTO view_state (root, node_id, expanded, updated_at)
	VALUES (?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, root, id, expanded, time.Now())
	return err
}

// Clear forgets everything stored for root.
func (s *Store) Clear(root string) error {
	_, err := s.db.Exec("DELETE FROM view_state WHERE root = ?", root)
	return err
}

// Roots lists the notebook roots with saved state, most recently updated
// first.
func (s *Store) Roots() ([]string, error) {
	rows, err := s.db.Query(`
	SELECT root FROM view_state
	GROUP BY root ORDER BY MAX(updated_at) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
