// Package store persists the banned-phrase list in SQLite so operators can
// manage it outside the config file. Phrases are loaded once at server
// construction; the running server never reads the store again.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding the banned-phrase list.
type Store struct {
	conn *sql.DB
}

// Open opens the database at path and initializes the schema if needed.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The phrase list is tiny and read once; a single connection avoids
	// SQLite writer contention entirely.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS banned_phrases (
			phrase TEXT PRIMARY KEY,
			added_at INTEGER NOT NULL DEFAULT (unixepoch())
		)
	`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// BannedPhrases returns every stored phrase, lowercased.
func (s *Store) BannedPhrases() ([]string, error) {
	rows, err := s.conn.Query("SELECT phrase FROM banned_phrases ORDER BY phrase")
	if err != nil {
		return nil, fmt.Errorf("failed to query banned phrases: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return nil, fmt.Errorf("failed to scan phrase: %w", err)
		}
		phrases = append(phrases, phrase)
	}
	return phrases, rows.Err()
}

// AddPhrase stores a phrase, lowercased. Adding an existing phrase is a
// no-op.
func (s *Store) AddPhrase(phrase string) error {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return fmt.Errorf("cannot ban an empty phrase")
	}

	_, err := s.conn.Exec("INSERT OR IGNORE INTO banned_phrases (phrase) VALUES (?)", phrase)
	if err != nil {
		return fmt.Errorf("failed to add phrase: %w", err)
	}
	return nil
}

// RemovePhrase deletes a phrase. Removing an absent phrase is a no-op.
func (s *Store) RemovePhrase(phrase string) error {
	phrase = strings.ToLower(strings.TrimSpace(phrase))

	_, err := s.conn.Exec("DELETE FROM banned_phrases WHERE phrase = ?", phrase)
	if err != nil {
		return fmt.Errorf("failed to remove phrase: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}
