// Package memory persists every delegated task and its outcome in a SQLite
// database inside the working directory, and recalls past exchanges by
// substring match.
package memory

import (
	"database/sql"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/m4xw311/termagent/errors"
)

const dbFile = "agent_memory.db"

// Entry is one remembered exchange.
type Entry struct {
	ID        int64
	Agent     string
	UserInput string
	Response  string
	Timestamp time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the memory database in dir.
func Open(dir string) (*Store, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open memory database")
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memory (
			id INTEGER PRIMARY KEY,
			agent TEXT,
			user_input TEXT,
			ai_response TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return errors.Wrapf(err, "failed to initialize memory schema")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an exchange and returns its row ID, which doubles as the
// task ID reported to the user.
func (s *Store) Record(agent, userInput, response string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO memory (agent, user_input, ai_response) VALUES (?, ?, ?)",
		agent, userInput, response,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to record exchange for agent '%s'", agent)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read task id")
	}
	return id, nil
}

// Recall returns up to limit past exchanges whose input contains the given
// text, newest first.
func (s *Store) Recall(userInput string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, agent, user_input, ai_response, timestamp FROM memory
		 WHERE user_input LIKE ? ORDER BY timestamp DESC LIMIT ?`,
		"%"+userInput+"%", limit,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query memory")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Agent, &e.UserInput, &e.Response, &e.Timestamp); err != nil {
			return nil, errors.Wrapf(err, "failed to scan memory row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
