// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlnotebook is a mattn/go-sqlite3-backed notebook.Storage,
// the durable counterpart of notebook.Memory. Same single-table shape
// as session/sqlstore.
package sqlnotebook

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/notebook"
)

// Storage persists notes in a single SQLite table.
type Storage struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures the notes table exists.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, corerr.Wrap("sqlnotebook.Open", corerr.KindStorePersistenceError, "failed to open database", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, corerr.Wrap("sqlnotebook.Open", corerr.KindStorePersistenceError, "failed to migrate schema", err)
	}
	return &Storage{db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS notes (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Get returns the value stored under key and whether it was present.
func (s *Storage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM notes WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, corerr.Wrap("sqlnotebook.Storage.Get", corerr.KindStorePersistenceError, fmt.Sprintf("failed to read note %q", key), err)
	}
	return value, true, nil
}

// Set upserts key's value, enforcing the same size cap as the in-memory
// notebook.
func (s *Storage) Set(key, value string) error {
	if key == "" {
		return corerr.New("sqlnotebook.Storage.Set", corerr.KindInvalidInput, "key must not be empty")
	}
	if len(value) > notebook.MaxValueSize {
		return corerr.New("sqlnotebook.Storage.Set", corerr.KindInvalidInput,
			fmt.Sprintf("value for key %q exceeds %d bytes", key, notebook.MaxValueSize))
	}
	_, err := s.db.Exec(
		`INSERT INTO notes (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return corerr.Wrap("sqlnotebook.Storage.Set", corerr.KindStorePersistenceError, fmt.Sprintf("failed to save note %q", key), err)
	}
	return nil
}

// Delete removes key's row, if present.
func (s *Storage) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM notes WHERE key = ?`, key)
	if err != nil {
		return corerr.Wrap("sqlnotebook.Storage.Delete", corerr.KindStorePersistenceError, fmt.Sprintf("failed to delete note %q", key), err)
	}
	return nil
}

// Keys returns every stored key, sorted.
func (s *Storage) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM notes ORDER BY key`)
	if err != nil {
		return nil, corerr.Wrap("sqlnotebook.Storage.Keys", corerr.KindStorePersistenceError, "failed to list notes", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, corerr.Wrap("sqlnotebook.Storage.Keys", corerr.KindStorePersistenceError, "failed to scan note key", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}
