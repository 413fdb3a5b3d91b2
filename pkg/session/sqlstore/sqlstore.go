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

// Package sqlstore is a mattn/go-sqlite3-backed implementation of
// session.Store, the concrete example for §6's unprescribed "any
// key-value backend" session store. Grounded on the column/schema
// layout of the grounding repo's SQLSessionService, simplified from a
// normalized session+events schema to a single blob table since
// session.Store's contract is just save/load/delete of an opaque blob.
package sqlstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Store persists session blobs in a single SQLite table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures the sessions table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, corerr.Wrap("sqlstore.Open", corerr.KindStorePersistenceError, "failed to open database", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, corerr.Wrap("sqlstore.Open", corerr.KindStorePersistenceError, "failed to migrate schema", err)
	}
	return &Store{db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Save upserts id's blob.
func (s *Store) Save(id string, blob []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, blob, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = CURRENT_TIMESTAMP`,
		id, blob,
	)
	if err != nil {
		return corerr.Wrap("sqlstore.Store.Save", corerr.KindStorePersistenceError, fmt.Sprintf("failed to save session %q", id), err)
	}
	return nil
}

// Load returns id's blob, or a SessionNotFound error if no such session
// has been saved (StorePersistenceError for any other query failure).
func (s *Store) Load(id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, corerr.New("sqlstore.Store.Load", corerr.KindSessionNotFound, fmt.Sprintf("session %q not found", id))
	}
	if err != nil {
		return nil, corerr.Wrap("sqlstore.Store.Load", corerr.KindStorePersistenceError, fmt.Sprintf("failed to load session %q", id), err)
	}
	return blob, nil
}

// Delete removes id's row, if present.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return corerr.Wrap("sqlstore.Store.Delete", corerr.KindStorePersistenceError, fmt.Sprintf("failed to delete session %q", id), err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
