/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const snapshotSchema = `CREATE TABLE IF NOT EXISTS snapshots (
	slot TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores every slot as one row of a snapshots table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Slot(name string) (Store, error) {
	if err := validateSlot(name); err != nil {
		return nil, err
	}
	return &sqliteStore{db: b.db, slot: name}, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type sqliteStore struct {
	db   *sql.DB
	slot string
}

func (s *sqliteStore) Load() (State, error) {
	var data string

	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE slot = ?`, s.slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNoSnapshot
		}
		return State{}, fmt.Errorf("query snapshot: %w", err)
	}

	return decodeState([]byte(data))
}

func (s *sqliteStore) Save(st State) error {
	data, err := encodeState(st)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO snapshots (slot, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.slot, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

func (s *sqliteStore) Purge() error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE slot = ?`, s.slot); err != nil {
		return fmt.Errorf("purge snapshot: %w", err)
	}
	return nil
}
