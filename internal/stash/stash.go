package stash

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry is one stash key/value pair.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt int64
}

// Set stores a value under key, overwriting any previous value.
func (db *DB) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("stash key required")
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO stash (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("stash set: %w", err)
	}
	return nil
}

// Get returns the value for key. A missing key returns ("", false, nil).
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.QueryRow("SELECT value FROM stash WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stash get: %w", err)
	}
	return value, true, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (db *DB) Delete(key string) error {
	if _, err := db.Exec("DELETE FROM stash WHERE key = ?", key); err != nil {
		return fmt.Errorf("stash delete: %w", err)
	}
	return nil
}

// List returns all entries ordered by key.
func (db *DB) List() ([]Entry, error) {
	rows, err := db.Query("SELECT key, value, updated_at FROM stash ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("stash list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stash entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
