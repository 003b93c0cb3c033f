// Package store is the sqlite record store behind the scheduling engine.
// One file on disk, schema created on open, every mutation a single atomic
// write. Filtered reads are built with squirrel.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB with the scheduling schema.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path and ensures the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS centers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS lanes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			center_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 1,
			allowed_groups TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (center_id) REFERENCES centers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			price_cents INTEGER NOT NULL DEFAULT 0,
			treatment_group TEXT,
			group_id INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT,
			last_name TEXT,
			email TEXT UNIQUE,
			phone TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			center_id INTEGER NOT NULL,
			lane_id INTEGER,
			service_id INTEGER NOT NULL,
			client_id INTEGER,
			start_time DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			price_cents INTEGER NOT NULL DEFAULT 0,
			notes TEXT,
			payment_method TEXT,
			method_status TEXT,
			paid_at DATETIME,
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (center_id) REFERENCES centers(id),
			FOREIGN KEY (lane_id) REFERENCES lanes(id),
			FOREIGN KEY (service_id) REFERENCES services(id),
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,

		`CREATE TABLE IF NOT EXISTS lane_blocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			center_id INTEGER NOT NULL,
			lane_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			reason TEXT,
			created_by TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (center_id) REFERENCES centers(id),
			FOREIGN KEY (lane_id) REFERENCES lanes(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_center_start ON bookings(center_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client ON bookings(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_center_start ON lane_blocks(center_id, start_time)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
