// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The SQL is shared by SQLite and PostgreSQL.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Canvasses
CREATE TABLE IF NOT EXISTS canvass (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'planned', 'closed')),
    columns_json TEXT NOT NULL DEFAULT '[]',
    source_filename TEXT,
    uploader_ip_hash TEXT,
    skipped_rows INTEGER NOT NULL DEFAULT 0,
    plan_mode TEXT,
    plan_unit_size INTEGER,
    plan_max_chunk INTEGER,
    plan_canvasser_count INTEGER,
    plan_generation INTEGER NOT NULL DEFAULT 0,
    edit_version INTEGER NOT NULL DEFAULT 0,
    planned_at TIMESTAMP,
    closed_at TIMESTAMP,
    final_snapshot_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_canvass_status ON canvass(status);

-- Register addresses
CREATE TABLE IF NOT EXISTS address (
    id TEXT PRIMARY KEY,
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    street TEXT NOT NULL,
    street_key TEXT NOT NULL,
    address TEXT NOT NULL,
    house_number INTEGER,
    source TEXT NOT NULL DEFAULT 'upload' CHECK (source IN ('upload', 'manual')),
    fields_json TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_address_canvass_id ON address(canvass_id);
CREATE INDEX IF NOT EXISTS idx_address_street ON address(canvass_id, street_key);

-- Walking order and selection of streets
CREATE TABLE IF NOT EXISTS street (
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    street_key TEXT NOT NULL,
    name TEXT NOT NULL,
    position INTEGER NOT NULL,
    included INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (canvass_id, street_key)
);

-- Roster
CREATE TABLE IF NOT EXISTS canvasser (
    id TEXT PRIMARY KEY,
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    position INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (canvass_id, name)
);

CREATE INDEX IF NOT EXISTS idx_canvasser_canvass_id ON canvasser(canvass_id);

-- Pairs that must not walk together, stored with canvasser_a < canvasser_b
CREATE TABLE IF NOT EXISTS pair_exclusion (
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    canvasser_a TEXT NOT NULL REFERENCES canvasser(id) ON DELETE CASCADE,
    canvasser_b TEXT NOT NULL REFERENCES canvasser(id) ON DELETE CASCADE,
    PRIMARY KEY (canvass_id, canvasser_a, canvasser_b),
    CHECK (canvasser_a < canvasser_b)
);

-- Current plan
CREATE TABLE IF NOT EXISTS plan_unit (
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    unit_id TEXT NOT NULL,
    label TEXT NOT NULL,
    position INTEGER NOT NULL,
    members_json TEXT NOT NULL DEFAULT '[]',
    walk_slug TEXT NOT NULL UNIQUE,
    PRIMARY KEY (canvass_id, unit_id)
);

CREATE TABLE IF NOT EXISTS plan_stop (
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    address_id TEXT NOT NULL REFERENCES address(id) ON DELETE CASCADE,
    route_order INTEGER NOT NULL,
    side TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    unit_id TEXT,
    PRIMARY KEY (canvass_id, address_id)
);

CREATE INDEX IF NOT EXISTS idx_plan_stop_order ON plan_stop(canvass_id, route_order);

-- Report frozen when a canvass is closed
CREATE TABLE IF NOT EXISTS report_snapshot (
    id TEXT PRIMARY KEY,
    canvass_id TEXT NOT NULL REFERENCES canvass(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_snapshot_canvass_id ON report_snapshot(canvass_id);
`
