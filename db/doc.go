// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Drivers

Open picks the driver from the configured type:

  - sqlite (default): modernc.org/sqlite, pure Go, with foreign keys,
    WAL journaling and a busy timeout
  - postgres: github.com/lib/pq

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

All queries in the application use $n placeholders, which both drivers
accept.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - canvass: Canvass metadata, lifecycle state and last plan settings
  - address: Register rows, one per elector address
  - street: Walking order and selection per street
  - canvasser: Roster
  - pair_exclusion: Canvassers that must not be paired
  - plan_unit: Walking units of the current plan
  - plan_stop: Route order and unit per address
  - report_snapshot: Report frozen at close

# Relationships

	canvass 1──* address
	canvass 1──* street
	canvass 1──* canvasser
	canvasser *──* canvasser (via pair_exclusion)
	canvass 1──* plan_unit
	address 1──1 plan_stop
	canvass 1──* report_snapshot

All foreign keys use ON DELETE CASCADE.
*/
package db
