// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"path/filepath"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plan.db", "plan.db?" + sqlitePragmas},
		{"file:plan.db?mode=rwc", "file:plan.db?mode=rwc&" + sqlitePragmas},
		{"plan.db?_pragma=foreign_keys(1)", "plan.db?_pragma=foreign_keys(1)"},
	}

	for _, tt := range tests {
		if got := SQLiteDSN(tt.in); got != tt.want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpen_UnsupportedType(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestCreateSchema(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	// Idempotent
	for i := 0; i < 2; i++ {
		if err := CreateSchema(conn); err != nil {
			t.Fatalf("CreateSchema() call %d error = %v", i+1, err)
		}
	}

	for _, table := range []string{"canvass", "address", "street", "canvasser", "pair_exclusion", "plan_unit", "plan_stop", "report_snapshot"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestCreateSchema_Cascade(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "cascade.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn); err != nil {
		t.Fatal(err)
	}

	if _, err := conn.Exec(`INSERT INTO canvass (id, name) VALUES ($1, $2)`, "c1", "North"); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(`
		INSERT INTO address (id, canvass_id, seq, street, street_key, address)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, "a1", "c1", 1, "High St", "high st", "1 High St"); err != nil {
		t.Fatal(err)
	}

	if _, err := conn.Exec(`DELETE FROM canvass WHERE id = $1`, "c1"); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM address`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected address rows to cascade, %d left", count)
	}
}
