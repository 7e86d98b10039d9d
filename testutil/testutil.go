// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/route-optimiser/auth"
	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/db"
	"github.com/danielhkuo/route-optimiser/register"
)

// SetupTestDB creates a fresh SQLite database with the full schema in the
// test's temp directory
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "test.db",
		DatabaseType:   db.TypeSQLite,
		AdminKeySalt:   "test-admin-salt",
		WalkSlugSalt:   "test-slug-salt",
		IPHashSalt:     "test-ip-salt",
		MaxUploadBytes: 1 << 20,
		MaxRows:        1000,
		BaseURL:        "http://localhost:3318",
	}
}

// CreateTestCanvass creates a canvass in the database and returns its ID and
// admin key. status should be "draft", "planned", or "closed"; the columns are
// Street and Address.
func CreateTestCanvass(t *testing.T, conn *sql.DB, cfg cliparse.Config, status string) (canvassID, adminKey string) {
	t.Helper()

	canvassID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(canvassID, cfg.AdminKeySalt)

	var closedAt *time.Time
	if status == "closed" {
		now := time.Now()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO canvass (id, name, status, columns_json, closed_at, created_at)
		VALUES ($1, 'Test Canvass', $2, '["Street","Address"]', $3, $4)
	`, canvassID, status, closedAt, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test canvass: %v", err)
	}

	return canvassID, adminKey
}

// AddTestAddress adds a register address and its street (at the end of the
// walking order) and returns the address ID
func AddTestAddress(t *testing.T, conn *sql.DB, canvassID, street, address string) string {
	t.Helper()

	key := register.StreetKey(street)
	var seq, position int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM address WHERE canvass_id = $1`, canvassID).Scan(&seq); err != nil {
		t.Fatalf("Failed to count addresses: %v", err)
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM street WHERE canvass_id = $1`, canvassID).Scan(&position); err != nil {
		t.Fatalf("Failed to count streets: %v", err)
	}

	var houseNumber *int
	if n, ok := register.ParseHouseNumber(address); ok {
		houseNumber = &n
	}

	addressID := uuid.NewString()
	fields, _ := json.Marshal(map[string]string{"Street": street, "Address": address})
	_, err := conn.Exec(`
		INSERT INTO address (id, canvass_id, seq, street, street_key, address, house_number, fields_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, addressID, canvassID, seq+1, street, key, address, houseNumber, string(fields))
	if err != nil {
		t.Fatalf("Failed to create test address: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO street (canvass_id, street_key, name, position, included)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (canvass_id, street_key) DO NOTHING
	`, canvassID, key, street, position)
	if err != nil {
		t.Fatalf("Failed to create test street: %v", err)
	}

	return addressID
}

// AddTestCanvasser adds a roster member and returns the canvasser ID
func AddTestCanvasser(t *testing.T, conn *sql.DB, canvassID, name string) string {
	t.Helper()

	var position int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM canvasser WHERE canvass_id = $1`, canvassID).Scan(&position); err != nil {
		t.Fatalf("Failed to count canvassers: %v", err)
	}

	canvasserID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO canvasser (id, canvass_id, name, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, canvasserID, canvassID, name, position, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test canvasser: %v", err)
	}

	return canvasserID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// MakeUpload creates a multipart register upload request. An empty filename
// leaves the file part out.
func MakeUpload(t *testing.T, path, name, filename, csvData string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			t.Fatalf("Failed to write name field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("register", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		fw.Write([]byte(csvData))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
