// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/route-optimiser/auth"
	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/models"
	"github.com/danielhkuo/route-optimiser/testutil"
)

const testRegister = `Street,Address,Elector
High Street,1 High Street,Ann
High Street,2 High Street,Bob
High Street,3 High Street,Cat
Mill Lane,4 Mill Lane,Dan
Mill Lane,1 Mill Lane,Eve
,9 Nowhere,Fay
`

// adminRequest builds a request for an admin route with the path values set
func adminRequest(method, path string, body interface{}, adminKey string, pathValues map[string]string) *http.Request {
	req := testutil.MakeRequest(method, path, body, map[string]string{"X-Admin-Key": adminKey})
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// uploadTestRegister creates a canvass through the handler
func uploadTestRegister(t *testing.T, db *sql.DB, cfg cliparse.Config, csvData string) models.CreateCanvassResponse {
	t.Helper()

	req := testutil.MakeUpload(t, "/canvasses", "North Ward", "register.csv", csvData)
	w := httptest.NewRecorder()
	NewCanvassHandler(db, cfg).CreateCanvass(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Upload failed: %d - %s", w.Code, w.Body.String())
	}

	var resp models.CreateCanvassResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func TestCreateCanvass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	resp := uploadTestRegister(t, db, cfg, testRegister)

	if resp.CanvassID == "" {
		t.Fatal("Expected non-empty canvass_id")
	}
	if resp.AdminKey != auth.GenerateAdminKey(resp.CanvassID, cfg.AdminKeySalt) {
		t.Error("Admin key does not match expected value")
	}
	if resp.Name != "North Ward" {
		t.Errorf("Expected name 'North Ward', got '%s'", resp.Name)
	}
	if resp.Addresses != 5 {
		t.Errorf("Expected 5 addresses, got %d", resp.Addresses)
	}
	if resp.Skipped != 1 {
		t.Errorf("Expected 1 skipped row, got %d", resp.Skipped)
	}

	if len(resp.Streets) != 2 {
		t.Fatalf("Expected 2 streets, got %d", len(resp.Streets))
	}
	if resp.Streets[0].Name != "High Street" || resp.Streets[0].Addresses != 3 || !resp.Streets[0].Included {
		t.Errorf("Unexpected first street: %+v", resp.Streets[0])
	}
	if resp.Streets[1].Name != "Mill Lane" || resp.Streets[1].Position != 1 {
		t.Errorf("Unexpected second street: %+v", resp.Streets[1])
	}

	var status, ipHash string
	var skipped int
	err := db.QueryRow(`
		SELECT status, uploader_ip_hash, skipped_rows FROM canvass WHERE id = $1
	`, resp.CanvassID).Scan(&status, &ipHash, &skipped)
	if err != nil {
		t.Fatalf("Failed to query canvass: %v", err)
	}
	if status != models.StatusDraft {
		t.Errorf("Expected status 'draft', got '%s'", status)
	}
	if ipHash == "" || ipHash == "192.0.2.1" {
		t.Errorf("Expected hashed uploader IP, got '%s'", ipHash)
	}
	if skipped != 1 {
		t.Errorf("Expected skipped_rows 1, got %d", skipped)
	}

	var unnumbered int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM address WHERE canvass_id = $1 AND house_number IS NULL
	`, resp.CanvassID).Scan(&unnumbered)
	if err != nil {
		t.Fatalf("Failed to query addresses: %v", err)
	}
	if unnumbered != 0 {
		t.Errorf("Expected every address numbered, %d without", unnumbered)
	}
}

func TestCreateCanvass_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)

	tests := []struct {
		name           string
		filename       string
		csvData        string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "missing file",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "register file is required",
		},
		{
			name:           "missing columns",
			filename:       "bad.csv",
			csvData:        "Name,Postcode\nAnn,AB1\n",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "CSV must contain at least 'Street' and 'Address' columns.",
		},
		{
			name:           "empty file",
			filename:       "empty.csv",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no streets",
			filename:       "blank.csv",
			csvData:        "Street,Address\n,1 Nowhere\n",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Register has no rows with a street",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeUpload(t, "/canvasses", "Test", tt.filename, tt.csvData)
			w := httptest.NewRecorder()

			handler.CreateCanvass(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedMsg != "" {
				var resp models.ErrorResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Message != tt.expectedMsg {
					t.Errorf("Expected message %q, got %q", tt.expectedMsg, resp.Message)
				}
			}
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/canvasses", map[string]string{"name": "x"}, nil)
		w := httptest.NewRecorder()
		handler.CreateCanvass(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestCreateCanvass_Limits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	t.Run("too many rows", func(t *testing.T) {
		cfg := testutil.GetTestConfig()
		cfg.MaxRows = 2

		req := testutil.MakeUpload(t, "/canvasses", "Test", "register.csv", testRegister)
		w := httptest.NewRecorder()
		NewCanvassHandler(db, cfg).CreateCanvass(w, req)

		testutil.AssertStatus(t, w, http.StatusRequestEntityTooLarge)
	})

	t.Run("body too large", func(t *testing.T) {
		cfg := testutil.GetTestConfig()
		cfg.MaxUploadBytes = 64

		req := testutil.MakeUpload(t, "/canvasses", "Test", "register.csv", strings.Repeat(testRegister, 10))
		w := httptest.NewRecorder()
		NewCanvassHandler(db, cfg).CreateCanvass(w, req)

		testutil.AssertStatus(t, w, http.StatusRequestEntityTooLarge)
	})
}

func TestCreateCanvass_DefaultName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	req := testutil.MakeUpload(t, "/canvasses", "", "east_ward.csv", testRegister)
	w := httptest.NewRecorder()
	NewCanvassHandler(db, testutil.GetTestConfig()).CreateCanvass(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp models.CreateCanvassResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Name != "east_ward" {
		t.Errorf("Expected name from filename, got '%s'", resp.Name)
	}
}

func TestGetCanvass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)
	created := uploadTestRegister(t, db, cfg, testRegister)
	testutil.AddTestCanvasser(t, db, created.CanvassID, "Alice")

	tests := []struct {
		name           string
		canvassID      string
		adminKey       string
		expectedStatus int
	}{
		{"valid", created.CanvassID, created.AdminKey, http.StatusOK},
		{"wrong key", created.CanvassID, "wrong", http.StatusUnauthorized},
		{"missing key", created.CanvassID, "", http.StatusUnauthorized},
		{"unknown canvass", "nope", auth.GenerateAdminKey("nope", cfg.AdminKeySalt), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := adminRequest("GET", "/canvasses/"+tt.canvassID, nil, tt.adminKey, map[string]string{"id": tt.canvassID})
			w := httptest.NewRecorder()

			handler.GetCanvass(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var detail models.CanvassDetail
			testutil.AssertJSON(t, w, &detail)
			if detail.Canvass.Name != "North Ward" {
				t.Errorf("Expected name 'North Ward', got '%s'", detail.Canvass.Name)
			}
			if len(detail.Canvass.Columns) != 3 || detail.Canvass.Columns[2] != "Elector" {
				t.Errorf("Unexpected columns %v", detail.Canvass.Columns)
			}
			if detail.Addresses != 5 || detail.Canvassers != 1 || len(detail.Streets) != 2 {
				t.Errorf("Unexpected counts: %d addresses, %d canvassers, %d streets",
					detail.Addresses, detail.Canvassers, len(detail.Streets))
			}
		})
	}
}

func TestUpdateStreets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)
	created := uploadTestRegister(t, db, cfg, testRegister)
	ids := map[string]string{"id": created.CanvassID}

	tests := []struct {
		name           string
		streets        []string
		expectedStatus int
	}{
		{"unknown street", []string{"Baker Street"}, http.StatusBadRequest},
		{"duplicate street", []string{"Mill Lane", "mill lane"}, http.StatusBadRequest},
		{"nothing selected", []string{}, http.StatusBadRequest},
		{"reorder and drop", []string{"mill  lane"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := adminRequest("PUT", "/canvasses/x/streets", models.UpdateStreetsRequest{Streets: tt.streets}, created.AdminKey, ids)
			w := httptest.NewRecorder()

			handler.UpdateStreets(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	req := adminRequest("GET", "/canvasses/x/streets", nil, created.AdminKey, ids)
	w := httptest.NewRecorder()
	handler.GetStreets(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var streets []models.Street
	testutil.AssertJSON(t, w, &streets)
	if len(streets) != 2 {
		t.Fatalf("Expected 2 streets, got %d", len(streets))
	}
	if streets[0].Name != "Mill Lane" || !streets[0].Included || streets[0].Position != 0 {
		t.Errorf("Expected Mill Lane first and selected, got %+v", streets[0])
	}
	if streets[1].Name != "High Street" || streets[1].Included {
		t.Errorf("Expected High Street last and unselected, got %+v", streets[1])
	}
}

func TestAddAndDeleteAddress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)
	created := uploadTestRegister(t, db, cfg, testRegister)
	ids := map[string]string{"id": created.CanvassID}

	t.Run("validation", func(t *testing.T) {
		for _, body := range []models.AddAddressRequest{
			{Street: "", Address: "1 Pond Road"},
			{Street: "Pond Road", Address: " "},
		} {
			req := adminRequest("POST", "/canvasses/x/addresses", body, created.AdminKey, ids)
			w := httptest.NewRecorder()
			handler.AddAddress(w, req)
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		}
	})

	// A new street joins the end of the walk
	req := adminRequest("POST", "/canvasses/x/addresses",
		models.AddAddressRequest{Street: "Pond Road", Address: "Rose Cottage"}, created.AdminKey, ids)
	w := httptest.NewRecorder()
	handler.AddAddress(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var added models.AddAddressResponse
	testutil.AssertJSON(t, w, &added)
	if added.HouseNumber != nil {
		t.Errorf("Expected no house number, got %d", *added.HouseNumber)
	}

	streets, err := loadStreets(db, created.CanvassID)
	if err != nil {
		t.Fatal(err)
	}
	if len(streets) != 3 || streets[2].Name != "Pond Road" || !streets[2].Included {
		t.Fatalf("Expected Pond Road appended, got %+v", streets)
	}

	var source string
	var seq int
	err = db.QueryRow(`SELECT source, seq FROM address WHERE id = $1`, added.AddressID).Scan(&source, &seq)
	if err != nil {
		t.Fatal(err)
	}
	if source != models.SourceManual || seq != 6 {
		t.Errorf("Expected manual address with seq 6, got %s/%d", source, seq)
	}

	// Removing the only address on a street removes the street
	req = adminRequest("DELETE", "/canvasses/x/addresses/"+added.AddressID, nil, created.AdminKey,
		map[string]string{"id": created.CanvassID, "addressID": added.AddressID})
	w = httptest.NewRecorder()
	handler.DeleteAddress(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	streets, err = loadStreets(db, created.CanvassID)
	if err != nil {
		t.Fatal(err)
	}
	if len(streets) != 2 {
		t.Errorf("Expected empty street removed, got %d streets", len(streets))
	}

	req = adminRequest("DELETE", "/canvasses/x/addresses/"+added.AddressID, nil, created.AdminKey,
		map[string]string{"id": created.CanvassID, "addressID": added.AddressID})
	w = httptest.NewRecorder()
	handler.DeleteAddress(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	req = adminRequest("GET", "/canvasses/x/addresses", nil, created.AdminKey, ids)
	w = httptest.NewRecorder()
	handler.ListAddresses(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var addresses []models.Address
	testutil.AssertJSON(t, w, &addresses)
	if len(addresses) != 5 {
		t.Fatalf("Expected 5 addresses, got %d", len(addresses))
	}
	if addresses[0].Fields["Elector"] != "Ann" {
		t.Errorf("Expected register fields kept, got %v", addresses[0].Fields)
	}
}

func TestAddAddressReselectsStreet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)
	created := uploadTestRegister(t, db, cfg, testRegister)
	ids := map[string]string{"id": created.CanvassID}

	req := adminRequest("PUT", "/canvasses/x/streets", models.UpdateStreetsRequest{Streets: []string{"High Street"}},
		created.AdminKey, ids)
	w := httptest.NewRecorder()
	handler.UpdateStreets(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = adminRequest("POST", "/canvasses/x/addresses",
		models.AddAddressRequest{Street: "mill lane", Address: "6 Mill Lane"}, created.AdminKey, ids)
	w = httptest.NewRecorder()
	handler.AddAddress(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	streets, err := loadStreets(db, created.CanvassID)
	if err != nil {
		t.Fatal(err)
	}
	if len(streets) != 2 || streets[1].Name != "Mill Lane" || !streets[1].Included || streets[1].Addresses != 3 {
		t.Fatalf("Expected Mill Lane selected again with 3 addresses, got %+v", streets)
	}

	plan := generateTestPlan(t, db, cfg, created, models.GeneratePlanRequest{Mode: "none"})
	want := "1 High Street,3 High Street,2 High Street,1 Mill Lane,4 Mill Lane,6 Mill Lane"
	if got := strings.Join(addresses(plan.Stops), ","); got != want {
		t.Errorf("Route\n got %s\nwant %s", got, want)
	}
}

func TestEditsRejectedWhenClosed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	canvassID, adminKey := testutil.CreateTestCanvass(t, db, cfg, models.StatusClosed)
	testutil.AddTestAddress(t, db, canvassID, "High Street", "1 High Street")
	ids := map[string]string{"id": canvassID}

	canvasses := NewCanvassHandler(db, cfg)
	team := NewTeamHandler(db, cfg)
	plans := NewPlanHandler(db, cfg)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    interface{}
	}{
		{"update streets", canvasses.UpdateStreets, models.UpdateStreetsRequest{Streets: []string{"High Street"}}},
		{"add address", canvasses.AddAddress, models.AddAddressRequest{Street: "High Street", Address: "3 High Street"}},
		{"add canvasser", team.AddCanvasser, models.AddCanvasserRequest{Name: "Alice"}},
		{"generate plan", plans.GeneratePlan, models.GeneratePlanRequest{Mode: "none"}},
		{"close again", canvasses.CloseCanvass, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := adminRequest("POST", "/canvasses/x", tt.body, adminKey, ids)
			w := httptest.NewRecorder()
			tt.handler(w, req)
			testutil.AssertStatus(t, w, http.StatusConflict)
		})
	}
}

func TestCloseCanvass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewCanvassHandler(db, cfg)
	created := uploadTestRegister(t, db, cfg, testRegister)
	ids := map[string]string{"id": created.CanvassID}

	// Draft canvasses have nothing to freeze
	req := adminRequest("POST", "/canvasses/x/close", nil, created.AdminKey, ids)
	w := httptest.NewRecorder()
	handler.CloseCanvass(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	generateTestPlan(t, db, cfg, created, models.GeneratePlanRequest{Mode: "round_robin", CanvasserCount: 2})

	req = adminRequest("POST", "/canvasses/x/close", nil, created.AdminKey, ids)
	w = httptest.NewRecorder()
	handler.CloseCanvass(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CloseCanvassResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.SnapshotID == "" {
		t.Error("Expected snapshot_id")
	}
	if resp.Report.TotalAddresses != 5 || len(resp.Report.Units) != 2 {
		t.Errorf("Unexpected report: %d addresses, %d units", resp.Report.TotalAddresses, len(resp.Report.Units))
	}

	var status, snapshotID string
	err := db.QueryRow(`SELECT status, final_snapshot_id FROM canvass WHERE id = $1`, created.CanvassID).Scan(&status, &snapshotID)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.StatusClosed || snapshotID != resp.SnapshotID {
		t.Errorf("Expected closed with snapshot %s, got %s/%s", resp.SnapshotID, status, snapshotID)
	}

	var payload string
	if err := db.QueryRow(`SELECT payload FROM report_snapshot WHERE id = $1`, resp.SnapshotID).Scan(&payload); err != nil {
		t.Fatalf("Snapshot not stored: %v", err)
	}
	if !strings.Contains(payload, `"total_addresses":5`) {
		t.Errorf("Unexpected snapshot payload %s", payload)
	}
}
