// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/route-optimiser/models"
	"github.com/danielhkuo/route-optimiser/testutil"
)

const wardRegister = `Street,Address,Polling District
Oak Road,2 Oak Road,N1
Oak Road,1 Oak Road,N1
Oak Road,3 Oak Road,N1
Oak Road,4 Oak Road,N1
Oak Road,The Lodge,N1
Elm Close,5 Elm Close,N2
Elm Close,7 Elm Close,N2
Elm Close,6 Elm Close,N2
Ash Way,10 Ash Way,N3
Ash Way,12 Ash Way,N3
`

// TestFullCanvassWorkflow tests the complete flow:
// 1. Upload the register
// 2. Choose the streets and their order
// 3. Build the roster with an exclusion
// 4. Generate a paired, balanced plan
// 5. Open a walk sheet
// 6. Edit the roster, which discards the plan
// 7. Replan and export for the app
// 8. Close the canvass
func TestFullCanvassWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	canvassHandler := NewCanvassHandler(db, cfg)
	teamHandler := NewTeamHandler(db, cfg)
	exportHandler := NewExportHandler(db, cfg)

	// Step 1: Upload
	created := uploadTestRegister(t, db, cfg, wardRegister)
	ids := map[string]string{"id": created.CanvassID}
	key := created.AdminKey
	if created.Addresses != 10 || len(created.Streets) != 3 {
		t.Fatalf("Step 1 - Expected 10 addresses on 3 streets, got %d on %d", created.Addresses, len(created.Streets))
	}
	t.Logf("Step 1 - Created canvass: %s", created.CanvassID)

	// Step 2: Walk Oak Road then Elm Close, skip Ash Way
	req := adminRequest("PUT", "/canvasses/x/streets", models.UpdateStreetsRequest{Streets: []string{"Oak Road", "Elm Close"}}, key, ids)
	w := httptest.NewRecorder()
	canvassHandler.UpdateStreets(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 2 - Update streets failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 3: Roster of four, Ann and Ben never together
	roster := map[string]string{}
	for _, name := range []string{"Ann", "Ben", "Cat", "Dee"} {
		req := adminRequest("POST", "/canvasses/x/canvassers", models.AddCanvasserRequest{Name: name}, key, ids)
		w := httptest.NewRecorder()
		teamHandler.AddCanvasser(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 3 - Add canvasser %s failed: %d - %s", name, w.Code, w.Body.String())
		}
		var resp models.AddCanvasserResponse
		testutil.AssertJSON(t, w, &resp)
		roster[name] = resp.CanvasserID
	}

	req = adminRequest("POST", "/canvasses/x/exclusions",
		models.AddExclusionRequest{CanvasserA: roster["Ann"], CanvasserB: roster["Ben"]}, key, ids)
	w = httptest.NewRecorder()
	teamHandler.AddExclusion(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 3 - Add exclusion failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 4: Plan
	plan := generateTestPlan(t, db, cfg, created, models.GeneratePlanRequest{Mode: "balanced", UnitSize: 2})

	wantRoute := "1 Oak Road,3 Oak Road,2 Oak Road,4 Oak Road,The Lodge,5 Elm Close,7 Elm Close,6 Elm Close"
	if got := strings.Join(addresses(plan.Stops), ","); got != wantRoute {
		t.Errorf("Step 4 - Route\n got %s\nwant %s", got, wantRoute)
	}
	labels := []string{}
	for _, u := range plan.Units {
		labels = append(labels, u.Label)
	}
	if strings.Join(labels, "|") != "Ann & Cat|Ben & Dee" {
		t.Errorf("Step 4 - Unexpected pairs %v", labels)
	}
	total := 0
	for _, u := range plan.Units {
		total += u.Addresses
	}
	if total != 8 {
		t.Errorf("Step 4 - Expected 8 assigned addresses, got %d", total)
	}
	t.Logf("Step 4 - Planned %d stops for %d units, spread %d", len(plan.Stops), len(plan.Units), plan.Spread)

	// Step 5: Walk sheet
	slug := plan.Units[0].WalkSlug
	req = httptest.NewRequest("GET", "/walk/"+slug, nil)
	req.SetPathValue("slug", slug)
	w = httptest.NewRecorder()
	exportHandler.GetWalkSheet(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 5 - Walk sheet failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 6: Removing a canvasser discards the plan and its links
	req = adminRequest("DELETE", "/canvasses/x/canvassers/"+roster["Dee"], nil, key,
		map[string]string{"id": created.CanvassID, "canvasserID": roster["Dee"]})
	w = httptest.NewRecorder()
	teamHandler.DeleteCanvasser(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Step 6 - Delete canvasser failed: %d - %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/walk/"+slug, nil)
	req.SetPathValue("slug", slug)
	w = httptest.NewRecorder()
	exportHandler.GetWalkSheet(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	req = adminRequest("GET", "/canvasses/x/export/app", nil, key, ids)
	w = httptest.NewRecorder()
	exportHandler.ExportApp(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// Step 7: Replan; Ben cannot pair with Ann so walks alone
	plan = generateTestPlan(t, db, cfg, created, models.GeneratePlanRequest{Mode: "round_robin", UnitSize: 2})
	labels = labels[:0]
	for _, u := range plan.Units {
		labels = append(labels, u.Label)
	}
	if strings.Join(labels, "|") != "Ann & Cat|Ben" {
		t.Errorf("Step 7 - Unexpected units %v", labels)
	}

	req = adminRequest("GET", "/canvasses/x/export/app", nil, key, ids)
	w = httptest.NewRecorder()
	exportHandler.ExportApp(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 7 - Export failed: %d - %s", w.Code, w.Body.String())
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 9 {
		t.Fatalf("Step 7 - Expected header and 8 rows, got %d", len(records))
	}
	if got := strings.Join(records[0], ","); got != "Street,Address,Polling District,Route Order,Canvasser" {
		t.Errorf("Step 7 - Unexpected header %s", got)
	}
	if records[1][3] != "1" || records[1][4] != "Ann & Cat" || records[2][4] != "Ben" {
		t.Errorf("Step 7 - Unexpected first rows %v %v", records[1], records[2])
	}

	// Step 8: Close
	req = adminRequest("POST", "/canvasses/x/close", nil, key, ids)
	w = httptest.NewRecorder()
	canvassHandler.CloseCanvass(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 8 - Close failed: %d - %s", w.Code, w.Body.String())
	}

	req = adminRequest("POST", "/canvasses/x/canvassers", models.AddCanvasserRequest{Name: "Eve"}, key, ids)
	w = httptest.NewRecorder()
	teamHandler.AddCanvasser(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// Exports stay available after close
	req = adminRequest("GET", "/canvasses/x/export/app", nil, key, ids)
	w = httptest.NewRecorder()
	exportHandler.ExportApp(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}
