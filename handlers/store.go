// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/route-optimiser/auth"
	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/export"
	"github.com/danielhkuo/route-optimiser/middleware"
	"github.com/danielhkuo/route-optimiser/models"
	"github.com/danielhkuo/route-optimiser/planner"
)

var (
	errNoPlan         = errors.New("canvass has no plan")
	errCanvassClosed  = errors.New("canvass is closed")
	errCanvassChanged = errors.New("canvass changed while planning")
)

// authorize validates the admin key and returns the canvass status.
// On failure the error response has been written and ok is false.
func authorize(w http.ResponseWriter, r *http.Request, db *sql.DB, cfg cliparse.Config) (canvassID, status string, ok bool) {
	canvassID = r.PathValue("id")
	if canvassID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "canvass_id is required")
		return "", "", false
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(canvassID, adminKey, cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", "", false
	}

	err := db.QueryRow("SELECT status FROM canvass WHERE id = $1", canvassID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Canvass not found")
		return "", "", false
	}
	if err != nil {
		slog.Error("failed to query canvass", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return "", "", false
	}

	return canvassID, status, true
}

// authorizeEdit is authorize for operations that change the canvass. The
// closed check here only fails fast; editTx and storePlan repeat it inside
// their transactions.
func authorizeEdit(w http.ResponseWriter, r *http.Request, db *sql.DB, cfg cliparse.Config) (canvassID string, ok bool) {
	canvassID, status, ok := authorize(w, r, db, cfg)
	if !ok {
		return "", false
	}
	if status == models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass is closed")
		return "", false
	}
	return canvassID, true
}

// deletePlan removes the stored plan rows and returns how many stops went
func deletePlan(tx *sql.Tx, canvassID string) (int64, error) {
	res, err := tx.Exec(`DELETE FROM plan_stop WHERE canvass_id = $1`, canvassID)
	if err != nil {
		return 0, fmt.Errorf("delete plan stops: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM plan_unit WHERE canvass_id = $1`, canvassID); err != nil {
		return 0, fmt.Errorf("delete plan units: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// editTx runs fn in a transaction that first claims the canvass row: it bumps
// edit_version, returns the canvass to draft and discards any stored plan.
// Returns errCanvassClosed when the canvass is closed by then.
// The generation counter is left alone so old walk links stay dead.
func editTx(db *sql.DB, canvassID string, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE canvass
		SET edit_version = edit_version + 1, status = $1, planned_at = NULL
		WHERE id = $2 AND status <> $3
	`, models.StatusDraft, canvassID, models.StatusClosed)
	if err != nil {
		return fmt.Errorf("claim canvass: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("claim canvass: %w", err)
	} else if n == 0 {
		return errCanvassClosed
	}

	discarded, err := deletePlan(tx, canvassID)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if discarded > 0 {
		slog.Info("plan discarded", "canvass_id", canvassID, "stops", discarded)
	}
	return nil
}

// editFailed writes the response for an editTx error other than the
// handler's own sentinels
func editFailed(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, errCanvassClosed) {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass is closed")
		return
	}
	slog.Error("edit failed", "message", message, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, message)
}

func loadCanvass(db *sql.DB, canvassID string) (models.Canvass, error) {
	var c models.Canvass
	var columnsJSON string
	err := db.QueryRow(`
		SELECT id, name, status, columns_json, source_filename, skipped_rows,
		       plan_mode, plan_unit_size, plan_max_chunk, plan_canvasser_count,
		       plan_generation, edit_version, planned_at, closed_at, final_snapshot_id, created_at
		FROM canvass
		WHERE id = $1
	`, canvassID).Scan(
		&c.ID, &c.Name, &c.Status, &columnsJSON, &c.SourceFilename, &c.SkippedRows,
		&c.PlanMode, &c.PlanUnitSize, &c.PlanMaxChunk, &c.PlanCanvasserCount,
		&c.PlanGeneration, &c.EditVersion, &c.PlannedAt, &c.ClosedAt, &c.FinalSnapshotID, &c.CreatedAt,
	)
	if err != nil {
		return models.Canvass{}, err
	}

	if err := json.Unmarshal([]byte(columnsJSON), &c.Columns); err != nil {
		return models.Canvass{}, fmt.Errorf("decode columns: %w", err)
	}
	return c, nil
}

// loadStreets returns the streets in walking order with their address counts
func loadStreets(db *sql.DB, canvassID string) ([]models.Street, error) {
	rows, err := db.Query(`
		SELECT s.street_key, s.name, s.position, s.included, COUNT(a.id)
		FROM street s
		LEFT JOIN address a ON a.canvass_id = s.canvass_id AND a.street_key = s.street_key
		WHERE s.canvass_id = $1
		GROUP BY s.street_key, s.name, s.position, s.included
		ORDER BY s.position
	`, canvassID)
	if err != nil {
		return nil, fmt.Errorf("query streets: %w", err)
	}
	defer rows.Close()

	streets := []models.Street{}
	for rows.Next() {
		var s models.Street
		if err := rows.Scan(&s.Key, &s.Name, &s.Position, &s.Included, &s.Addresses); err != nil {
			return nil, fmt.Errorf("scan street: %w", err)
		}
		streets = append(streets, s)
	}
	return streets, rows.Err()
}

func loadAddresses(db *sql.DB, canvassID string) ([]models.Address, error) {
	rows, err := db.Query(`
		SELECT id, canvass_id, seq, street, address, house_number, source, fields_json
		FROM address
		WHERE canvass_id = $1
		ORDER BY seq
	`, canvassID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var a models.Address
		var fieldsJSON string
		if err := rows.Scan(&a.ID, &a.CanvassID, &a.Seq, &a.Street, &a.Address, &a.HouseNumber, &a.Source, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &a.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", a.ID, err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func loadRoster(db *sql.DB, canvassID string) ([]models.Canvasser, error) {
	rows, err := db.Query(`
		SELECT id, canvass_id, name, position, created_at
		FROM canvasser
		WHERE canvass_id = $1
		ORDER BY position, name
	`, canvassID)
	if err != nil {
		return nil, fmt.Errorf("query canvassers: %w", err)
	}
	defer rows.Close()

	roster := []models.Canvasser{}
	for rows.Next() {
		var c models.Canvasser
		if err := rows.Scan(&c.ID, &c.CanvassID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan canvasser: %w", err)
		}
		roster = append(roster, c)
	}
	return roster, rows.Err()
}

func loadExclusions(db *sql.DB, canvassID string) ([]models.Exclusion, error) {
	rows, err := db.Query(`
		SELECT e.canvasser_a, e.canvasser_b, ca.name, cb.name
		FROM pair_exclusion e
		JOIN canvasser ca ON ca.id = e.canvasser_a
		JOIN canvasser cb ON cb.id = e.canvasser_b
		WHERE e.canvass_id = $1
		ORDER BY ca.name, cb.name
	`, canvassID)
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	exclusions := []models.Exclusion{}
	for rows.Next() {
		var e models.Exclusion
		if err := rows.Scan(&e.CanvasserA, &e.CanvasserB, &e.NameA, &e.NameB); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, rows.Err()
}

// planInput gathers the addresses on selected streets, the walking order and
// the team for the planner. The returned edit version is read first, so
// storePlan can reject input that an edit overtook.
func planInput(db *sql.DB, canvassID string) (planner.PlanInput, int, error) {
	var in planner.PlanInput

	var version int
	if err := db.QueryRow(`SELECT edit_version FROM canvass WHERE id = $1`, canvassID).Scan(&version); err != nil {
		return in, 0, fmt.Errorf("query edit version: %w", err)
	}

	rows, err := db.Query(`
		SELECT a.id, a.seq, a.street, a.address, a.house_number
		FROM address a
		JOIN street s ON s.canvass_id = a.canvass_id AND s.street_key = a.street_key
		WHERE a.canvass_id = $1 AND s.included = 1
		ORDER BY a.seq
	`, canvassID)
	if err != nil {
		return in, 0, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a planner.Address
		var number sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Seq, &a.Street, &a.Address, &number); err != nil {
			return in, 0, fmt.Errorf("scan address: %w", err)
		}
		a.HouseNumber, a.HasNumber = int(number.Int64), number.Valid
		in.Addresses = append(in.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return in, 0, err
	}

	streets, err := loadStreets(db, canvassID)
	if err != nil {
		return in, 0, err
	}
	for _, s := range streets {
		if s.Included {
			in.StreetOrder = append(in.StreetOrder, s.Name)
		}
	}

	roster, err := loadRoster(db, canvassID)
	if err != nil {
		return in, 0, err
	}
	for _, c := range roster {
		in.Roster = append(in.Roster, planner.Canvasser{ID: c.ID, Name: c.Name})
	}

	exclusions, err := loadExclusions(db, canvassID)
	if err != nil {
		return in, 0, err
	}
	for _, e := range exclusions {
		in.Exclusions = append(in.Exclusions, planner.Exclusion{A: e.CanvasserA, B: e.CanvasserB})
	}

	return in, version, nil
}

// loadPlan reads the stored plan. Returns errNoPlan when none exists.
func loadPlan(db *sql.DB, cfg cliparse.Config, c models.Canvass) (models.PlanResponse, error) {
	if c.PlannedAt == nil {
		return models.PlanResponse{}, errNoPlan
	}

	resp := models.PlanResponse{
		CanvassID:  c.ID,
		Status:     c.Status,
		Generation: c.PlanGeneration,
		PlannedAt:  *c.PlannedAt,
		Units:      []models.PlanUnit{},
		Stops:      []models.PlanStop{},
	}
	if c.PlanMode != nil {
		resp.Mode = *c.PlanMode
	}

	units, err := db.Query(`
		SELECT u.unit_id, u.label, u.position, u.members_json, u.walk_slug, COUNT(s.address_id)
		FROM plan_unit u
		LEFT JOIN plan_stop s ON s.canvass_id = u.canvass_id AND s.unit_id = u.unit_id
		WHERE u.canvass_id = $1
		GROUP BY u.unit_id, u.label, u.position, u.members_json, u.walk_slug
		ORDER BY u.position
	`, c.ID)
	if err != nil {
		return resp, fmt.Errorf("query plan units: %w", err)
	}
	defer units.Close()

	for units.Next() {
		var u models.PlanUnit
		var membersJSON string
		if err := units.Scan(&u.ID, &u.Label, &u.Position, &membersJSON, &u.WalkSlug, &u.Addresses); err != nil {
			return resp, fmt.Errorf("scan plan unit: %w", err)
		}
		if err := json.Unmarshal([]byte(membersJSON), &u.Members); err != nil {
			return resp, fmt.Errorf("decode members of %s: %w", u.ID, err)
		}
		u.WalkURL = walkURL(cfg, u.WalkSlug)
		resp.Units = append(resp.Units, u)
	}
	if err := units.Err(); err != nil {
		return resp, err
	}

	stops, err := loadStops(db, c.ID, "")
	if err != nil {
		return resp, err
	}
	resp.Stops = stops
	resp.Spread = spread(resp.Units)

	return resp, nil
}

// loadStops returns planned stops in route order, optionally for one unit
func loadStops(db *sql.DB, canvassID, unitID string) ([]models.PlanStop, error) {
	query := `
		SELECT p.route_order, p.address_id, a.street, a.address, p.side, p.chunk_index, p.unit_id
		FROM plan_stop p
		JOIN address a ON a.id = p.address_id
		WHERE p.canvass_id = $1`
	args := []any{canvassID}
	if unitID != "" {
		query += ` AND p.unit_id = $2`
		args = append(args, unitID)
	}
	query += ` ORDER BY p.route_order`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plan stops: %w", err)
	}
	defer rows.Close()

	stops := []models.PlanStop{}
	for rows.Next() {
		var s models.PlanStop
		var unit sql.NullString
		if err := rows.Scan(&s.RouteOrder, &s.AddressID, &s.Street, &s.Address, &s.Side, &s.Chunk, &unit); err != nil {
			return nil, fmt.Errorf("scan plan stop: %w", err)
		}
		s.UnitID = unit.String
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// loadDataset assembles the stored plan and register columns for export
func loadDataset(db *sql.DB, cfg cliparse.Config, canvassID string) (export.Dataset, error) {
	c, err := loadCanvass(db, canvassID)
	if err != nil {
		return export.Dataset{}, err
	}
	return canvassDataset(db, cfg, c)
}

func canvassDataset(db *sql.DB, cfg cliparse.Config, c models.Canvass) (export.Dataset, error) {
	plan, err := loadPlan(db, cfg, c)
	if err != nil {
		return export.Dataset{}, err
	}

	addresses, err := loadAddresses(db, c.ID)
	if err != nil {
		return export.Dataset{}, err
	}
	byID := make(map[string]models.Address, len(addresses))
	for _, a := range addresses {
		byID[a.ID] = a
	}

	d := export.Dataset{
		CanvassID:   c.ID,
		Name:        c.Name,
		Mode:        plan.Mode,
		GeneratedAt: plan.PlannedAt.UTC(),
		Columns:     c.Columns,
		Units:       make([]export.Unit, len(plan.Units)),
		Rows:        make([]export.Row, len(plan.Stops)),
	}
	for i, u := range plan.Units {
		members := make([]string, len(u.Members))
		for j, m := range u.Members {
			members[j] = m.Name
		}
		d.Units[i] = export.Unit{ID: u.ID, Label: u.Label, Members: members, WalkURL: u.WalkURL}
	}
	for i, s := range plan.Stops {
		a := byID[s.AddressID]
		row := export.Row{
			AddressID:  s.AddressID,
			RouteOrder: s.RouteOrder,
			Street:     s.Street,
			Address:    s.Address,
			Side:       s.Side,
			Chunk:      s.Chunk,
			UnitID:     s.UnitID,
			Fields:     a.Fields,
		}
		if a.HouseNumber != nil {
			row.HouseNumber, row.HasNumber = *a.HouseNumber, true
		}
		d.Rows[i] = row
	}

	return d, nil
}

// loadSnapshot returns the report stored when the canvass was closed
func loadSnapshot(db *sql.DB, canvassID string) (export.Report, error) {
	var payload string
	err := db.QueryRow(`
		SELECT s.payload
		FROM report_snapshot s
		JOIN canvass c ON c.final_snapshot_id = s.id
		WHERE c.id = $1
	`, canvassID).Scan(&payload)
	if err != nil {
		return export.Report{}, fmt.Errorf("query snapshot: %w", err)
	}

	var rep export.Report
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return export.Report{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return rep, nil
}

func walkURL(cfg cliparse.Config, slug string) string {
	if slug == "" {
		return ""
	}
	return strings.TrimRight(cfg.BaseURL, "/") + "/walk/" + slug
}

func spread(units []models.PlanUnit) int {
	if len(units) == 0 {
		return 0
	}
	lo, hi := units[0].Addresses, units[0].Addresses
	for _, u := range units[1:] {
		lo = min(lo, u.Addresses)
		hi = max(hi, u.Addresses)
	}
	return hi - lo
}

// now is stubbed in tests that need fixed timestamps
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
