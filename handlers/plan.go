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
	"time"

	"github.com/danielhkuo/route-optimiser/auth"
	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/middleware"
	"github.com/danielhkuo/route-optimiser/models"
	"github.com/danielhkuo/route-optimiser/planner"
)

type PlanHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPlanHandler(db *sql.DB, cfg cliparse.Config) *PlanHandler {
	return &PlanHandler{db: db, cfg: cfg}
}

// GeneratePlan handles POST /canvasses/{id}/plan
// Sequences the selected streets and splits the walk among the roster, or
// among canvasser_count numbered canvassers when the roster is empty. Replaces
// any previous plan and its walk links.
func (h *PlanHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var req models.GeneratePlanRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := planner.ParseMode(req.Mode); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MaxChunkSize < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_chunk_size cannot be negative")
		return
	}

	in, version, err := planInput(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load plan input", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	in.Mode = planner.Mode(req.Mode)
	in.UnitSize = req.UnitSize
	in.MaxChunkSize = req.MaxChunkSize
	in.CanvasserCount = req.CanvasserCount

	start := time.Now()
	plan, err := planner.Build(in)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, planError(err))
		return
	}

	plannedAt := now()
	generation, err := h.storePlan(canvassID, version, req, plan, plannedAt)
	if err != nil {
		status, message := storeError(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to store plan", "error", err)
		}
		middleware.ErrorResponse(w, status, message)
		return
	}

	slog.Info("plan generated",
		"canvass_id", canvassID,
		"mode", plan.Mode,
		"stops", len(plan.Stops),
		"units", len(plan.Units),
		"spread", plan.Spread,
		"generation", generation,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c, err := loadCanvass(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load canvass", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp, err := loadPlan(h.db, h.cfg, c)
	if err != nil {
		slog.Error("failed to load plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

func planError(err error) string {
	switch {
	case errors.Is(err, planner.ErrEmptyRoute):
		return "No addresses on the selected streets"
	case errors.Is(err, planner.ErrNoCanvassers):
		return "Add canvassers to the roster or set canvasser_count"
	}
	return err.Error()
}

// storeError maps a storePlan error to a response
func storeError(err error) (int, string) {
	switch {
	case errors.Is(err, errCanvassClosed):
		return http.StatusConflict, "Canvass is closed"
	case errors.Is(err, errCanvassChanged):
		return http.StatusConflict, "Canvass changed while planning, try again"
	}
	return http.StatusInternalServerError, "Failed to save plan"
}

// storePlan replaces the stored plan and returns the new generation.
// version is the edit version the plan input was read at; any edit since
// then fails the store with errCanvassChanged.
func (h *PlanHandler) storePlan(canvassID string, version int, req models.GeneratePlanRequest, plan *planner.Plan, plannedAt time.Time) (int, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var generation int
	err = tx.QueryRow(`
		UPDATE canvass
		SET status = $1, plan_mode = $2, plan_unit_size = $3, plan_max_chunk = $4,
		    plan_canvasser_count = $5, plan_generation = plan_generation + 1, planned_at = $6
		WHERE id = $7 AND status <> $8 AND edit_version = $9
		RETURNING plan_generation
	`, models.StatusPlanned, string(plan.Mode), nullInt(req.UnitSize), nullInt(req.MaxChunkSize),
		nullInt(req.CanvasserCount), plannedAt, canvassID, models.StatusClosed, version).Scan(&generation)
	if err == sql.ErrNoRows {
		var status string
		if err := tx.QueryRow(`SELECT status FROM canvass WHERE id = $1`, canvassID).Scan(&status); err != nil {
			return 0, fmt.Errorf("query canvass status: %w", err)
		}
		if status == models.StatusClosed {
			return 0, errCanvassClosed
		}
		return 0, errCanvassChanged
	}
	if err != nil {
		return 0, fmt.Errorf("update canvass: %w", err)
	}

	if _, err := deletePlan(tx, canvassID); err != nil {
		return 0, err
	}

	for _, u := range plan.Units {
		members := make([]models.Member, len(u.Members))
		for i, m := range u.Members {
			members[i] = models.Member{ID: m.ID, Name: m.Name}
		}
		membersJSON, err := json.Marshal(members)
		if err != nil {
			return 0, fmt.Errorf("encode members: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO plan_unit (canvass_id, unit_id, label, position, members_json, walk_slug)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, canvassID, u.ID, u.Label, u.Position, string(membersJSON),
			auth.GenerateWalkSlug(canvassID, u.ID, generation, h.cfg.WalkSlugSalt))
		if err != nil {
			return 0, fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO plan_stop (canvass_id, address_id, route_order, side, chunk_index, unit_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range plan.Stops {
		var unitID *string
		if s.UnitID != "" {
			unitID = &s.UnitID
		}
		if _, err := stmt.Exec(canvassID, s.ID, s.RouteOrder, string(s.Side), s.Chunk, unitID); err != nil {
			return 0, fmt.Errorf("insert stop %d: %w", s.RouteOrder, err)
		}
	}

	return generation, tx.Commit()
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// GetPlan handles GET /canvasses/{id}/plan
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	c, err := loadCanvass(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load canvass", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp, err := loadPlan(h.db, h.cfg, c)
	if errors.Is(err, errNoPlan) {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass has no plan")
		return
	}
	if err != nil {
		slog.Error("failed to load plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
