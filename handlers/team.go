// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/middleware"
	"github.com/danielhkuo/route-optimiser/models"
)

type TeamHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewTeamHandler(db *sql.DB, cfg cliparse.Config) *TeamHandler {
	return &TeamHandler{db: db, cfg: cfg}
}

// ListCanvassers handles GET /canvasses/{id}/canvassers
func (h *TeamHandler) ListCanvassers(w http.ResponseWriter, r *http.Request) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	roster, err := loadRoster(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load roster", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, roster)
}

// AddCanvasser handles POST /canvasses/{id}/canvassers
func (h *TeamHandler) AddCanvasser(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var req models.AddCanvasserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM canvasser WHERE canvass_id = $1 AND name = $2)
	`, canvassID, name).Scan(&exists)
	if err != nil {
		slog.Error("failed to query roster", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvasser is already on the roster")
		return
	}

	canvasserID := uuid.NewString()
	err = editTx(h.db, canvassID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO canvasser (id, canvass_id, name, position, created_at)
			VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM canvasser WHERE canvass_id = $2), $4)
		`, canvasserID, canvassID, name, now())
		if err != nil {
			return fmt.Errorf("insert canvasser: %w", err)
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to add canvasser")
		return
	}

	slog.Info("canvasser added", "canvass_id", canvassID, "canvasser_id", canvasserID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddCanvasserResponse{
		CanvasserID: canvasserID,
	})
}

// DeleteCanvasser handles DELETE /canvasses/{id}/canvassers/{canvasserID}
// Exclusions naming the canvasser go with them.
func (h *TeamHandler) DeleteCanvasser(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}
	canvasserID := r.PathValue("canvasserID")

	if found, err := h.onRoster(canvassID, canvasserID); err != nil {
		slog.Error("failed to query roster", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	} else if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Canvasser not found")
		return
	}

	err := editTx(h.db, canvassID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			DELETE FROM pair_exclusion
			WHERE canvass_id = $1 AND (canvasser_a = $2 OR canvasser_b = $2)
		`, canvassID, canvasserID)
		if err != nil {
			return fmt.Errorf("delete exclusions: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM canvasser WHERE id = $1`, canvasserID); err != nil {
			return fmt.Errorf("delete canvasser: %w", err)
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to delete canvasser")
		return
	}

	slog.Info("canvasser removed", "canvass_id", canvassID, "canvasser_id", canvasserID)

	w.WriteHeader(http.StatusNoContent)
}

// ListExclusions handles GET /canvasses/{id}/exclusions
func (h *TeamHandler) ListExclusions(w http.ResponseWriter, r *http.Request) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	exclusions, err := loadExclusions(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load exclusions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, exclusions)
}

// AddExclusion handles POST /canvasses/{id}/exclusions
// The two canvassers will never be paired.
func (h *TeamHandler) AddExclusion(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var req models.AddExclusionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CanvasserA == "" || req.CanvasserB == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "canvasser_a and canvasser_b are required")
		return
	}
	if req.CanvasserA == req.CanvasserB {
		middleware.ErrorResponse(w, http.StatusBadRequest, "A canvasser cannot be excluded from themselves")
		return
	}

	for _, id := range []string{req.CanvasserA, req.CanvasserB} {
		found, err := h.onRoster(canvassID, id)
		if err != nil {
			slog.Error("failed to query roster", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if !found {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Canvasser %s is not on the roster", id))
			return
		}
	}

	a, b := orderedPair(req.CanvasserA, req.CanvasserB)

	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM pair_exclusion WHERE canvass_id = $1 AND canvasser_a = $2 AND canvasser_b = $3)
	`, canvassID, a, b).Scan(&exists)
	if err != nil {
		slog.Error("failed to query exclusions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusConflict, "Exclusion already exists")
		return
	}

	err = editTx(h.db, canvassID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO pair_exclusion (canvass_id, canvasser_a, canvasser_b)
			VALUES ($1, $2, $3)
		`, canvassID, a, b)
		if err != nil {
			return fmt.Errorf("insert exclusion: %w", err)
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to add exclusion")
		return
	}

	slog.Info("exclusion added", "canvass_id", canvassID, "canvasser_a", a, "canvasser_b", b)

	middleware.JSONResponse(w, http.StatusCreated, models.Exclusion{CanvasserA: a, CanvasserB: b})
}

// DeleteExclusion handles DELETE /canvasses/{id}/exclusions/{a}/{b}
// The pair may be given in either order.
func (h *TeamHandler) DeleteExclusion(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}
	a, b := orderedPair(r.PathValue("a"), r.PathValue("b"))

	var deleted int64
	err := editTx(h.db, canvassID, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM pair_exclusion
			WHERE canvass_id = $1 AND canvasser_a = $2 AND canvasser_b = $3
		`, canvassID, a, b)
		if err != nil {
			return fmt.Errorf("delete exclusion: %w", err)
		}
		deleted, _ = res.RowsAffected()
		if deleted == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Exclusion not found")
		return
	}
	if err != nil {
		editFailed(w, err, "Failed to delete exclusion")
		return
	}

	slog.Info("exclusion removed", "canvass_id", canvassID, "canvasser_a", a, "canvasser_b", b)

	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) onRoster(canvassID, canvasserID string) (bool, error) {
	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM canvasser WHERE id = $1 AND canvass_id = $2)
	`, canvasserID, canvassID).Scan(&exists)
	return exists, err
}

// orderedPair matches the pair_exclusion check constraint
func orderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
