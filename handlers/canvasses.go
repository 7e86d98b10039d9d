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
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/danielhkuo/route-optimiser/auth"
	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/export"
	"github.com/danielhkuo/route-optimiser/middleware"
	"github.com/danielhkuo/route-optimiser/models"
	"github.com/danielhkuo/route-optimiser/register"
)

type CanvassHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCanvassHandler(db *sql.DB, cfg cliparse.Config) *CanvassHandler {
	return &CanvassHandler{db: db, cfg: cfg}
}

// CreateCanvass handles POST /canvasses
// Expects a multipart form with the register CSV in "register" and an
// optional "name".
func (h *CanvassHandler) CreateCanvass(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge,
				"Register is larger than "+humanize.IBytes(uint64(h.cfg.MaxUploadBytes)))
			return
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("register")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "register file is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	reg, err := register.Parse(file, register.Options{MaxRows: h.cfg.MaxRows})
	switch {
	case errors.Is(err, register.ErrTooManyRows):
		middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, register.ErrMissingColumns), errors.Is(err, register.ErrEmptyRegister):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Warn("failed to parse register", "filename", header.Filename, "error", err)
		middleware.ErrorResponse(w, http.StatusBadRequest, "Could not read the register CSV")
		return
	}
	if len(reg.Records) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Register has no rows with a street")
		return
	}

	canvassID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate canvass ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create canvass")
		return
	}
	adminKey := auth.GenerateAdminKey(canvassID, h.cfg.AdminKeySalt)

	if err := h.insertRegister(canvassID, name, header.Filename, middleware.GetClientIP(r), reg); err != nil {
		slog.Error("failed to store register", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create canvass")
		return
	}

	streets, err := loadStreets(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load streets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("canvass created",
		"canvass_id", canvassID,
		"size", humanize.Bytes(uint64(header.Size)),
		"addresses", humanize.Comma(int64(len(reg.Records))),
		"streets", len(streets),
		"skipped", reg.Skipped,
	)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateCanvassResponse{
		CanvassID: canvassID,
		AdminKey:  adminKey,
		Name:      name,
		Addresses: len(reg.Records),
		Skipped:   reg.Skipped,
		Streets:   streets,
	})
}

func (h *CanvassHandler) insertRegister(canvassID, name, filename, clientIP string, reg *register.Register) error {
	columnsJSON, err := json.Marshal(reg.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO canvass (id, name, status, columns_json, source_filename, uploader_ip_hash, skipped_rows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, canvassID, name, models.StatusDraft, string(columnsJSON), filename,
		auth.HashIP(clientIP, h.cfg.IPHashSalt), reg.Skipped, now())
	if err != nil {
		return fmt.Errorf("insert canvass: %w", err)
	}

	addrStmt, err := tx.Prepare(`
		INSERT INTO address (id, canvass_id, seq, street, street_key, address, house_number, source, fields_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("prepare address insert: %w", err)
	}
	defer addrStmt.Close()

	for i, rec := range reg.Records {
		fieldsJSON, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode line %d: %w", rec.Line, err)
		}
		var number *int
		if rec.HasNumber {
			number = &rec.HouseNumber
		}
		_, err = addrStmt.Exec(uuid.NewString(), canvassID, i+1, rec.Street, register.StreetKey(rec.Street),
			rec.Address, number, models.SourceUpload, string(fieldsJSON))
		if err != nil {
			return fmt.Errorf("insert line %d: %w", rec.Line, err)
		}
	}

	// Every street starts selected, alphabetically
	for i, street := range register.Streets(reg.Records) {
		_, err := tx.Exec(`
			INSERT INTO street (canvass_id, street_key, name, position, included)
			VALUES ($1, $2, $3, $4, 1)
		`, canvassID, register.StreetKey(street), street, i)
		if err != nil {
			return fmt.Errorf("insert street %q: %w", street, err)
		}
	}

	return tx.Commit()
}

// GetCanvass handles GET /canvasses/{id}
func (h *CanvassHandler) GetCanvass(w http.ResponseWriter, r *http.Request) {
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

	streets, err := loadStreets(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load streets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail := models.CanvassDetail{Canvass: c, Streets: streets}
	err = h.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM address WHERE canvass_id = $1),
			(SELECT COUNT(*) FROM canvasser WHERE canvass_id = $1)
	`, canvassID).Scan(&detail.Addresses, &detail.Canvassers)
	if err != nil {
		slog.Error("failed to count canvass rows", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// GetStreets handles GET /canvasses/{id}/streets
func (h *CanvassHandler) GetStreets(w http.ResponseWriter, r *http.Request) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	streets, err := loadStreets(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load streets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, streets)
}

// UpdateStreets handles PUT /canvasses/{id}/streets
// The request lists the streets to walk, in order. Streets left out are
// excluded from the plan and keep their relative order after the selection.
func (h *CanvassHandler) UpdateStreets(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var req models.UpdateStreetsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Streets) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "At least one street must be selected")
		return
	}

	current, err := loadStreets(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load streets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	known := make(map[string]bool, len(current))
	for _, s := range current {
		known[s.Key] = true
	}

	selected := make(map[string]bool, len(req.Streets))
	order := make([]string, 0, len(current))
	for _, name := range req.Streets {
		key := register.StreetKey(name)
		if !known[key] {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Unknown street %q", name))
			return
		}
		if selected[key] {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Street %q listed twice", name))
			return
		}
		selected[key] = true
		order = append(order, key)
	}
	for _, s := range current {
		if !selected[s.Key] {
			order = append(order, s.Key)
		}
	}

	err = editTx(h.db, canvassID, func(tx *sql.Tx) error {
		for i, key := range order {
			included := 0
			if selected[key] {
				included = 1
			}
			_, err := tx.Exec(`
				UPDATE street
				SET position = $1, included = $2
				WHERE canvass_id = $3 AND street_key = $4
			`, i, included, canvassID, key)
			if err != nil {
				return fmt.Errorf("update street: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to update streets")
		return
	}

	streets, err := loadStreets(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load streets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("streets updated", "canvass_id", canvassID, "selected", len(selected), "total", len(order))

	middleware.JSONResponse(w, http.StatusOK, streets)
}

// ListAddresses handles GET /canvasses/{id}/addresses
func (h *CanvassHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	addresses, err := loadAddresses(h.db, canvassID)
	if err != nil {
		slog.Error("failed to load addresses", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, addresses)
}

// AddAddress handles POST /canvasses/{id}/addresses
// A new street is appended to the walking order, selected. A deselected
// street is selected again in its current position.
func (h *CanvassHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var req models.AddAddressRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	street := register.CleanStreet(req.Street)
	address := strings.TrimSpace(req.Address)
	if street == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "street is required")
		return
	}
	if address == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "address is required")
		return
	}

	fields := req.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid fields")
		return
	}

	var number *int
	if n, ok := register.ParseHouseNumber(address); ok {
		number = &n
	}

	addressID := uuid.NewString()
	key := register.StreetKey(street)
	err = editTx(h.db, canvassID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO address (id, canvass_id, seq, street, street_key, address, house_number, source, fields_json)
			VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM address WHERE canvass_id = $2), $3, $4, $5, $6, $7, $8)
		`, addressID, canvassID, street, key, address, number, models.SourceManual, string(fieldsJSON))
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO street (canvass_id, street_key, name, position, included)
			VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM street WHERE canvass_id = $1), 1)
			ON CONFLICT (canvass_id, street_key) DO UPDATE SET included = 1
		`, canvassID, key, street)
		if err != nil {
			return fmt.Errorf("insert street: %w", err)
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to add address")
		return
	}

	slog.Info("address added", "canvass_id", canvassID, "address_id", addressID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddAddressResponse{
		AddressID:   addressID,
		HouseNumber: number,
	})
}

// DeleteAddress handles DELETE /canvasses/{id}/addresses/{addressID}
// A street left without addresses is removed from the walking order.
func (h *CanvassHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	canvassID, ok := authorizeEdit(w, r, h.db, h.cfg)
	if !ok {
		return
	}
	addressID := r.PathValue("addressID")

	var key string
	err := h.db.QueryRow(`
		SELECT street_key FROM address WHERE id = $1 AND canvass_id = $2
	`, addressID, canvassID).Scan(&key)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Address not found")
		return
	}
	if err != nil {
		slog.Error("failed to query address", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	err = editTx(h.db, canvassID, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM address WHERE id = $1`, addressID); err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		_, err := tx.Exec(`
			DELETE FROM street
			WHERE canvass_id = $1 AND street_key = $2
			  AND NOT EXISTS (SELECT 1 FROM address WHERE canvass_id = $1 AND street_key = $2)
		`, canvassID, key)
		if err != nil {
			return fmt.Errorf("delete empty street: %w", err)
		}
		return nil
	})
	if err != nil {
		editFailed(w, err, "Failed to delete address")
		return
	}

	slog.Info("address deleted", "canvass_id", canvassID, "address_id", addressID)

	w.WriteHeader(http.StatusNoContent)
}

// CloseCanvass handles POST /canvasses/{id}/close
// Freezes the canvass and stores the final report.
func (h *CanvassHandler) CloseCanvass(w http.ResponseWriter, r *http.Request) {
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

	switch c.Status {
	case models.StatusClosed:
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass is already closed")
		return
	case models.StatusDraft:
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass has no plan")
		return
	}

	d, err := canvassDataset(h.db, h.cfg, c)
	if err != nil {
		slog.Error("failed to load plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	report := export.BuildReport(d)

	payload, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to encode report", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close canvass")
		return
	}

	snapshotID := uuid.NewString()
	closedAt := now()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Only the plan the report was built from may be frozen
	res, err := tx.Exec(`
		UPDATE canvass
		SET status = $1, closed_at = $2, final_snapshot_id = $3
		WHERE id = $4 AND status = $5 AND plan_generation = $6 AND edit_version = $7
	`, models.StatusClosed, closedAt, snapshotID, canvassID, models.StatusPlanned, c.PlanGeneration, c.EditVersion)
	if err != nil {
		slog.Error("failed to close canvass", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close canvass")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass changed while closing")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO report_snapshot (id, canvass_id, computed_at, payload)
		VALUES ($1, $2, $3, $4)
	`, snapshotID, canvassID, closedAt, string(payload))
	if err != nil {
		slog.Error("failed to insert snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save report")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close canvass")
		return
	}

	slog.Info("canvass closed", "canvass_id", canvassID, "snapshot_id", snapshotID)

	middleware.JSONResponse(w, http.StatusOK, models.CloseCanvassResponse{
		ClosedAt:   closedAt,
		SnapshotID: snapshotID,
		Report:     report,
	})
}
