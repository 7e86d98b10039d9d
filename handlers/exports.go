// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/export"
	"github.com/danielhkuo/route-optimiser/middleware"
	"github.com/danielhkuo/route-optimiser/models"
)

type ExportHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewExportHandler(db *sql.DB, cfg cliparse.Config) *ExportHandler {
	return &ExportHandler{db: db, cfg: cfg}
}

// dataset loads the export dataset for an authorized request.
// On failure the error response has been written and ok is false.
func (h *ExportHandler) dataset(w http.ResponseWriter, r *http.Request) (export.Dataset, bool) {
	canvassID, _, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return export.Dataset{}, false
	}
	return h.load(w, canvassID)
}

func (h *ExportHandler) load(w http.ResponseWriter, canvassID string) (export.Dataset, bool) {
	d, err := loadDataset(h.db, h.cfg, canvassID)
	if errors.Is(err, errNoPlan) {
		middleware.ErrorResponse(w, http.StatusConflict, "Canvass has no plan")
		return export.Dataset{}, false
	}
	if err != nil {
		slog.Error("failed to load plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return export.Dataset{}, false
	}
	return d, true
}

// ExportApp handles GET /canvasses/{id}/export/app
// The CSV imported by the canvassing app.
func (h *ExportHandler) ExportApp(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAppCSV(&buf, d); err != nil {
		slog.Error("failed to write app export", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to build export")
		return
	}

	h.send(w, d.CanvassID, "text/csv", export.AppFilename, &buf)
}

// ExportReport handles GET /canvasses/{id}/export/report?format=csv|json|yaml
// Closed canvasses serve the report frozen at close.
func (h *ExportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	canvassID, status, ok := authorize(w, r, h.db, h.cfg)
	if !ok {
		return
	}

	var rep export.Report
	if status == models.StatusClosed {
		rep, err = loadSnapshot(h.db, canvassID)
		if err != nil {
			slog.Error("failed to load report snapshot", "canvass_id", canvassID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	} else {
		d, ok := h.load(w, canvassID)
		if !ok {
			return
		}
		rep = export.BuildReport(d)
	}

	var buf bytes.Buffer
	if err := export.WriteReport(&buf, format, rep); err != nil {
		slog.Error("failed to write report", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	h.send(w, canvassID, format.ContentType(), "route_report."+string(format), &buf)
}

// ExportBundle handles GET /canvasses/{id}/export/bundle
func (h *ExportHandler) ExportBundle(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dataset(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBundle(r.Context(), &buf, d); err != nil {
		slog.Error("failed to write bundle", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to build bundle")
		return
	}

	h.send(w, d.CanvassID, "application/zip", export.BundleFilename, &buf)
}

func (h *ExportHandler) send(w http.ResponseWriter, canvassID, contentType, filename string, buf *bytes.Buffer) {
	size := buf.Len()
	middleware.Attachment(w, contentType, filename)
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("export interrupted", "canvass_id", canvassID, "file", filename, "error", err)
		return
	}
	slog.Info("export sent", "canvass_id", canvassID, "file", filename, "size", humanize.Bytes(uint64(size)))
}

// GetWalkSheet handles GET /walk/{slug}
// Public: the slug is the credential. Returns JSON, or the walk sheet CSV with
// ?format=csv.
func (h *ExportHandler) GetWalkSheet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	var canvassID, unitID, canvassName string
	var sheet models.WalkSheet
	var membersJSON string
	err := h.db.QueryRow(`
		SELECT u.canvass_id, u.unit_id, u.label, u.members_json, c.name
		FROM plan_unit u
		JOIN canvass c ON c.id = u.canvass_id
		WHERE u.walk_slug = $1
	`, slug).Scan(&canvassID, &unitID, &sheet.Unit, &membersJSON, &canvassName)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Walk sheet not found")
		return
	}
	if err != nil {
		slog.Error("failed to query walk sheet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	sheet.Canvass = canvassName

	var members []models.Member
	if err := json.Unmarshal([]byte(membersJSON), &members); err != nil {
		slog.Error("failed to decode members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	sheet.Members = make([]string, len(members))
	for i, m := range members {
		sheet.Members[i] = m.Name
	}

	sheet.Stops, err = loadStops(h.db, canvassID, unitID)
	if err != nil {
		slog.Error("failed to load stops", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		middleware.JSONResponse(w, http.StatusOK, sheet)
		return
	}

	rows := make([]export.Row, len(sheet.Stops))
	for i, s := range sheet.Stops {
		rows[i] = export.Row{RouteOrder: s.RouteOrder, Street: s.Street, Address: s.Address, Side: s.Side, UnitID: s.UnitID}
	}
	var buf bytes.Buffer
	if err := export.WriteWalkSheet(&buf, rows); err != nil {
		slog.Error("failed to write walk sheet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to build walk sheet")
		return
	}
	h.send(w, canvassID, "text/csv", unitID+".csv", &buf)
}
