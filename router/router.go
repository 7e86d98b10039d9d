// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/route-optimiser/cliparse"
	"github.com/danielhkuo/route-optimiser/handlers"
	"github.com/danielhkuo/route-optimiser/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	canvassHandler := handlers.NewCanvassHandler(db, cfg)
	teamHandler := handlers.NewTeamHandler(db, cfg)
	planHandler := handlers.NewPlanHandler(db, cfg)
	exportHandler := handlers.NewExportHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Canvass management (admin operations)
	mux.HandleFunc("POST /canvasses", middleware.WithLogging(canvassHandler.CreateCanvass))
	mux.HandleFunc("GET /canvasses/{id}", middleware.WithLogging(canvassHandler.GetCanvass))
	mux.HandleFunc("GET /canvasses/{id}/streets", middleware.WithLogging(canvassHandler.GetStreets))
	mux.HandleFunc("PUT /canvasses/{id}/streets", middleware.WithLogging(canvassHandler.UpdateStreets))
	mux.HandleFunc("GET /canvasses/{id}/addresses", middleware.WithLogging(canvassHandler.ListAddresses))
	mux.HandleFunc("POST /canvasses/{id}/addresses", middleware.WithLogging(canvassHandler.AddAddress))
	mux.HandleFunc("DELETE /canvasses/{id}/addresses/{addressID}", middleware.WithLogging(canvassHandler.DeleteAddress))
	mux.HandleFunc("POST /canvasses/{id}/close", middleware.WithLogging(canvassHandler.CloseCanvass))

	// Team
	mux.HandleFunc("GET /canvasses/{id}/canvassers", middleware.WithLogging(teamHandler.ListCanvassers))
	mux.HandleFunc("POST /canvasses/{id}/canvassers", middleware.WithLogging(teamHandler.AddCanvasser))
	mux.HandleFunc("DELETE /canvasses/{id}/canvassers/{canvasserID}", middleware.WithLogging(teamHandler.DeleteCanvasser))
	mux.HandleFunc("GET /canvasses/{id}/exclusions", middleware.WithLogging(teamHandler.ListExclusions))
	mux.HandleFunc("POST /canvasses/{id}/exclusions", middleware.WithLogging(teamHandler.AddExclusion))
	mux.HandleFunc("DELETE /canvasses/{id}/exclusions/{a}/{b}", middleware.WithLogging(teamHandler.DeleteExclusion))

	// Planning
	mux.HandleFunc("POST /canvasses/{id}/plan", middleware.WithLogging(planHandler.GeneratePlan))
	mux.HandleFunc("GET /canvasses/{id}/plan", middleware.WithLogging(planHandler.GetPlan))

	// Downloads
	mux.HandleFunc("GET /canvasses/{id}/export/app", middleware.WithLogging(exportHandler.ExportApp))
	mux.HandleFunc("GET /canvasses/{id}/export/report", middleware.WithLogging(exportHandler.ExportReport))
	mux.HandleFunc("GET /canvasses/{id}/export/bundle", middleware.WithLogging(exportHandler.ExportBundle))

	// Walk sheets (public)
	mux.HandleFunc("GET /walk/{slug}", middleware.WithLogging(exportHandler.GetWalkSheet))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("route-optimiser API v1"))
	})

	return mux
}
