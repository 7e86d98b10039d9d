// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the route planner API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Canvass management (admin, requires X-Admin-Key):

	POST   /canvasses                            - Upload register (multipart)
	GET    /canvasses/{id}                       - Canvass details
	GET    /canvasses/{id}/streets               - Walking order
	PUT    /canvasses/{id}/streets               - Select and order streets
	GET    /canvasses/{id}/addresses             - List addresses
	POST   /canvasses/{id}/addresses             - Add an address by hand
	DELETE /canvasses/{id}/addresses/{addressID} - Remove an address
	POST   /canvasses/{id}/close                 - Freeze and snapshot the report

Team (admin):

	GET    /canvasses/{id}/canvassers
	POST   /canvasses/{id}/canvassers
	DELETE /canvasses/{id}/canvassers/{canvasserID}
	GET    /canvasses/{id}/exclusions
	POST   /canvasses/{id}/exclusions
	DELETE /canvasses/{id}/exclusions/{a}/{b}

Planning and downloads (admin):

	POST /canvasses/{id}/plan          - Generate plan
	GET  /canvasses/{id}/plan          - Stored plan
	GET  /canvasses/{id}/export/app    - Mobile app CSV
	GET  /canvasses/{id}/export/report - Report (?format=csv|json|yaml)
	GET  /canvasses/{id}/export/bundle - Zip of everything

Walk sheets (public, uses walk slug):

	GET /walk/{slug}

# Handler Initialization

The router creates handler instances with dependency injection:

	canvassHandler := handlers.NewCanvassHandler(db, cfg)
	teamHandler := handlers.NewTeamHandler(db, cfg)
	planHandler := handlers.NewPlanHandler(db, cfg)
	exportHandler := handlers.NewExportHandler(db, cfg)

All handlers receive the database connection and configuration.
*/
package router
