// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the route planner API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - CanvassHandler: Register upload, streets, addresses, close
  - TeamHandler: Roster and pairing exclusions
  - PlanHandler: Plan generation and retrieval
  - ExportHandler: App file, report, bundle and public walk sheets

Handlers are created via constructor functions that accept *sql.DB and Config:

	canvassHandler := handlers.NewCanvassHandler(db, cfg)

# Canvass Lifecycle

Canvasses progress through three states: draft → planned → closed

	POST /canvasses            → CreateCanvass (multipart upload, returns admin_key)
	PUT /canvasses/{id}/streets → UpdateStreets (selection and walking order)
	POST /canvasses/{id}/plan   → GeneratePlan (draft or planned)
	POST /canvasses/{id}/close  → CloseCanvass (stores a report snapshot)

Any change to addresses, streets, roster or exclusions discards the plan of a
planned canvass and returns it to draft. Closed canvasses reject changes with
409 Conflict.

Admin operations require the X-Admin-Key header.

# Walk Sheets

Each planned unit gets a walk link:

	GET /walk/{slug} → GetWalkSheet (JSON, or CSV with ?format=csv)

Slugs are HMACs of the canvass, unit and plan generation, so replanning
retires the old links.

# Exports

	GET /canvasses/{id}/export/app    → ExportApp (register columns + Route Order, Canvasser)
	GET /canvasses/{id}/export/report → ExportReport (?format=csv|json|yaml)
	GET /canvasses/{id}/export/bundle → ExportBundle (zip)

Exports need a stored plan and remain available after close.
*/
package handlers
