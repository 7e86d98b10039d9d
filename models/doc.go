// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - UpdateStreetsRequest: streets (included, in walking order)
  - AddAddressRequest: street, address, fields
  - AddCanvasserRequest: name
  - AddExclusionRequest: canvasser_a, canvasser_b
  - GeneratePlanRequest: mode, unit_size, max_chunk_size, canvasser_count

The register itself arrives as a multipart upload, not JSON.

# Response Types

  - CreateCanvassResponse: canvass_id, admin_key, counts, streets
  - AddAddressResponse: address_id
  - AddCanvasserResponse: canvasser_id
  - PlanResponse: units and stops of the current plan
  - CloseCanvassResponse: closed_at, snapshot_id, report
  - ErrorResponse: error, message

# Domain Types

  - Canvass: canvass metadata, lifecycle state, last plan settings
  - Street: walking position and selection
  - Address: register row
  - Canvasser, Exclusion: roster and pairing exclusions
  - PlanUnit, PlanStop: the stored plan
  - WalkSheet: public view of one unit's stops

# Constants

Status values:

	StatusDraft   = "draft"
	StatusPlanned = "planned"
	StatusClosed  = "closed"

Address sources:

	SourceUpload = "upload"
	SourceManual = "manual"
*/
package models
