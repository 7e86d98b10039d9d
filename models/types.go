package models

import (
	"time"

	"github.com/danielhkuo/route-optimiser/export"
)

// Canvass status constants
const (
	StatusDraft   = "draft"
	StatusPlanned = "planned"
	StatusClosed  = "closed"
)

// Address source constants
const (
	SourceUpload = "upload"
	SourceManual = "manual"
)

// Request types

type UpdateStreetsRequest struct {
	Streets []string `json:"streets"` // included streets, in walking order
}

type AddAddressRequest struct {
	Street  string            `json:"street"`
	Address string            `json:"address"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type AddCanvasserRequest struct {
	Name string `json:"name"`
}

type AddExclusionRequest struct {
	CanvasserA string `json:"canvasser_a"`
	CanvasserB string `json:"canvasser_b"`
}

type GeneratePlanRequest struct {
	Mode           string `json:"mode"` // none, round_robin, balanced
	UnitSize       int    `json:"unit_size,omitempty"`
	MaxChunkSize   int    `json:"max_chunk_size,omitempty"`
	CanvasserCount int    `json:"canvasser_count,omitempty"` // used when the roster is empty
}

// Response types

type CreateCanvassResponse struct {
	CanvassID string   `json:"canvass_id"`
	AdminKey  string   `json:"admin_key"`
	Name      string   `json:"name"`
	Addresses int      `json:"addresses"`
	Skipped   int      `json:"skipped"`
	Streets   []Street `json:"streets"`
}

type AddAddressResponse struct {
	AddressID   string `json:"address_id"`
	HouseNumber *int   `json:"house_number,omitempty"`
}

type AddCanvasserResponse struct {
	CanvasserID string `json:"canvasser_id"`
}

type PlanResponse struct {
	CanvassID  string     `json:"canvass_id"`
	Status     string     `json:"status"`
	Mode       string     `json:"mode"`
	Generation int        `json:"generation"`
	PlannedAt  time.Time  `json:"planned_at"`
	Spread     int        `json:"spread"`
	Units      []PlanUnit `json:"units"`
	Stops      []PlanStop `json:"stops"`
}

type CloseCanvassResponse struct {
	ClosedAt   time.Time     `json:"closed_at"`
	SnapshotID string        `json:"snapshot_id"`
	Report     export.Report `json:"report"`
}

// Domain types

type Canvass struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	Columns            []string   `json:"columns"`
	SourceFilename     *string    `json:"source_filename,omitempty"`
	SkippedRows        int        `json:"skipped_rows"`
	PlanMode           *string    `json:"plan_mode,omitempty"`
	PlanUnitSize       *int       `json:"plan_unit_size,omitempty"`
	PlanMaxChunk       *int       `json:"plan_max_chunk,omitempty"`
	PlanCanvasserCount *int       `json:"plan_canvasser_count,omitempty"`
	PlanGeneration     int        `json:"plan_generation"`
	EditVersion        int        `json:"edit_version"`
	PlannedAt          *time.Time `json:"planned_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	FinalSnapshotID    *string    `json:"final_snapshot_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Street struct {
	Name      string `json:"name"`
	Key       string `json:"-"`
	Position  int    `json:"position"`
	Included  bool   `json:"included"`
	Addresses int    `json:"addresses"`
}

type Address struct {
	ID          string            `json:"id"`
	CanvassID   string            `json:"canvass_id"`
	Seq         int               `json:"seq"`
	Street      string            `json:"street"`
	Address     string            `json:"address"`
	HouseNumber *int              `json:"house_number,omitempty"`
	Source      string            `json:"source"`
	Fields      map[string]string `json:"fields,omitempty"`
}

type Canvasser struct {
	ID        string    `json:"id"`
	CanvassID string    `json:"canvass_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type Exclusion struct {
	CanvasserA string `json:"canvasser_a"`
	CanvasserB string `json:"canvasser_b"`
	NameA      string `json:"name_a"`
	NameB      string `json:"name_b"`
}

type CanvassDetail struct {
	Canvass    Canvass  `json:"canvass"`
	Streets    []Street `json:"streets"`
	Addresses  int      `json:"addresses"`
	Canvassers int      `json:"canvassers"`
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlanUnit struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Position  int      `json:"position"`
	Members   []Member `json:"members"`
	WalkSlug  string   `json:"walk_slug,omitempty"`
	WalkURL   string   `json:"walk_url,omitempty"`
	Addresses int      `json:"addresses"`
}

type PlanStop struct {
	RouteOrder int    `json:"route_order"`
	AddressID  string `json:"address_id"`
	Street     string `json:"street"`
	Address    string `json:"address"`
	Side       string `json:"side"`
	Chunk      int    `json:"chunk"`
	UnitID     string `json:"unit_id,omitempty"`
}

// WalkSheet is the public view of one unit's route; it never carries register
// columns beyond street and address
type WalkSheet struct {
	Canvass string     `json:"canvass"`
	Unit    string     `json:"unit"`
	Members []string   `json:"members"`
	Stops   []PlanStop `json:"stops"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
