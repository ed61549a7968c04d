package stock

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EndpointKind distinguishes a recognised warehouse from an external party.
type EndpointKind string

const (
	// EndpointWarehouse marks an endpoint resolved against the warehouse registry.
	EndpointWarehouse EndpointKind = "WAREHOUSE"
	// EndpointParty marks an external counterparty such as a supplier or customer.
	EndpointParty EndpointKind = "PARTY"
)

// Endpoint is the tagged union of a movement side. It is constructed once by
// the ingestion/routing layer; the aggregator never re-derives intent from
// string shape.
type Endpoint struct {
	Kind EndpointKind
	Code string // warehouse code when Kind == EndpointWarehouse
	Name string // party name when Kind == EndpointParty
}

// Warehouse builds a warehouse endpoint.
func Warehouse(code string) Endpoint {
	return Endpoint{Kind: EndpointWarehouse, Code: code}
}

// Party builds an external-party endpoint.
func Party(name string) Endpoint {
	return Endpoint{Kind: EndpointParty, Name: name}
}

// IsWarehouse reports whether the endpoint is a warehouse reference.
func (e Endpoint) IsWarehouse() bool {
	return e.Kind == EndpointWarehouse && e.Code != ""
}

// IsParty reports whether the endpoint is an external party.
func (e Endpoint) IsParty() bool {
	return e.Kind == EndpointParty && e.Name != ""
}

// IsZero reports whether the endpoint side is absent.
func (e Endpoint) IsZero() bool {
	return e.Code == "" && e.Name == ""
}

// Label returns the party name, falling back to the warehouse code.
func (e Endpoint) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Code
}

// MovementStatus enumerates the movement lifecycle. Only POSTED movements
// participate in on-hand reconstruction.
type MovementStatus string

const (
	MovementStatusDraft    MovementStatus = "DRAFT"
	MovementStatusApproved MovementStatus = "APPROVED"
	MovementStatusPosted   MovementStatus = "POSTED"
)

// Movement is one atomic inventory change, immutable once posted.
type Movement struct {
	ID        int64
	Number    string
	Date      time.Time
	SKU       string
	Qty       float64 // strictly positive magnitude
	UoM       string
	UnitCost  float64
	Source    Endpoint
	Dest      Endpoint
	Status    MovementStatus
	RefModule string
	RefID     uuid.UUID
	CreatedAt time.Time
}

// OnHandRow is the derived per-item summary. It is recomputed from posted
// movements on every read and never persisted as a mutable counter.
type OnHandRow struct {
	SKU              string             `json:"sku"`
	Total            float64            `json:"total"`
	ByWarehouse      map[string]float64 `json:"byWarehouse"`
	LastMovementAt   time.Time          `json:"lastMovementAt"`
	LastCounterparty string             `json:"lastCounterparty"`
}

// MovementInput describes a draft movement to create.
type MovementInput struct {
	Date      time.Time
	SKU       string
	Qty       float64
	UoM       string
	UnitCost  float64
	Source    Endpoint
	Dest      Endpoint
	RefModule string
	RefID     uuid.UUID
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative cost value.
	ErrInvalidUnitCost = errors.New("stock: unit cost must be >= 0")
	// ErrMissingEndpoint indicates a movement without any side.
	ErrMissingEndpoint = errors.New("stock: movement requires a source or destination")
	// ErrInvalidStatus occurs when an action violates the draft/approved/posted flow.
	ErrInvalidStatus = errors.New("stock: invalid status transition")
	// ErrNotFound indicates a missing movement.
	ErrNotFound = errors.New("stock: not found")
	// ErrUnknownWarehouse indicates a code absent from the warehouse registry.
	ErrUnknownWarehouse = errors.New("stock: unknown warehouse code")
)
