package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type enumerates ingested document kinds.
type Type string

const (
	TypeInvoice  Type = "invoice"
	TypeOrder    Type = "order"
	TypeDelivery Type = "delivery"
)

// TaxMode describes how the extracted unit prices relate to tax.
type TaxMode string

const (
	// TaxInclusive means unit prices already contain tax.
	TaxInclusive TaxMode = "inclusive"
	// TaxExclusive means tax is added on top of unit prices.
	TaxExclusive TaxMode = "exclusive"
)

// Category classifies an extracted line for proposal building.
type Category string

const (
	CategoryInventory Category = "inventory"
	CategoryService   Category = "service"
	CategoryExpense   Category = "expense"
)

// Attachment is one captured file reference.
type Attachment struct {
	Filename  string `json:"filename"`
	Locator   string `json:"locator"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
}

// Source holds immutable capture metadata. Set once at ingestion; files may
// only be appended.
type Source struct {
	Subject    string       `json:"subject"`
	Sender     string       `json:"sender"`
	ReceivedAt time.Time    `json:"receivedAt"`
	Files      []Attachment `json:"files"`
}

// Totals groups document-level amounts.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	TotalInc float64 `json:"totalInc"`
}

// Line is one canonical extracted line item.
type Line struct {
	SKU             string   `json:"sku"`
	Description     string   `json:"description"`
	Category        Category `json:"category"`
	Qty             float64  `json:"qty"`
	UoM             string   `json:"uom"`
	UnitPrice       float64  `json:"unitPrice"`
	Net             float64  `json:"net"`
	Tax             float64  `json:"tax"`
	Gross           float64  `json:"gross"`
	TaxRateOverride *float64 `json:"taxRateOverride,omitempty"`
	Flags           []string `json:"flags,omitempty"`
}

// Extracted is the canonical, internally consistent record produced by
// normalization.
type Extracted struct {
	SupplierName  string    `json:"supplierName"`
	SupplierTaxID string    `json:"supplierTaxId"`
	DocNumber     string    `json:"docNumber"`
	OrderNumber   string    `json:"orderNumber"`
	Date          time.Time `json:"date"`
	Currency      string    `json:"currency"`
	TaxMode       TaxMode   `json:"taxMode"`
	TaxRate       float64   `json:"taxRate"`
	Totals        Totals    `json:"totals"`
	Lines         []Line    `json:"lines"`
	Flags         []string  `json:"flags,omitempty"`
}

// DraftLine is one proposed journal line.
type DraftLine struct {
	Account string  `json:"account"`
	Memo    string  `json:"memo"`
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
}

// DraftJournal is the unposted journal derived from a document.
type DraftJournal struct {
	Date      time.Time   `json:"date"`
	Reference string      `json:"reference"`
	Memo      string      `json:"memo"`
	Lines     []DraftLine `json:"lines"`
}

// DraftMove is one unposted stock movement. Destination stays empty until the
// routing step assigns a warehouse.
type DraftMove struct {
	Date          time.Time `json:"date"`
	SKU           string    `json:"sku"`
	Qty           float64   `json:"qty"`
	UoM           string    `json:"uom"`
	UnitCost      float64   `json:"unitCost"`
	DestWarehouse string    `json:"destWarehouse,omitempty"`
}

// Proposal groups the draft artifacts. Immutable once the document is POSTED.
type Proposal struct {
	Journal    *DraftJournal `json:"journal,omitempty"`
	StockMoves []DraftMove   `json:"stockMoves,omitempty"`
}

// Links records the posted artifacts, populated exactly once.
type Links struct {
	JournalID    int64   `json:"journalId,omitempty"`
	StockMoveIDs []int64 `json:"stockMoveIds,omitempty"`
}

// Document is one ingested business document moving through the lifecycle.
type Document struct {
	ID        uuid.UUID
	Number    string
	Type      Type
	Status    Status
	Source    Source
	Extracted *Extracted
	Proposal  *Proposal
	Links     Links
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrNotFound indicates a missing document.
	ErrNotFound = errors.New("documents: not found")
	// ErrNotParsed occurs when an action needs extracted data that is absent.
	ErrNotParsed = errors.New("documents: document has no parsed data")
	// ErrProposalIncomplete occurs when posting is attempted without a routed proposal.
	ErrProposalIncomplete = errors.New("documents: proposal incomplete")
	// ErrAlreadyLinked indicates the document already has posted artifacts.
	ErrAlreadyLinked = errors.New("documents: already linked to posted artifacts")
)
