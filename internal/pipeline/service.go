// Package pipeline orchestrates the document-to-ledger flow: ingestion,
// normalization, proposal building, routing and posting. Every transition is
// request-driven; there is no background scheduler in the core flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/extraction"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/proposal"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
)

// ErrProposalLocked occurs when a rebuild is attempted after routing.
var ErrProposalLocked = errors.New("pipeline: proposal is locked once routed")

// DocumentRepo abstracts document persistence for the orchestrator.
type DocumentRepo interface {
	Create(ctx context.Context, doc documents.Document) error
	Get(ctx context.Context, id uuid.UUID) (documents.Document, error)
	List(ctx context.Context, status documents.Status, limit int) ([]documents.Document, error)
	AppendFile(ctx context.Context, id uuid.UUID, file documents.Attachment) error
	UpdateExtracted(ctx context.Context, id uuid.UUID, extracted *documents.Extracted, status documents.Status) error
	UpdateProposal(ctx context.Context, id uuid.UUID, prop *documents.Proposal, status documents.Status) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status) error
}

// PostingPort posts a routed document.
type PostingPort interface {
	Post(ctx context.Context, docID uuid.UUID, actorID int64) (documents.Links, error)
}

// NumberPort issues durable sequence numbers.
type NumberPort interface {
	Next(ctx context.Context, prefix string, date time.Time) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wires the pipeline steps together.
type Service struct {
	docs     DocumentRepo
	builder  *proposal.Builder
	engine   PostingPort
	registry stock.WarehouseLookup
	numbers  NumberPort
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(docs DocumentRepo, builder *proposal.Builder, engine PostingPort, registry stock.WarehouseLookup, numbers NumberPort, audit AuditPort) *Service {
	return &Service{docs: docs, builder: builder, engine: engine, registry: registry, numbers: numbers, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// IngestInput describes a freshly captured document.
type IngestInput struct {
	Type    documents.Type
	Subject string
	Sender  string
	Files   []documents.Attachment
}

// Ingest creates a document at RECEIVED. Arrival of attachments bumps it
// straight to CLASSIFIED.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (documents.Document, error) {
	switch input.Type {
	case documents.TypeInvoice, documents.TypeOrder, documents.TypeDelivery:
	default:
		return documents.Document{}, fmt.Errorf("pipeline: unknown document type %q", input.Type)
	}
	now := s.now().UTC()
	number, err := s.numbers.Next(ctx, "DOC", now)
	if err != nil {
		return documents.Document{}, fmt.Errorf("pipeline: assign number: %w", err)
	}
	doc := documents.Document{
		ID:     uuid.New(),
		Number: number,
		Type:   input.Type,
		Status: documents.StatusReceived,
		Source: documents.Source{
			Subject:    input.Subject,
			Sender:     input.Sender,
			ReceivedAt: now,
			Files:      input.Files,
		},
	}
	if len(input.Files) > 0 {
		doc.Status = documents.StatusClassified
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return documents.Document{}, err
	}
	s.recordAudit(ctx, "document.ingest", doc.ID, map[string]any{"number": doc.Number, "type": string(doc.Type)})
	return doc, nil
}

// Get loads one document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns documents, optionally filtered by status.
func (s *Service) List(ctx context.Context, status documents.Status, limit int) ([]documents.Document, error) {
	return s.docs.List(ctx, status, limit)
}

// AttachFile appends a captured file and bumps RECEIVED to CLASSIFIED.
func (s *Service) AttachFile(ctx context.Context, id uuid.UUID, file documents.Attachment) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}
	if err := s.docs.AppendFile(ctx, id, file); err != nil {
		return documents.Document{}, err
	}
	if doc.Status == documents.StatusReceived {
		if err := s.docs.UpdateStatus(ctx, id, documents.StatusClassified); err != nil {
			return documents.Document{}, err
		}
	}
	return s.docs.Get(ctx, id)
}

// Normalize reconciles raw extracted fields into the canonical record. It is
// idempotent and advances the status at most to PARSED; a document whose data
// does not support parsing keeps its rank and stays visible as
// non-progressing.
func (s *Service) Normalize(ctx context.Context, id uuid.UUID, raw extraction.RawDocument) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}
	result := extraction.Normalize(raw)
	status := doc.Status
	if result.Complete && status != documents.StatusNeedsReview && status.Rank() < documents.StatusParsed.Rank() {
		status = documents.StatusParsed
	}
	if err := s.docs.UpdateExtracted(ctx, id, &result.Extracted, status); err != nil {
		return documents.Document{}, err
	}
	s.recordAudit(ctx, "document.normalize", id, map[string]any{
		"complete": result.Complete,
		"flags":    result.Extracted.Flags,
	})
	return s.docs.Get(ctx, id)
}

// BuildProposal derives a fresh draft journal and stock moves. When no
// balanced journal can be constructed the document is returned unchanged and
// stays at PARSED. Rebuilding overwrites any earlier proposal; once routed,
// the proposal is locked.
func (s *Service) BuildProposal(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Links.JournalID != 0 || doc.Status.Rank() > documents.StatusReady.Rank() {
		return documents.Document{}, ErrProposalLocked
	}
	prop, err := s.builder.Build(doc)
	if err != nil {
		if errors.Is(err, proposal.ErrNoProposal) {
			return doc, nil
		}
		return documents.Document{}, err
	}
	status := doc.Status
	if status != documents.StatusNeedsReview && status.Rank() < documents.StatusReady.Rank() {
		status = documents.StatusReady
	}
	if err := s.docs.UpdateProposal(ctx, id, prop, status); err != nil {
		return documents.Document{}, err
	}
	s.recordAudit(ctx, "document.propose", id, map[string]any{"stock_moves": len(prop.StockMoves)})
	return s.docs.Get(ctx, id)
}

// RouteInput assigns destination warehouses to pending stock-move drafts by
// their position in the proposal.
type RouteInput struct {
	Assignments map[int]string
	ActorID     int64
}

// Route applies warehouse assignments and advances READY to ROUTED. Every
// draft move must end up with a registry-recognised destination.
func (s *Service) Route(ctx context.Context, id uuid.UUID, input RouteInput) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}
	if err := documents.Transition(doc.Status, documents.StatusRouted); err != nil {
		return documents.Document{}, err
	}
	if doc.Proposal == nil || doc.Proposal.Journal == nil {
		return documents.Document{}, documents.ErrProposalIncomplete
	}
	prop := *doc.Proposal
	for idx := range prop.StockMoves {
		if code, ok := input.Assignments[idx]; ok {
			prop.StockMoves[idx].DestWarehouse = code
		}
		code := prop.StockMoves[idx].DestWarehouse
		if code == "" {
			return documents.Document{}, fmt.Errorf("%w: move %d unassigned", documents.ErrProposalIncomplete, idx)
		}
		ok, err := s.registry.IsWarehouse(ctx, code)
		if err != nil {
			return documents.Document{}, err
		}
		if !ok {
			return documents.Document{}, fmt.Errorf("%w: %s", stock.ErrUnknownWarehouse, code)
		}
	}
	if err := s.docs.UpdateProposal(ctx, id, &prop, documents.StatusRouted); err != nil {
		return documents.Document{}, err
	}
	s.recordAudit(ctx, "document.route", id, map[string]any{"assignments": len(input.Assignments)})
	return s.docs.Get(ctx, id)
}

// Post delegates to the posting engine.
func (s *Service) Post(ctx context.Context, id uuid.UUID, actorID int64) (documents.Links, error) {
	return s.engine.Post(ctx, id, actorID)
}

func (s *Service) recordAudit(ctx context.Context, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "document",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	})
}
