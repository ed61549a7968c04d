package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/extraction"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/journals"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/posting"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/proposal"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
)

type memoryDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]documents.Document
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: make(map[uuid.UUID]documents.Document)}
}

func (m *memoryDocs) Create(_ context.Context, doc documents.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryDocs) Get(_ context.Context, id uuid.UUID) (documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return documents.Document{}, documents.ErrNotFound
	}
	return doc, nil
}

func (m *memoryDocs) List(_ context.Context, status documents.Status, limit int) ([]documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []documents.Document
	for _, doc := range m.docs {
		if status == "" || doc.Status == status {
			out = append(out, doc)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryDocs) AppendFile(_ context.Context, id uuid.UUID, file documents.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	doc.Source.Files = append(doc.Source.Files, file)
	m.docs[id] = doc
	return nil
}

func (m *memoryDocs) UpdateExtracted(_ context.Context, id uuid.UUID, extracted *documents.Extracted, status documents.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	doc.Extracted = extracted
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *memoryDocs) UpdateProposal(_ context.Context, id uuid.UUID, prop *documents.Proposal, status documents.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	doc.Proposal = prop
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *memoryDocs) UpdateStatus(_ context.Context, id uuid.UUID, status documents.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *memoryDocs) SetLinksIfUnset(_ context.Context, id uuid.UUID, links documents.Links, status documents.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return false, documents.ErrNotFound
	}
	if doc.Links.JournalID != 0 {
		return false, nil
	}
	doc.Links = links
	doc.Status = status
	m.docs[id] = doc
	return true, nil
}

type stubNumbers struct {
	mu    sync.Mutex
	count int
}

func (n *stubNumbers) Next(_ context.Context, prefix string, date time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return shared.FormatNumber(prefix, date, int64(n.count)), nil
}

type stubJournals struct {
	mu     sync.Mutex
	nextID int64
}

func (j *stubJournals) Post(_ context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := input.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	j.nextID++
	return journals.JournalEntry{ID: j.nextID, Reference: input.Reference}, nil
}

type stubStock struct {
	mu      sync.Mutex
	nextID  int64
	created []stock.Movement
}

func (s *stubStock) CreateDraft(_ context.Context, input stock.MovementInput) (stock.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	mv := stock.Movement{ID: s.nextID, SKU: input.SKU, Qty: input.Qty, Source: input.Source, Dest: input.Dest}
	s.created = append(s.created, mv)
	return mv, nil
}

func (s *stubStock) Approve(_ context.Context, id int64) error { return nil }

func (s *stubStock) Post(_ context.Context, id int64, actorID int64) error { return nil }

func newTestService(t *testing.T) (*Service, *memoryDocs, *stubStock) {
	t.Helper()
	docs := newMemoryDocs()
	stk := &stubStock{}
	builder := proposal.NewBuilder(proposal.Accounts{Inventory: "1400", Expense: "6000", Payable: "2100"})
	engine := posting.NewEngine(docs, &stubJournals{}, stk, shared.NewDocumentLocker(nil, 0), nil, nil)
	registry := stock.StaticRegistry{"MAIN": true}
	svc := NewService(docs, builder, engine, registry, &stubNumbers{}, nil)
	return svc, docs, stk
}

func rawInvoice() extraction.RawDocument {
	return extraction.RawDocument{
		SupplierName: "Acme Industrial",
		DocNumber:    "INV-9001",
		Date:         "2026-03-15",
		Currency:     "EUR",
		TaxMode:      "exclusive",
		TaxRate:      0.25,
		Lines: []extraction.RawLine{
			{SKU: "WIDGET", Description: "Widgets", Category: "inventory", Qty: 10, UoM: "pcs", UnitPrice: 80},
			{Description: "Freight", Category: "service", Net: 200},
		},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	svc, _, stk := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, IngestInput{
		Type:    documents.TypeInvoice,
		Subject: "Invoice INV-9001",
		Sender:  "billing@acme.example",
		Files:   []documents.Attachment{{Filename: "invoice.pdf", Locator: "blob://1"}},
	})
	require.NoError(t, err)
	require.Equal(t, documents.StatusClassified, doc.Status)
	require.NotEmpty(t, doc.Number)

	doc, err = svc.Normalize(ctx, doc.ID, rawInvoice())
	require.NoError(t, err)
	require.Equal(t, documents.StatusParsed, doc.Status)
	require.InDelta(t, 1250.0, doc.Extracted.Totals.TotalInc, 1e-9)

	doc, err = svc.BuildProposal(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusReady, doc.Status)
	require.Len(t, doc.Proposal.Journal.Lines, 3)
	require.Len(t, doc.Proposal.StockMoves, 1)

	doc, err = svc.Route(ctx, doc.ID, RouteInput{Assignments: map[int]string{0: "MAIN"}, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, documents.StatusRouted, doc.Status)
	require.Equal(t, "MAIN", doc.Proposal.StockMoves[0].DestWarehouse)

	links, err := svc.Post(ctx, doc.ID, 7)
	require.NoError(t, err)
	require.NotZero(t, links.JournalID)
	require.Len(t, links.StockMoveIDs, 1)

	doc, err = svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusPosted, doc.Status)
	require.Equal(t, links, doc.Links)

	require.Len(t, stk.created, 1)
	require.Equal(t, stock.Party("Acme Industrial"), stk.created[0].Source)
	require.Equal(t, stock.Warehouse("MAIN"), stk.created[0].Dest)
}

func TestIngestWithoutFilesStaysReceived(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc, err := svc.Ingest(context.Background(), IngestInput{Type: documents.TypeInvoice, Subject: "Scan later"})
	require.NoError(t, err)
	require.Equal(t, documents.StatusReceived, doc.Status)

	doc, err = svc.AttachFile(context.Background(), doc.ID, documents.Attachment{Filename: "late.pdf"})
	require.NoError(t, err)
	require.Equal(t, documents.StatusClassified, doc.Status)
	require.Len(t, doc.Source.Files, 1)
}

func TestIngestRejectsUnknownType(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Ingest(context.Background(), IngestInput{Type: documents.Type("memo")})
	require.Error(t, err)
}

func TestNormalizeIncompleteKeepsRank(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, IngestInput{
		Type:  documents.TypeInvoice,
		Files: []documents.Attachment{{Filename: "blurry.pdf"}},
	})
	require.NoError(t, err)

	doc, err = svc.Normalize(ctx, doc.ID, extraction.RawDocument{SupplierName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, documents.StatusClassified, doc.Status)
	require.NotNil(t, doc.Extracted, "partial data is stored even when incomplete")

	// A later, better extraction still advances the document.
	doc, err = svc.Normalize(ctx, doc.ID, rawInvoice())
	require.NoError(t, err)
	require.Equal(t, documents.StatusParsed, doc.Status)
}

func TestBuildProposalZeroGrossIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, IngestInput{
		Type:  documents.TypeInvoice,
		Files: []documents.Attachment{{Filename: "credit.pdf"}},
	})
	require.NoError(t, err)

	doc, err = svc.Normalize(ctx, doc.ID, rawInvoice())
	require.NoError(t, err)
	require.Equal(t, documents.StatusParsed, doc.Status)

	// A corrected extraction with zero gross keeps the parsed rank.
	raw := rawInvoice()
	raw.Lines = []extraction.RawLine{{SKU: "WIDGET", Qty: 1, UnitPrice: 0}}
	doc, err = svc.Normalize(ctx, doc.ID, raw)
	require.NoError(t, err)
	require.Equal(t, documents.StatusParsed, doc.Status)
	require.InDelta(t, 0.0, doc.Extracted.Totals.TotalInc, 1e-9)

	got, err := svc.BuildProposal(ctx, doc.ID)
	require.NoError(t, err)
	require.Nil(t, got.Proposal)
	require.Equal(t, documents.StatusParsed, got.Status)
}

func TestRouteRejectsUnknownWarehouse(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc := ingestToReady(t, svc)
	_, err := svc.Route(ctx, doc.ID, RouteInput{})
	require.ErrorIs(t, err, documents.ErrProposalIncomplete)

	_, err = svc.Route(ctx, doc.ID, RouteInput{Assignments: map[int]string{0: "GHOST"}})
	require.ErrorIs(t, err, stock.ErrUnknownWarehouse)
}

func TestProposalLockedAfterRouting(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc := ingestToReady(t, svc)

	// A rebuild before routing replaces the proposal.
	rebuilt, err := svc.BuildProposal(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, rebuilt.Proposal)

	routed, err := svc.Route(ctx, doc.ID, RouteInput{Assignments: map[int]string{0: "MAIN"}})
	require.NoError(t, err)
	require.Equal(t, documents.StatusRouted, routed.Status)

	_, err = svc.BuildProposal(ctx, doc.ID)
	require.ErrorIs(t, err, ErrProposalLocked)

	links, err := svc.Post(ctx, doc.ID, 7)
	require.NoError(t, err)
	require.NotZero(t, links.JournalID)

	_, err = svc.BuildProposal(ctx, doc.ID)
	require.ErrorIs(t, err, ErrProposalLocked)
}

func ingestToReady(t *testing.T, svc *Service) documents.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := svc.Ingest(ctx, IngestInput{
		Type:  documents.TypeInvoice,
		Files: []documents.Attachment{{Filename: "invoice.pdf"}},
	})
	require.NoError(t, err)
	doc, err = svc.Normalize(ctx, doc.ID, rawInvoice())
	require.NoError(t, err)
	doc, err = svc.BuildProposal(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusReady, doc.Status)
	return doc
}
