// Package posting commits an approved proposal as immutable journal and stock
// movement records, exactly once per document.
package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/journals"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
)

// ErrNotRouted occurs when posting is attempted before routing.
var ErrNotRouted = errors.New("posting: document is not routed")

// DocumentPort exposes the document persistence the engine needs. Read-your-
// writes consistency per document is assumed.
type DocumentPort interface {
	Get(ctx context.Context, id uuid.UUID) (documents.Document, error)
	SetLinksIfUnset(ctx context.Context, id uuid.UUID, links documents.Links, status documents.Status) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status) error
}

// JournalPort posts balanced journal entries.
type JournalPort interface {
	Post(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// StockPort creates and posts stock movements.
type StockPort interface {
	CreateDraft(ctx context.Context, input stock.MovementInput) (stock.Movement, error)
	Approve(ctx context.Context, id int64) error
	Post(ctx context.Context, id int64, actorID int64) error
}

// Locker serialises the check-then-act sequence per document.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Engine is the posting engine.
type Engine struct {
	docs        DocumentPort
	journals    JournalPort
	stock       StockPort
	locker      Locker
	idempotency *shared.IdempotencyStore
	audit       AuditPort
	now         func() time.Time
}

// NewEngine builds Engine. Locker and idempotency store may be nil in
// single-process tests; the conditional link update still guards correctness.
func NewEngine(docs DocumentPort, journalPort JournalPort, stockPort StockPort, locker Locker, idem *shared.IdempotencyStore, audit AuditPort) *Engine {
	return &Engine{docs: docs, journals: journalPort, stock: stockPort, locker: locker, idempotency: idem, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Post commits the document's proposal. The call is idempotent by document
// id: when links already exist they are returned unchanged and nothing new is
// created. Any failure after the journal exists parks the document in
// NEEDS_REVIEW with whatever links were recorded, so every artifact stays
// traceable from its source document.
func (e *Engine) Post(ctx context.Context, docID uuid.UUID, actorID int64) (documents.Links, error) {
	var links documents.Links
	run := func(ctx context.Context) error {
		var err error
		links, err = e.post(ctx, docID, actorID)
		return err
	}
	if e.locker != nil {
		if err := e.locker.WithLock(ctx, shared.DocumentLockKey(docID), run); err != nil {
			return documents.Links{}, err
		}
		return links, nil
	}
	if err := run(ctx); err != nil {
		return documents.Links{}, err
	}
	return links, nil
}

func (e *Engine) post(ctx context.Context, docID uuid.UUID, actorID int64) (documents.Links, error) {
	doc, err := e.docs.Get(ctx, docID)
	if err != nil {
		return documents.Links{}, err
	}
	if doc.Links.JournalID != 0 {
		// Detected no-op: a previous or concurrent post already succeeded.
		return doc.Links, nil
	}
	if doc.Status == documents.StatusNeedsReview {
		return documents.Links{}, documents.ErrNeedsReview
	}
	if doc.Status != documents.StatusRouted {
		return documents.Links{}, fmt.Errorf("%w: status %s", ErrNotRouted, doc.Status)
	}
	if doc.Proposal == nil || doc.Proposal.Journal == nil {
		return documents.Links{}, documents.ErrProposalIncomplete
	}
	for _, mv := range doc.Proposal.StockMoves {
		if mv.DestWarehouse == "" {
			return documents.Links{}, fmt.Errorf("%w: move for %s has no destination warehouse", documents.ErrProposalIncomplete, mv.SKU)
		}
	}

	idemKey := fmt.Sprintf("post:%s", docID)
	insertedKey := false
	if e.idempotency != nil {
		if err := e.idempotency.CheckAndInsert(ctx, idemKey, "posting"); err != nil {
			return documents.Links{}, err
		}
		insertedKey = true
	}
	rollbackKey := func() {
		if insertedKey {
			_ = e.idempotency.Delete(ctx, idemKey)
		}
	}

	draft := doc.Proposal.Journal
	input := journals.PostingInput{
		Date:         draft.Date,
		Reference:    draft.Reference,
		Memo:         draft.Memo,
		SourceModule: "documents",
		SourceID:     docID,
		PostedBy:     actorID,
	}
	for _, line := range draft.Lines {
		input.Lines = append(input.Lines, journals.PostingLineInput{
			Account: line.Account,
			Memo:    line.Memo,
			Debit:   line.Debit,
			Credit:  line.Credit,
		})
	}
	entry, err := e.journals.Post(ctx, input)
	if err != nil {
		// Nothing durable exists yet; the document stays ROUTED and the
		// caller may retry.
		rollbackKey()
		return documents.Links{}, fmt.Errorf("posting: create journal: %w", err)
	}

	links := documents.Links{JournalID: entry.ID}
	supplier := ""
	if doc.Extracted != nil {
		supplier = doc.Extracted.SupplierName
	}
	for _, mv := range doc.Proposal.StockMoves {
		id, err := e.postMovement(ctx, doc, mv, supplier, actorID)
		if err != nil {
			return links, e.parkForReview(ctx, docID, links, fmt.Errorf("posting: stock movement for %s: %w", mv.SKU, err))
		}
		links.StockMoveIDs = append(links.StockMoveIDs, id)
	}

	applied, err := e.docs.SetLinksIfUnset(ctx, docID, links, documents.StatusPosted)
	if err != nil {
		return links, e.parkForReview(ctx, docID, links, fmt.Errorf("posting: record links: %w", err))
	}
	if !applied {
		// Lost a race despite the lock; the winner's links are authoritative.
		current, err := e.docs.Get(ctx, docID)
		if err != nil {
			return documents.Links{}, err
		}
		return current.Links, nil
	}

	if e.audit != nil {
		_ = e.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "document.post",
			Entity:   "document",
			EntityID: docID.String(),
			Meta: map[string]any{
				"journal_id":  links.JournalID,
				"stock_moves": len(links.StockMoveIDs),
			},
			At: e.now(),
		})
	}
	return links, nil
}

// postMovement creates one movement from a routed draft and walks it through
// approved to posted.
func (e *Engine) postMovement(ctx context.Context, doc documents.Document, mv documents.DraftMove, supplier string, actorID int64) (int64, error) {
	source := stock.Endpoint{}
	if supplier != "" {
		source = stock.Party(supplier)
	}
	created, err := e.stock.CreateDraft(ctx, stock.MovementInput{
		Date:      mv.Date,
		SKU:       mv.SKU,
		Qty:       mv.Qty,
		UoM:       mv.UoM,
		UnitCost:  mv.UnitCost,
		Source:    source,
		Dest:      stock.Warehouse(mv.DestWarehouse),
		RefModule: "documents",
		RefID:     doc.ID,
	})
	if err != nil {
		return 0, err
	}
	if err := e.stock.Approve(ctx, created.ID); err != nil {
		return 0, err
	}
	if err := e.stock.Post(ctx, created.ID, actorID); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// parkForReview records whatever links exist and moves the document to
// NEEDS_REVIEW, so reconciliation is always possible from the document state.
func (e *Engine) parkForReview(ctx context.Context, docID uuid.UUID, links documents.Links, cause error) error {
	if applied, err := e.docs.SetLinksIfUnset(ctx, docID, links, documents.StatusNeedsReview); err != nil || !applied {
		// Last resort: at least park the status so the document surfaces.
		_ = e.docs.UpdateStatus(ctx, docID, documents.StatusNeedsReview)
	}
	return cause
}
