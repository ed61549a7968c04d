// Package proposal turns a normalized document into a draft journal and draft
// stock movements. Building is a pure recompute: a rebuild replaces any
// earlier proposal instead of appending to it.
package proposal

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/journals"
)

// Accounts names the ledger accounts the builder posts against.
type Accounts struct {
	Inventory string
	Expense   string
	Payable   string
}

// ErrNoProposal indicates no balanced journal can be constructed from the
// extracted data. The document stays at PARSED; this is not a failure.
var ErrNoProposal = errors.New("proposal: balanced journal cannot be constructed")

// Builder constructs proposals.
type Builder struct {
	accounts Accounts
	now      func() time.Time
}

// NewBuilder builds Builder.
func NewBuilder(accounts Accounts) *Builder {
	return &Builder{accounts: accounts, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (b *Builder) WithNow(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// Build derives a fresh proposal from the document's extracted record. The
// returned journal satisfies the balance invariant before it is handed back;
// when that cannot be met the builder returns ErrNoProposal rather than
// fabricate a balancing line.
func (b *Builder) Build(doc documents.Document) (*documents.Proposal, error) {
	if doc.Status.Rank() < documents.StatusParsed.Rank() || doc.Extracted == nil {
		return nil, documents.ErrNotParsed
	}
	ext := doc.Extracted

	totalInc := ext.Totals.TotalInc
	if journals.Cents(totalInc) <= 0 {
		return nil, ErrNoProposal
	}

	var inventoryGross float64
	for _, line := range ext.Lines {
		if line.Category == documents.CategoryInventory {
			inventoryGross += line.Gross
		}
	}
	expenseGross := float64(journals.Cents(totalInc)-journals.Cents(inventoryGross)) / 100
	if journals.Cents(expenseGross) < 0 {
		// Inventory lines exceed the document total; the extraction is
		// inconsistent and a human has to correct it first.
		return nil, ErrNoProposal
	}

	date := ext.Date
	if date.IsZero() {
		date = b.now().UTC()
	}
	reference := ext.DocNumber
	if reference == "" {
		reference = doc.Number
	}
	memo := fmt.Sprintf("Supplier invoice %s (%s %s)", reference, journals.FormatAmount(totalInc), ext.Currency)

	var lines []documents.DraftLine
	if journals.Cents(inventoryGross) > 0 {
		lines = append(lines, documents.DraftLine{
			Account: b.accounts.Inventory,
			Memo:    "Goods received",
			Debit:   round2(inventoryGross),
		})
	}
	if journals.Cents(expenseGross) > 0 {
		lines = append(lines, documents.DraftLine{
			Account: b.accounts.Expense,
			Memo:    "Services and expenses",
			Debit:   expenseGross,
		})
	}
	lines = append(lines, documents.DraftLine{
		Account: b.accounts.Payable,
		Memo:    fmt.Sprintf("Payable to %s", ext.SupplierName),
		Credit:  round2(totalInc),
	})
	if !journals.Balanced(toPostingLines(lines)) {
		return nil, ErrNoProposal
	}

	prop := &documents.Proposal{
		Journal: &documents.DraftJournal{
			Date:      date,
			Reference: reference,
			Memo:      memo,
			Lines:     lines,
		},
	}

	for _, line := range ext.Lines {
		if line.Category != documents.CategoryInventory || line.Qty <= 0 {
			continue
		}
		prop.StockMoves = append(prop.StockMoves, documents.DraftMove{
			Date:     date,
			SKU:      line.SKU,
			Qty:      line.Qty,
			UoM:      line.UoM,
			UnitCost: round2(line.Net / line.Qty),
			// DestWarehouse stays empty; the routing step assigns warehouses.
		})
	}
	return prop, nil
}

// toPostingLines adapts draft lines for the journal balance validator.
func toPostingLines(lines []documents.DraftLine) []journals.PostingLineInput {
	out := make([]journals.PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, journals.PostingLineInput{
			Account: line.Account,
			Memo:    line.Memo,
			Debit:   line.Debit,
			Credit:  line.Credit,
		})
	}
	return out
}

func round2(v float64) float64 {
	return float64(journals.Cents(v)) / 100
}
