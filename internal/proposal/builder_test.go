package proposal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/journals"
)

var testAccounts = Accounts{Inventory: "1400", Expense: "6000", Payable: "2100"}

func parsedDoc() documents.Document {
	return documents.Document{
		ID:     uuid.New(),
		Number: "DOC-20260315-0001",
		Type:   documents.TypeInvoice,
		Status: documents.StatusParsed,
		Extracted: &documents.Extracted{
			SupplierName: "Acme Industrial",
			DocNumber:    "INV-9001",
			Date:         time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			Currency:     "EUR",
			TaxMode:      documents.TaxExclusive,
			TaxRate:      0.25,
			Totals:       documents.Totals{Subtotal: 1000, Tax: 250, TotalInc: 1250},
			Lines: []documents.Line{
				{SKU: "WIDGET", Category: documents.CategoryInventory, Qty: 10, UoM: "pcs", Net: 800, Tax: 200, Gross: 1000},
				{Description: "Freight", Category: documents.CategoryService, Net: 200, Tax: 50, Gross: 250},
			},
		},
	}
}

func TestBuildBalancedProposal(t *testing.T) {
	builder := NewBuilder(testAccounts)
	prop, err := builder.Build(parsedDoc())
	require.NoError(t, err)
	require.NotNil(t, prop.Journal)

	lines := prop.Journal.Lines
	require.Len(t, lines, 3)
	require.Equal(t, "1400", lines[0].Account)
	require.InDelta(t, 1000.0, lines[0].Debit, 1e-9)
	require.Equal(t, "6000", lines[1].Account)
	require.InDelta(t, 250.0, lines[1].Debit, 1e-9)
	require.Equal(t, "2100", lines[2].Account)
	require.InDelta(t, 1250.0, lines[2].Credit, 1e-9)

	var debit, credit int64
	for _, line := range lines {
		debit += journals.Cents(line.Debit)
		credit += journals.Cents(line.Credit)
	}
	require.Equal(t, debit, credit)

	require.Equal(t, "INV-9001", prop.Journal.Reference)
	require.Contains(t, prop.Journal.Memo, "INV-9001")
	require.Contains(t, prop.Journal.Memo, "1,250.00")
	require.Contains(t, prop.Journal.Memo, "EUR")

	require.Len(t, prop.StockMoves, 1)
	mv := prop.StockMoves[0]
	require.Equal(t, "WIDGET", mv.SKU)
	require.InDelta(t, 10.0, mv.Qty, 1e-9)
	require.InDelta(t, 80.0, mv.UnitCost, 1e-9)
	require.Empty(t, mv.DestWarehouse)
}

func TestBuildRequiresParsedData(t *testing.T) {
	builder := NewBuilder(testAccounts)

	doc := parsedDoc()
	doc.Status = documents.StatusClassified
	_, err := builder.Build(doc)
	require.ErrorIs(t, err, documents.ErrNotParsed)

	doc = parsedDoc()
	doc.Extracted = nil
	_, err = builder.Build(doc)
	require.ErrorIs(t, err, documents.ErrNotParsed)
}

func TestBuildNoProposalOnZeroGross(t *testing.T) {
	builder := NewBuilder(testAccounts)

	doc := parsedDoc()
	doc.Extracted.Totals.TotalInc = 0
	_, err := builder.Build(doc)
	require.ErrorIs(t, err, ErrNoProposal)

	doc = parsedDoc()
	doc.Extracted.Totals.TotalInc = -100
	_, err = builder.Build(doc)
	require.ErrorIs(t, err, ErrNoProposal)
}

func TestBuildNoProposalWhenInventoryExceedsTotal(t *testing.T) {
	builder := NewBuilder(testAccounts)
	doc := parsedDoc()
	doc.Extracted.Totals.TotalInc = 500
	_, err := builder.Build(doc)
	require.ErrorIs(t, err, ErrNoProposal)
}

func TestBuildExpenseOnlyDocument(t *testing.T) {
	builder := NewBuilder(testAccounts)
	doc := parsedDoc()
	doc.Extracted.Lines = []documents.Line{
		{Description: "Audit services", Category: documents.CategoryService, Net: 1000, Tax: 250, Gross: 1250},
	}
	prop, err := builder.Build(doc)
	require.NoError(t, err)
	require.Len(t, prop.Journal.Lines, 2)
	require.Equal(t, "6000", prop.Journal.Lines[0].Account)
	require.InDelta(t, 1250.0, prop.Journal.Lines[0].Debit, 1e-9)
	require.Empty(t, prop.StockMoves)
}

func TestBuildSkipsZeroQtyInventoryLines(t *testing.T) {
	builder := NewBuilder(testAccounts)
	doc := parsedDoc()
	doc.Extracted.Lines = append(doc.Extracted.Lines, documents.Line{
		SKU: "SAMPLE", Category: documents.CategoryInventory, Qty: 0, Net: 0, Gross: 0,
	})
	prop, err := builder.Build(doc)
	require.NoError(t, err)
	require.Len(t, prop.StockMoves, 1)
}

func TestBuildFallsBackToDocumentNumber(t *testing.T) {
	builder := NewBuilder(testAccounts)
	builder.WithNow(func() time.Time {
		return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	})
	doc := parsedDoc()
	doc.Extracted.DocNumber = ""
	doc.Extracted.Date = time.Time{}
	prop, err := builder.Build(doc)
	require.NoError(t, err)
	require.Equal(t, doc.Number, prop.Journal.Reference)
	require.Equal(t, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), prop.Journal.Date)
}
