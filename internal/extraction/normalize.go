// Package extraction reconciles raw OCR/LLM output into the canonical
// extracted record. Normalization fails softly: a document that cannot be
// reconciled keeps whatever partial data exists and simply does not advance.
package extraction

import (
	"math"
	"strings"
	"time"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
)

// amountTolerance is the per-line rounding tolerance in currency units.
const amountTolerance = 0.01

// RawTotals mirrors the upstream totals block.
type RawTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	TotalInc float64 `json:"totalInc"`
}

// RawLine is one extracted line item as the recognizer produced it. Any field
// may be missing.
type RawLine struct {
	SKU         string   `json:"sku"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Qty         float64  `json:"qty"`
	UoM         string   `json:"uom"`
	UnitPrice   float64  `json:"unitPrice"`
	Net         float64  `json:"net"`
	Tax         float64  `json:"tax"`
	Gross       float64  `json:"gross"`
	TaxRate     *float64 `json:"taxRate,omitempty"`
}

// RawDocument is the extraction input object consumed from the recognition
// collaborator.
type RawDocument struct {
	SupplierName  string    `json:"supplierName"`
	SupplierTaxID string    `json:"supplierTaxId"`
	DocNumber     string    `json:"docNumber"`
	OrderNumber   string    `json:"orderNumber"`
	Date          string    `json:"date"`
	Currency      string    `json:"currency"`
	TaxMode       string    `json:"taxMode"`
	TaxRate       float64   `json:"taxRate"`
	Total         float64   `json:"total"` // legacy single-field gross
	Totals        RawTotals `json:"totals"`
	Lines         []RawLine `json:"lines"`
}

// Result carries the canonical record plus whether the data supports
// advancing the document to PARSED.
type Result struct {
	Extracted documents.Extracted
	Complete  bool
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006", "01/02/2006"}

// Normalize reconciles the raw fields into a canonical record. It never
// returns an error; inconsistencies are recorded as flags for human review.
func Normalize(raw RawDocument) Result {
	out := documents.Extracted{
		SupplierName:  strings.TrimSpace(raw.SupplierName),
		SupplierTaxID: strings.TrimSpace(raw.SupplierTaxID),
		DocNumber:     strings.TrimSpace(raw.DocNumber),
		OrderNumber:   strings.TrimSpace(raw.OrderNumber),
		Currency:      strings.ToUpper(strings.TrimSpace(raw.Currency)),
		TaxRate:       raw.TaxRate,
	}

	switch strings.ToLower(strings.TrimSpace(raw.TaxMode)) {
	case "inclusive":
		out.TaxMode = documents.TaxInclusive
	case "exclusive", "":
		out.TaxMode = documents.TaxExclusive
	default:
		out.TaxMode = documents.TaxExclusive
		out.Flags = append(out.Flags, "tax_mode_defaulted")
	}

	if raw.Date != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw.Date); err == nil {
				out.Date = t.UTC()
				break
			}
		}
		if out.Date.IsZero() {
			out.Flags = append(out.Flags, "date_unparseable")
		}
	}

	for _, rawLine := range raw.Lines {
		out.Lines = append(out.Lines, normalizeLine(rawLine, out.TaxMode, out.TaxRate))
	}

	// The two legal tax representations: totals.totalInc is authoritative;
	// the legacy single-field total is mirrored in only when totalInc is zero.
	out.Totals = documents.Totals{
		Subtotal: round2(raw.Totals.Subtotal),
		Tax:      round2(raw.Totals.Tax),
		TotalInc: round2(raw.Totals.TotalInc),
	}
	if out.Totals.TotalInc == 0 && raw.Total != 0 {
		out.Totals.TotalInc = round2(raw.Total)
	}

	var sumNet, sumTax, sumGross float64
	for _, line := range out.Lines {
		sumNet += line.Net
		sumTax += line.Tax
		sumGross += line.Gross
	}
	sumNet, sumTax, sumGross = round2(sumNet), round2(sumTax), round2(sumGross)
	if out.Totals.Subtotal == 0 {
		out.Totals.Subtotal = sumNet
	} else if math.Abs(out.Totals.Subtotal-sumNet) > amountTolerance {
		out.Flags = append(out.Flags, "subtotal_mismatch")
	}
	if out.Totals.Tax == 0 {
		out.Totals.Tax = sumTax
	} else if math.Abs(out.Totals.Tax-sumTax) > amountTolerance {
		out.Flags = append(out.Flags, "tax_total_mismatch")
	}
	if out.Totals.TotalInc == 0 {
		out.Totals.TotalInc = sumGross
	} else if len(out.Lines) > 0 && math.Abs(out.Totals.TotalInc-sumGross) > amountTolerance {
		out.Flags = append(out.Flags, "total_mismatch")
	}

	complete := len(out.Lines) > 0 && out.Totals.TotalInc > 0
	return Result{Extracted: out, Complete: complete}
}

// normalizeLine recomputes net/tax/gross so that gross = net + tax and
// tax = net * rate hold, flagging supplied values that disagree beyond the
// rounding tolerance.
func normalizeLine(raw RawLine, mode documents.TaxMode, docRate float64) documents.Line {
	line := documents.Line{
		SKU:             strings.TrimSpace(raw.SKU),
		Description:     strings.TrimSpace(raw.Description),
		Qty:             raw.Qty,
		UoM:             strings.TrimSpace(raw.UoM),
		UnitPrice:       raw.UnitPrice,
		TaxRateOverride: raw.TaxRate,
	}

	rate := docRate
	if raw.TaxRate != nil {
		rate = *raw.TaxRate
	}

	var net float64
	switch {
	case raw.Qty != 0 && raw.UnitPrice != 0:
		base := raw.Qty * raw.UnitPrice
		if mode == documents.TaxInclusive && rate > -1 {
			net = base / (1 + rate)
		} else {
			net = base
		}
	case raw.Net != 0:
		net = raw.Net
	case raw.Gross != 0 && rate > -1:
		net = raw.Gross / (1 + rate)
	}
	net = round2(net)
	tax := round2(net * rate)
	gross := round2(net + tax)

	if raw.Net != 0 && math.Abs(raw.Net-net) > amountTolerance {
		line.Flags = append(line.Flags, "net_mismatch")
	}
	if raw.Tax != 0 && math.Abs(raw.Tax-tax) > amountTolerance {
		line.Flags = append(line.Flags, "tax_mismatch")
	}
	if raw.Gross != 0 && math.Abs(raw.Gross-gross) > amountTolerance {
		line.Flags = append(line.Flags, "gross_mismatch")
	}

	line.Net = net
	line.Tax = tax
	line.Gross = gross

	switch strings.ToLower(strings.TrimSpace(raw.Category)) {
	case "inventory":
		line.Category = documents.CategoryInventory
	case "service":
		line.Category = documents.CategoryService
	case "expense":
		line.Category = documents.CategoryExpense
	default:
		if line.SKU != "" {
			line.Category = documents.CategoryInventory
		} else {
			line.Category = documents.CategoryExpense
		}
	}
	return line
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
