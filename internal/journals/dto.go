package journals

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Balance validator sentinels.
var (
	ErrTooFewLines = errors.New("journals: entry requires at least two lines")
	ErrUnbalanced  = errors.New("journals: debits do not equal credits")
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	Account string
	Memo    string
	Debit   float64
	Credit  float64
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date         time.Time
	Reference    string
	Memo         string
	SourceModule string
	SourceID     uuid.UUID
	PostedBy     int64
	Lines        []PostingLineInput
}

// Validate ensures posting input meets minimum criteria, including the
// balance invariant: total debits equal total credits to the cent.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return errors.New("journals: date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.Account == "" {
			return fmt.Errorf("journals: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("journals: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("journals: line %d cannot be both debit and credit", idx)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("journals: line %d has no amount", idx)
		}
	}
	if !Balanced(in.Lines) {
		return ErrUnbalanced
	}
	if in.SourceModule == "" {
		return errors.New("journals: source module required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("journals: source id required")
	}
	return nil
}

// Balanced reports whether the line set sums to zero net, compared in the
// smallest currency unit.
func Balanced(lines []PostingLineInput) bool {
	var debit, credit int64
	for _, line := range lines {
		debit += Cents(line.Debit)
		credit += Cents(line.Credit)
	}
	return debit == credit
}

// Cents converts an amount to the smallest currency unit.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
