package journals

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry captures one balanced financial transaction. Entries are
// immutable once posted; a correction is a new entry.
type JournalEntry struct {
	ID           int64
	Number       string
	Date         time.Time
	Reference    string
	Memo         string
	SourceModule string
	SourceID     uuid.UUID
	PostedBy     int64
	PostedAt     time.Time
	CreatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount for an account. Exactly one of
// Debit/Credit is non-zero.
type JournalLine struct {
	ID        int64
	JournalID int64
	Account   string
	Memo      string
	Debit     float64
	Credit    float64
	CreatedAt time.Time
}
