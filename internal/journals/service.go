package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context, limit int) ([]JournalEntry, error)
}

// NumberPort issues durable sequence numbers.
type NumberPort interface {
	Next(ctx context.Context, prefix string, date time.Time) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts journal entries. Entries it creates are immutable; there is no
// edit or delete path.
type Service struct {
	repo    RepositoryPort
	numbers NumberPort
	audit   AuditPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, numbers NumberPort, audit AuditPort) *Service {
	return &Service{repo: repo, numbers: numbers, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads one entry with lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent entries.
func (s *Service) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	return s.repo.List(ctx, limit)
}

// Post validates the input against the balance invariant and persists the
// entry with its lines in one transaction. An unbalanced entry is refused
// before anything is written.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	number, err := s.numbers.Next(ctx, "JE", input.Date)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journals: assign number: %w", err)
	}
	now := s.now().UTC()
	entry := JournalEntry{
		Number:       number,
		Date:         input.Date,
		Reference:    input.Reference,
		Memo:         input.Memo,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		PostedBy:     input.PostedBy,
		PostedAt:     now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertJournalEntry(ctx, entry)
		if err != nil {
			return err
		}
		lines := make([]JournalLine, 0, len(input.Lines))
		for _, line := range input.Lines {
			lines = append(lines, JournalLine{
				JournalID: id,
				Account:   line.Account,
				Memo:      line.Memo,
				Debit:     line.Debit,
				Credit:    line.Credit,
				CreatedAt: now,
			})
		}
		if err := tx.InsertJournalLines(ctx, id, lines); err != nil {
			return err
		}
		entry.ID = id
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		var total float64
		for _, line := range entry.Lines {
			total += line.Debit
		}
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.PostedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":        entry.Number,
				"source_module": entry.SourceModule,
				"source_id":     entry.SourceID.String(),
				"total":         FormatAmount(total),
			},
			At: now,
		})
	}
	return entry, nil
}
