package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, mv Movement) (int64, error)
	Get(ctx context.Context, id int64) (Movement, error)
	UpdateStatus(ctx context.Context, id int64, from, to MovementStatus) error
	ListPostedBySKU(ctx context.Context, sku string) ([]Movement, error)
}

// NumberPort issues durable sequence numbers.
type NumberPort interface {
	Next(ctx context.Context, prefix string, date time.Time) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock movements and on-hand reads.
type Service struct {
	repo     RepositoryPort
	registry WarehouseLookup
	numbers  NumberPort
	audit    AuditPort
	cache    *Cache
	group    singleflight.Group
	now      func() time.Time
}

// NewService builds Service. Cache may be nil; reads then always recompute.
func NewService(repo RepositoryPort, registry WarehouseLookup, numbers NumberPort, audit AuditPort, cache *Cache) *Service {
	return &Service{repo: repo, registry: registry, numbers: numbers, audit: audit, cache: cache, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateDraft validates and stores a draft movement. Warehouse endpoints must
// resolve against the registry; party endpoints are taken as given.
func (s *Service) CreateDraft(ctx context.Context, input MovementInput) (Movement, error) {
	if input.SKU == "" {
		return Movement{}, errors.New("stock: sku required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return Movement{}, ErrInvalidUnitCost
	}
	if input.Source.IsZero() && input.Dest.IsZero() {
		return Movement{}, ErrMissingEndpoint
	}
	for _, ep := range []Endpoint{input.Source, input.Dest} {
		if !ep.IsWarehouse() {
			continue
		}
		ok, err := s.registry.IsWarehouse(ctx, ep.Code)
		if err != nil {
			return Movement{}, err
		}
		if !ok {
			return Movement{}, fmt.Errorf("%w: %s", ErrUnknownWarehouse, ep.Code)
		}
	}
	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	number, err := s.numbers.Next(ctx, "SM", date)
	if err != nil {
		return Movement{}, fmt.Errorf("stock: assign number: %w", err)
	}
	mv := Movement{
		Number:    number,
		Date:      date,
		SKU:       input.SKU,
		Qty:       input.Qty,
		UoM:       input.UoM,
		UnitCost:  input.UnitCost,
		Source:    input.Source,
		Dest:      input.Dest,
		Status:    MovementStatusDraft,
		RefModule: input.RefModule,
		RefID:     input.RefID,
	}
	id, err := s.repo.Insert(ctx, mv)
	if err != nil {
		return Movement{}, err
	}
	mv.ID = id
	return mv, nil
}

// Approve moves a draft movement to APPROVED.
func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, MovementStatusDraft, MovementStatusApproved)
}

// Post moves an approved movement to POSTED and invalidates the on-hand cache.
// Posted movements are immutable from here on.
func (s *Service) Post(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.UpdateStatus(ctx, id, MovementStatusApproved, MovementStatusPosted); err != nil {
		return err
	}
	if err := s.cache.Bump(ctx); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "stock.post",
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	return nil
}

// OnHand reconstructs the on-hand row for one sku from its posted movements.
// The recompute runs in full on every cache miss; concurrent reads for the
// same sku are collapsed through singleflight.
func (s *Service) OnHand(ctx context.Context, sku string) (OnHandRow, error) {
	if sku == "" {
		return OnHandRow{}, errors.New("stock: sku required")
	}
	return s.cache.FetchRow(ctx, sku, func(ctx context.Context) (OnHandRow, error) {
		v, err, _ := s.group.Do(sku, func() (any, error) {
			movements, err := s.repo.ListPostedBySKU(ctx, sku)
			if err != nil {
				return nil, err
			}
			return Aggregate(ctx, sku, movements, s.registry)
		})
		if err != nil {
			return OnHandRow{}, err
		}
		return v.(OnHandRow), nil
	})
}
