package services

import (
	"context"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"go.uber.org/zap"
)

// PriorityService learns customer visiting priorities from a realized
// route: a single backward pass pushes each customer's score below its
// successor's only where the current ordering is violated, so ranks of
// customers outside the observed sequence never move.
type PriorityService struct {
	customers repository.CustomerRepository
	identity  *IdentityService
	syncer    *CollectionSyncer[models.Customer]
	store     remote.Store
	brk       *breaker.Breaker
	log       *zap.Logger
	now       func() time.Time
}

func NewPriorityService(
	customers repository.CustomerRepository,
	identity *IdentityService,
	syncer *CollectionSyncer[models.Customer],
	store remote.Store,
	brk *breaker.Breaker,
	log *zap.Logger,
) *PriorityService {
	return &PriorityService{
		customers: customers,
		identity:  identity,
		syncer:    syncer,
		store:     store,
		brk:       brk,
		log:       log,
		now:       time.Now,
	}
}

// LearnRouteOrder adjusts priority scores so the customers of the given
// orders would sort in exactly this visiting order. Returns the number
// of customers whose score changed.
func (s *PriorityService) LearnRouteOrder(ctx context.Context, orders []models.Order) (int, error) {
	// First-seen, deduplicated customer sequence.
	var ids []string
	seen := make(map[string]bool)
	byID := make(map[string]*models.Customer)
	for _, o := range orders {
		c, err := s.identity.Resolve(o.CustomerPhone, o.CustomerAddress, o.CustomerID, o.CustomerName)
		if err != nil {
			return 0, err
		}
		if c == nil || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	if len(ids) < 2 {
		return 0, nil // nothing to learn from a single stop
	}

	// Backward ripple: each correction only touches entries not yet
	// finalized in this pass, so one pass restores strict ordering.
	mutated := make(map[string]bool)
	for i := len(ids) - 2; i >= 0; i-- {
		current, next := byID[ids[i]], byID[ids[i+1]]
		if current.PriorityScore >= next.PriorityScore {
			current.PriorityScore = next.PriorityScore - 1
			mutated[current.ID] = true
		}
	}
	if len(mutated) == 0 {
		return 0, nil
	}

	now := s.now()
	changed := make([]models.Customer, 0, len(mutated))
	for id := range mutated {
		c := byID[id]
		c.UpdatedAt = now
		changed = append(changed, *c)
	}

	if err := s.customers.UpsertMany(changed); err != nil {
		return 0, err
	}
	s.syncer.ApplyLocal(changed...)
	s.identity.Invalidate()

	if err := s.brk.Guard(ctx, "priority.push", func(ctx context.Context) error {
		return s.store.BatchPut(ctx, models.CollectionCustomers, DocsOf(changed))
	}); err != nil {
		s.log.Warn("priority scores saved locally only", zap.Error(err))
	}

	s.log.Info("route priorities learned",
		zap.Int("stops", len(ids)), zap.Int("adjusted", len(changed)))
	return len(changed), nil
}
