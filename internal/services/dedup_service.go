package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/normalize"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"go.uber.org/zap"
)

// DedupService holds the batch maintenance jobs: merging customers that
// share a phone, splitting customers whose id collects orders under
// unrelated names, and recomputing stock from order history. All three
// are idempotent and safe to re-run.
type DedupService struct {
	customers repository.CustomerRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	sync      *SyncService
	store     remote.Store
	brk       *breaker.Breaker
	log       *zap.Logger
	now       func() time.Time
}

func NewDedupService(
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	sync *SyncService,
	store remote.Store,
	brk *breaker.Breaker,
	log *zap.Logger,
) *DedupService {
	return &DedupService{
		customers: customers,
		products:  products,
		orders:    orders,
		sync:      sync,
		store:     store,
		brk:       brk,
		log:       log,
		now:       time.Now,
	}
}

// MergeByPhone collapses customers sharing a normalized phone into the
// one with the most orders, re-pointing their orders and summing the
// counters. Returns the number of customers removed.
func (s *DedupService) MergeByPhone(ctx context.Context) (int, error) {
	all, err := s.customers.GetAll()
	if err != nil {
		return 0, err
	}
	orders, err := s.orders.GetAll()
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]models.Customer)
	for _, c := range all {
		phone := normalize.Phone(c.Phone)
		if len(phone) < normalize.MinPhoneLen {
			continue
		}
		groups[phone] = append(groups[phone], c)
	}

	now := s.now()
	var keep []models.Customer
	var drop []string
	var repointed []models.Order

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].OrderCount != group[j].OrderCount {
				return group[i].OrderCount > group[j].OrderCount
			}
			return group[i].ID < group[j].ID
		})
		primary := group[0]

		total := primary.OrderCount
		dropped := make(map[string]bool, len(group)-1)
		for _, other := range group[1:] {
			total += other.OrderCount
			dropped[other.ID] = true
			drop = append(drop, other.ID)
		}
		for _, o := range orders {
			if dropped[o.CustomerID] {
				o.CustomerID = primary.ID
				o.UpdatedAt = now
				repointed = append(repointed, o)
			}
		}
		primary.OrderCount = total
		primary.UpdatedAt = now
		keep = append(keep, primary)
	}
	if len(drop) == 0 {
		return 0, nil
	}

	if err := s.customers.UpsertMany(keep); err != nil {
		return 0, err
	}
	if err := s.customers.Delete(drop...); err != nil {
		return 0, err
	}
	if err := s.orders.UpsertMany(repointed); err != nil {
		return 0, err
	}
	s.sync.Customers.ApplyLocal(keep...)
	s.sync.Customers.RemoveLocal(drop...)
	s.sync.Orders.ApplyLocal(repointed...)

	if err := s.brk.Guard(ctx, "dedup.merge", func(ctx context.Context) error {
		if err := s.store.BatchPut(ctx, models.CollectionCustomers, DocsOf(keep)); err != nil {
			return err
		}
		if err := s.store.BatchDelete(ctx, models.CollectionCustomers, drop); err != nil {
			return err
		}
		return s.store.BatchPut(ctx, models.CollectionOrders, DocsOf(repointed))
	}); err != nil {
		s.log.Warn("customer merge applied locally only", zap.Error(err))
	}

	s.log.Info("customers merged by phone", zap.Int("removed", len(drop)))
	return len(drop), nil
}

// SplitByNameCollision finds customer ids collecting orders under more
// than one normalized name (hash collisions, shared phones typed into
// the wrong record). The dominant name keeps the id; every minority
// name group gets a fresh suffixed id and its own customer. Returns
// the number of customers created.
func (s *DedupService) SplitByNameCollision(ctx context.Context) (int, error) {
	all, err := s.customers.GetAll()
	if err != nil {
		return 0, err
	}
	orders, err := s.orders.GetAll()
	if err != nil {
		return 0, err
	}

	byID := make(map[string]models.Customer, len(all))
	taken := make(map[string]bool, len(all))
	for _, c := range all {
		byID[c.ID] = c
		taken[c.ID] = true
	}

	// customer id -> normalized name -> its orders
	byName := make(map[string]map[string][]int)
	for i, o := range orders {
		if o.CustomerID == "" {
			continue
		}
		key := normalize.Key(o.CustomerName)
		if key == "" {
			continue
		}
		if byName[o.CustomerID] == nil {
			byName[o.CustomerID] = make(map[string][]int)
		}
		byName[o.CustomerID][key] = append(byName[o.CustomerID][key], i)
	}

	now := s.now()
	var created []models.Customer
	var updated []models.Customer
	var repointed []models.Order

	for cid, nameGroups := range byName {
		if len(nameGroups) < 2 {
			continue
		}
		original, ok := byID[cid]
		if !ok {
			continue
		}

		// Dominant name group keeps the original id.
		keys := make([]string, 0, len(nameGroups))
		for key := range nameGroups {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := nameGroups[keys[i]], nameGroups[keys[j]]
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return keys[i] < keys[j]
		})

		moved := 0
		for _, key := range keys[1:] {
			idxs := nameGroups[key]
			first := orders[idxs[0]]

			newID := nextFreeID(cid, taken)
			taken[newID] = true

			split := models.Customer{
				ID:            newID,
				Name:          first.CustomerName,
				Phone:         normalize.Phone(first.CustomerPhone),
				Address:       first.CustomerAddress,
				OrderCount:    len(idxs),
				PriorityScore: models.UnrankedPriority,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			created = append(created, split)

			for _, i := range idxs {
				orders[i].CustomerID = newID
				orders[i].UpdatedAt = now
				repointed = append(repointed, orders[i])
			}
			moved += len(idxs)
		}

		original.OrderCount -= moved
		if original.OrderCount < 0 {
			original.OrderCount = 0
		}
		original.UpdatedAt = now
		updated = append(updated, original)
	}
	if len(created) == 0 {
		return 0, nil
	}

	upserts := append(append([]models.Customer{}, updated...), created...)
	if err := s.customers.UpsertMany(upserts); err != nil {
		return 0, err
	}
	if err := s.orders.UpsertMany(repointed); err != nil {
		return 0, err
	}
	s.sync.Customers.ApplyLocal(upserts...)
	s.sync.Orders.ApplyLocal(repointed...)

	if err := s.brk.Guard(ctx, "dedup.split", func(ctx context.Context) error {
		if err := s.store.BatchPut(ctx, models.CollectionCustomers, DocsOf(upserts)); err != nil {
			return err
		}
		return s.store.BatchPut(ctx, models.CollectionOrders, DocsOf(repointed))
	}); err != nil {
		s.log.Warn("customer split applied locally only", zap.Error(err))
	}

	s.log.Info("colliding customers split", zap.Int("created", len(created)))
	return len(created), nil
}

// nextFreeID appends -2, -3, ... to the base id until unused.
func nextFreeID(base string, taken map[string]bool) string {
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s-%d", base, n)
		if !taken[id] {
			return id
		}
	}
}

// RecalculateStock rebuilds every product's stock from first
// principles: total imported (from the import history, falling back to
// stock+sold for legacy products without one) minus quantities sold in
// non-cancelled orders. Only discrepant products are written back.
func (s *DedupService) RecalculateStock(ctx context.Context) (int, error) {
	products, err := s.products.GetAll()
	if err != nil {
		return 0, err
	}
	orders, err := s.orders.GetAll()
	if err != nil {
		return 0, err
	}

	sold := make(map[string]int)
	for _, o := range orders {
		if o.Status == string(models.OrderCancelled) {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID != "" {
				sold[item.ProductID] += item.Quantity
			}
		}
	}

	now := s.now()
	var fixed []models.Product
	for _, p := range products {
		soldQty := sold[p.ID]

		totalImported := 0
		if len(p.ImportRecords) > 0 {
			for _, rec := range p.ImportRecords {
				totalImported += rec.Quantity
			}
		} else {
			totalImported = p.StockQuantity + soldQty // legacy fallback
		}

		stock := totalImported - soldQty
		if stock < 0 {
			stock = 0
		}
		if stock == p.StockQuantity && totalImported == p.TotalImported {
			continue
		}
		p.StockQuantity = stock
		p.TotalImported = totalImported
		p.UpdatedAt = now
		fixed = append(fixed, p)
	}
	if len(fixed) == 0 {
		return 0, nil
	}

	if err := s.products.UpsertMany(fixed); err != nil {
		return 0, err
	}
	s.sync.Products.ApplyLocal(fixed...)

	if err := s.brk.Guard(ctx, "dedup.restock", func(ctx context.Context) error {
		return s.store.BatchPut(ctx, models.CollectionProducts, DocsOf(fixed))
	}); err != nil {
		s.log.Warn("stock recalculation applied locally only", zap.Error(err))
	}

	s.log.Info("stock recalculated", zap.Int("corrected", len(fixed)))
	return len(fixed), nil
}
