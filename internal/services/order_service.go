package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/normalize"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService owns the order lifecycle. Saving an order resolves (or
// creates) its customer, bumps the order counter, decrements stock for
// every catalog line, and replays all of it remotely in one
// transaction so the remote side never sees a half-applied order.
// Local writes are per-store and not transactional across collections;
// the reconciliation tools correct a crash between them.
type OrderService struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	identity  *IdentityService
	sync      *SyncService
	store     remote.Store
	brk       *breaker.Breaker
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	identity *IdentityService,
	sync *SyncService,
	store remote.Store,
	brk *breaker.Breaker,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		customers: customers,
		products:  products,
		identity:  identity,
		sync:      sync,
		store:     store,
		brk:       brk,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// SaveOrder persists a new order. The customer snapshot fields
// (name/phone/address) must be set by the caller; CustomerID may be
// empty and is filled in from identity resolution.
func (s *OrderService) SaveOrder(ctx context.Context, order *models.Order) error {
	now := s.now()

	customer, err := s.identity.Resolve(order.CustomerPhone, order.CustomerAddress, order.CustomerID, order.CustomerName)
	if err != nil {
		return err
	}
	if customer == nil {
		customer = &models.Customer{
			ID:            DeriveCustomerID(order.CustomerName, order.CustomerPhone, order.CustomerAddress),
			Name:          order.CustomerName,
			Phone:         normalize.Phone(order.CustomerPhone),
			Address:       order.CustomerAddress,
			PriorityScore: models.UnrankedPriority,
			CreatedAt:     now,
		}
	}
	lastOrder := now
	customer.OrderCount++
	customer.LastOrderAt = &lastOrder
	customer.UpdatedAt = now

	if order.ID == "" {
		order.ID = s.newID()
	}
	order.CustomerID = customer.ID
	if order.Status == "" {
		order.Status = string(models.OrderPending)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	// Compensating local stock decrements for catalog lines. Quantities
	// are summed per product first so an order listing the same product
	// on several lines decrements it exactly once.
	deltas := make(map[string]int)
	var productIDs []string
	firstItem := make(map[string]models.OrderItem)
	for _, item := range order.Items {
		if item.ProductID == "" || item.Quantity == 0 {
			continue
		}
		if _, ok := deltas[item.ProductID]; !ok {
			productIDs = append(productIDs, item.ProductID)
			firstItem[item.ProductID] = item
		}
		deltas[item.ProductID] += item.Quantity
	}

	var touched []models.Product
	for _, id := range productIDs {
		p, err := s.products.GetByID(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First reference creates the product.
			first := firstItem[id]
			p = &models.Product{
				ID:        id,
				Name:      first.Name,
				ListPrice: first.UnitPrice,
				CreatedAt: now,
			}
		} else if err != nil {
			return fmt.Errorf("product %s: %w", id, err)
		}
		p.StockQuantity -= deltas[id]
		p.UpdatedAt = now
		touched = append(touched, *p)
	}

	if err := s.customers.UpsertMany([]models.Customer{*customer}); err != nil {
		return err
	}
	if err := s.products.UpsertMany(touched); err != nil {
		return err
	}
	if err := s.orders.UpsertMany([]models.Order{*order}); err != nil {
		return err
	}
	s.sync.Customers.ApplyLocal(*customer)
	s.sync.Products.ApplyLocal(touched...)
	s.sync.Orders.ApplyLocal(*order)

	if err := s.pushOrderTxn(ctx, order, customer, touched, deltas, now); err != nil {
		s.log.Warn("order saved locally only", zap.String("order", order.ID), zap.Error(err))
	}
	return nil
}

// pushOrderTxn writes the order, the customer and every stock
// decrement in a single remote transaction.
func (s *OrderService) pushOrderTxn(ctx context.Context, order *models.Order, customer *models.Customer, touched []models.Product, deltas map[string]int, now time.Time) error {
	refs := []remote.Ref{
		{Collection: models.CollectionOrders, ID: order.ID},
		{Collection: models.CollectionCustomers, ID: customer.ID},
	}
	for _, p := range touched {
		refs = append(refs, remote.Ref{Collection: models.CollectionProducts, ID: p.ID})
	}

	return s.brk.Guard(ctx, "orders.save", func(ctx context.Context) error {
		return s.store.RunTransaction(ctx, refs, func(tx remote.Tx) error {
			for _, local := range touched {
				ref := remote.Ref{Collection: models.CollectionProducts, ID: local.ID}
				doc, err := tx.Get(ref)
				if err != nil {
					return err
				}
				// The remote copy may already carry other clients'
				// adjustments; apply this order's summed delta on top of
				// it. An unknown product gets the local copy.
				out := local
				if doc != nil {
					var remoteCopy models.Product
					if err := decodeDoc(doc, &remoteCopy); err != nil {
						return err
					}
					remoteCopy.StockQuantity -= deltas[local.ID]
					remoteCopy.UpdatedAt = now
					out = remoteCopy
				}
				tx.Put(models.CollectionProducts, DocOf(out))
			}
			tx.Put(models.CollectionCustomers, DocOf(*customer))
			tx.Put(models.CollectionOrders, DocOf(*order))
			return nil
		})
	})
}

// ForCustomer returns the customer's order history from the durable
// store, newest first.
func (s *OrderService) ForCustomer(customerID string) ([]models.Order, error) {
	return s.orders.GetByCustomerID(customerID)
}

// InBatch returns every order tagged with the given delivery batch.
func (s *OrderService) InBatch(batch string) ([]models.Order, error) {
	return s.orders.GetByBatch(batch)
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(o *models.Order) {
		o.Status = status
	})
}

func (s *OrderService) SetPayment(ctx context.Context, orderID, method string, verified bool) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(o *models.Order) {
		o.PaymentMethod = method
		o.PaymentVerified = verified
	})
}

// MarkReminded bumps the reminder counter; actually delivering the
// reminder is the notification collaborator's job.
func (s *OrderService) MarkReminded(ctx context.Context, orderID string) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(o *models.Order) {
		o.ReminderCount++
	})
}

func (s *OrderService) mutate(ctx context.Context, orderID string, fn func(*models.Order)) (*models.Order, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	fn(order)
	order.UpdatedAt = s.now()

	if err := s.orders.UpsertMany([]models.Order{*order}); err != nil {
		return nil, err
	}
	s.sync.Orders.ApplyLocal(*order)

	if err := s.brk.Guard(ctx, "orders.update", func(ctx context.Context) error {
		return s.store.Put(ctx, models.CollectionOrders, DocOf(*order))
	}); err != nil {
		s.log.Warn("order updated locally only", zap.String("order", orderID), zap.Error(err))
	}
	return order, nil
}

// DeleteOrder removes an order and gives the linked customer its
// counter back. Stock is not restored here; the reconciliation tool
// recomputes it from history.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return err
	}

	if err := s.orders.Delete(orderID); err != nil {
		return err
	}
	s.sync.Orders.RemoveLocal(orderID)

	var customer *models.Customer
	if order.CustomerID != "" {
		customer, err = s.customers.GetByID(order.CustomerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if customer != nil {
			if customer.OrderCount > 0 {
				customer.OrderCount--
			}
			customer.UpdatedAt = s.now()
			if err := s.customers.UpsertMany([]models.Customer{*customer}); err != nil {
				return err
			}
			s.sync.Customers.ApplyLocal(*customer)
		}
	}

	if err := s.brk.Guard(ctx, "orders.delete", func(ctx context.Context) error {
		if err := s.store.Delete(ctx, models.CollectionOrders, orderID); err != nil {
			return err
		}
		if customer != nil {
			return s.store.Put(ctx, models.CollectionCustomers, DocOf(*customer))
		}
		return nil
	}); err != nil {
		s.log.Warn("order deleted locally only", zap.String("order", orderID), zap.Error(err))
	}
	return nil
}
