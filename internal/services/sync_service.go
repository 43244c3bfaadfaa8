package services

import (
	"context"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"go.uber.org/zap"
)

// SyncService owns one CollectionSyncer per collection.
type SyncService struct {
	Customers *CollectionSyncer[models.Customer]
	Products  *CollectionSyncer[models.Product]
	Orders    *CollectionSyncer[models.Order]
}

func NewSyncService(
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	store remote.Store,
	brk *breaker.Breaker,
	events *pubsub.Events,
	debounce time.Duration,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		Customers: NewCollectionSyncer(
			models.CollectionCustomers,
			customerRepo.GetAll,
			customerRepo.UpsertMany,
			store, brk, events.Customers, debounce, log,
		),
		Products: NewCollectionSyncer(
			models.CollectionProducts,
			productRepo.GetAll,
			productRepo.UpsertMany,
			store, brk, events.Products, debounce, log,
		),
		Orders: NewCollectionSyncer(
			models.CollectionOrders,
			orderRepo.GetAll,
			orderRepo.UpsertMany,
			store, brk, events.Orders, debounce, log,
		),
	}
}

func (s *SyncService) Start(ctx context.Context) error {
	if err := s.Customers.Start(ctx); err != nil {
		return err
	}
	if err := s.Products.Start(ctx); err != nil {
		return err
	}
	return s.Orders.Start(ctx)
}

func (s *SyncService) Stop() {
	s.Customers.Stop()
	s.Products.Stop()
	s.Orders.Stop()
}
