package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/normalize"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type env struct {
	customers repository.CustomerRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	events    *pubsub.Events
	brk       *breaker.Breaker
	store     remote.Store
	sync      *SyncService
	identity  *IdentityService
	orderSvc  *OrderService
	stock     *StockService
	priority  *PriorityService
	dedup     *DedupService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{}, &models.Product{}, &models.Order{}, &models.Setting{},
	))

	log := zap.NewNop()
	e := &env{
		customers: repository.NewCustomerRepository(db),
		products:  repository.NewProductRepository(db),
		orders:    repository.NewOrderRepository(db),
		events:    pubsub.NewEvents(),
		store:     remote.NewMemoryStore(),
	}
	e.brk = breaker.New(repository.NewSettingsRepository(db), e.events, log)
	e.sync = NewSyncService(e.customers, e.products, e.orders, e.store, e.brk, e.events, 50*time.Millisecond, log)
	e.identity = NewIdentityService(e.customers, normalize.TokenOverlap{}, e.events, log)
	e.orderSvc = NewOrderService(e.orders, e.customers, e.products, e.identity, e.sync, e.store, e.brk, log)
	e.stock = NewStockService(e.products, e.sync.Products, e.store, e.brk, log)
	e.priority = NewPriorityService(e.customers, e.identity, e.sync.Customers, e.store, e.brk, log)
	e.dedup = NewDedupService(e.customers, e.products, e.orders, e.sync, e.store, e.brk, log)
	return e
}

func (e *env) start(t *testing.T) {
	t.Helper()
	require.NoError(t, e.sync.Start(context.Background()))
	t.Cleanup(e.sync.Stop)
}

func (e *env) seedCustomers(t *testing.T, customers ...models.Customer) {
	t.Helper()
	require.NoError(t, e.customers.UpsertMany(customers))
	e.identity.Invalidate()
}

func (e *env) seedProducts(t *testing.T, products ...models.Product) {
	t.Helper()
	require.NoError(t, e.products.UpsertMany(products))
}

func (e *env) seedOrders(t *testing.T, orders ...models.Order) {
	t.Helper()
	require.NoError(t, e.orders.UpsertMany(orders))
}

func remoteCustomer(t *testing.T, store remote.Store, id string) models.Customer {
	t.Helper()
	doc, err := store.Get(context.Background(), models.CollectionCustomers, id)
	require.NoError(t, err)
	var c models.Customer
	require.NoError(t, json.Unmarshal(doc.Data, &c))
	return c
}

func remoteProduct(t *testing.T, store remote.Store, id string) models.Product {
	t.Helper()
	doc, err := store.Get(context.Background(), models.CollectionProducts, id)
	require.NoError(t, err)
	var p models.Product
	require.NoError(t, json.Unmarshal(doc.Data, &p))
	return p
}

func at(minutesAgo int) time.Time {
	return time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
}

// quotaErr carries the exhaustion signature the breaker trips on.
func quotaErr() error {
	return errors.New("quota exceeded")
}
