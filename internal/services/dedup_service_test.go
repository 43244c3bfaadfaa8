package services

import (
	"context"
	"testing"

	"sales_sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedup_MergeByPhone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedCustomers(t,
		models.Customer{ID: "keep", Name: "Nguyen Van A", Phone: "0987000111", OrderCount: 5, UpdatedAt: at(60)},
		models.Customer{ID: "dup1", Name: "Nguyen Van A", Phone: "+84 987 000 111", OrderCount: 2, UpdatedAt: at(60)},
		models.Customer{ID: "dup2", Name: "A (zalo)", Phone: "0987 000 111", OrderCount: 1, UpdatedAt: at(60)},
		models.Customer{ID: "other", Name: "B", Phone: "0911222333", OrderCount: 7, UpdatedAt: at(60)},
	)
	e.seedOrders(t,
		models.Order{ID: "o1", CustomerID: "dup1", CustomerName: "Nguyen Van A", UpdatedAt: at(50)},
		models.Order{ID: "o2", CustomerID: "dup2", CustomerName: "A (zalo)", UpdatedAt: at(40)},
		models.Order{ID: "o3", CustomerID: "keep", CustomerName: "Nguyen Van A", UpdatedAt: at(30)},
	)
	require.NoError(t, e.store.BatchPut(ctx, models.CollectionCustomers, DocsOf([]models.Customer{
		{ID: "dup1", UpdatedAt: at(60)}, {ID: "dup2", UpdatedAt: at(60)},
	})))

	removed, err := e.dedup.MergeByPhone(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	survivor, err := e.customers.GetByID("keep")
	require.NoError(t, err)
	assert.Equal(t, 8, survivor.OrderCount, "counters are summed")

	all, err := e.customers.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2, "duplicates gone, unrelated customer untouched")

	for _, id := range []string{"o1", "o2", "o3"} {
		o, err := e.orders.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "keep", o.CustomerID)
	}

	// Remote side: duplicates deleted, survivor updated.
	_, err = e.store.Get(ctx, models.CollectionCustomers, "dup1")
	assert.Error(t, err)
	_, err = e.store.Get(ctx, models.CollectionCustomers, "dup2")
	assert.Error(t, err)
	assert.Equal(t, 8, remoteCustomer(t, e.store, "keep").OrderCount)
}

func TestDedup_MergeIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedCustomers(t,
		models.Customer{ID: "a", Name: "A", Phone: "0987000111", OrderCount: 3, UpdatedAt: at(60)},
		models.Customer{ID: "b", Name: "A", Phone: "0987000111", OrderCount: 1, UpdatedAt: at(60)},
	)

	removed, err := e.dedup.MergeByPhone(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = e.dedup.MergeByPhone(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDedup_ShortPhonesNeverMerge(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t,
		models.Customer{ID: "a", Name: "A", Phone: "123", UpdatedAt: at(60)},
		models.Customer{ID: "b", Name: "B", Phone: "123", UpdatedAt: at(60)},
	)

	removed, err := e.dedup.MergeByPhone(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDedup_SplitByNameCollision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedCustomers(t,
		models.Customer{ID: "cust-abc", Name: "Nguyen Van A", OrderCount: 3, UpdatedAt: at(60)},
	)
	// Two orders under the customer's own name, one under a stranger's.
	e.seedOrders(t,
		models.Order{ID: "o1", CustomerID: "cust-abc", CustomerName: "Nguyen Van A", UpdatedAt: at(50)},
		models.Order{ID: "o2", CustomerID: "cust-abc", CustomerName: "Nguyễn Văn A", UpdatedAt: at(40)},
		models.Order{ID: "o3", CustomerID: "cust-abc", CustomerName: "Tran Thi B", CustomerPhone: "0911222333", UpdatedAt: at(30)},
	)

	created, err := e.dedup.SplitByNameCollision(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	original, err := e.customers.GetByID("cust-abc")
	require.NoError(t, err)
	assert.Equal(t, 2, original.OrderCount)

	split, err := e.customers.GetByID("cust-abc-2")
	require.NoError(t, err)
	assert.Equal(t, "Tran Thi B", split.Name)
	assert.Equal(t, "0911222333", split.Phone)
	assert.Equal(t, 1, split.OrderCount)

	o3, err := e.orders.GetByID("o3")
	require.NoError(t, err)
	assert.Equal(t, "cust-abc-2", o3.CustomerID)

	o1, err := e.orders.GetByID("o1")
	require.NoError(t, err)
	assert.Equal(t, "cust-abc", o1.CustomerID, "dominant name keeps the id")

	assert.Equal(t, "Tran Thi B", remoteCustomer(t, e.store, "cust-abc-2").Name)
}

func TestDedup_SplitSkipsConsistentCustomers(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t, models.Customer{ID: "c1", Name: "A", OrderCount: 2, UpdatedAt: at(60)})
	e.seedOrders(t,
		models.Order{ID: "o1", CustomerID: "c1", CustomerName: "A", UpdatedAt: at(50)},
		models.Order{ID: "o2", CustomerID: "c1", CustomerName: "a", UpdatedAt: at(40)},
	)

	created, err := e.dedup.SplitByNameCollision(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created, "case and diacritic variants are the same name")
}

func TestDedup_RecalculateStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedProducts(t,
		// Has import history: 50 in, 12 sold, but the stored stock drifted.
		models.Product{
			ID: "sku-1", Name: "Banh mi", StockQuantity: 99, TotalImported: 50,
			ImportRecords: []models.ImportRecord{{ID: "r1", Quantity: 30}, {ID: "r2", Quantity: 20}},
			UpdatedAt:     at(60),
		},
		// Legacy product without history: current numbers define the total.
		models.Product{ID: "sku-2", Name: "Tra da", StockQuantity: 7, UpdatedAt: at(60)},
		// Already consistent, must not be rewritten.
		models.Product{
			ID: "sku-3", Name: "Ca phe", StockQuantity: 10, TotalImported: 10,
			ImportRecords: []models.ImportRecord{{ID: "r3", Quantity: 10}},
			UpdatedAt:     at(60),
		},
	)
	e.seedOrders(t,
		models.Order{
			ID: "o1", CustomerID: "c1", Status: string(models.OrderCompleted),
			Items:     []models.OrderItem{{ProductID: "sku-1", Quantity: 12}, {ProductID: "sku-2", Quantity: 3}},
			UpdatedAt: at(50),
		},
		// Cancelled orders do not count as sold.
		models.Order{
			ID: "o2", CustomerID: "c1", Status: string(models.OrderCancelled),
			Items:     []models.OrderItem{{ProductID: "sku-1", Quantity: 40}},
			UpdatedAt: at(40),
		},
	)

	fixed, err := e.dedup.RecalculateStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	p1, err := e.products.GetByID("sku-1")
	require.NoError(t, err)
	assert.Equal(t, 38, p1.StockQuantity)
	assert.Equal(t, 50, p1.TotalImported)

	p2, err := e.products.GetByID("sku-2")
	require.NoError(t, err)
	assert.Equal(t, 7, p2.StockQuantity)
	assert.Equal(t, 10, p2.TotalImported, "legacy total backfilled from stock+sold")

	assert.Equal(t, 38, remoteProduct(t, e.store, "sku-1").StockQuantity)
}

func TestDedup_RecalculateClampsNegativeStock(t *testing.T) {
	e := newEnv(t)
	e.seedProducts(t, models.Product{
		ID: "sku-1", Name: "Banh mi", StockQuantity: -5, TotalImported: 2,
		ImportRecords: []models.ImportRecord{{ID: "r1", Quantity: 2}},
		UpdatedAt:     at(60),
	})
	e.seedOrders(t, models.Order{
		ID: "o1", CustomerID: "c1", Status: string(models.OrderCompleted),
		Items:     []models.OrderItem{{ProductID: "sku-1", Quantity: 9}},
		UpdatedAt: at(50),
	})

	fixed, err := e.dedup.RecalculateStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	p, err := e.products.GetByID("sku-1")
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)
}
