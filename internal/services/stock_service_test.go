package services

import (
	"context"
	"testing"

	"sales_sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStock_EnsureProductCreatesOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.stock.EnsureProduct(ctx, "Cà phê sữa", 25000)
	require.NoError(t, err)
	assert.Equal(t, DeriveSKU("Cà phê sữa"), p.ID)
	assert.Equal(t, 25000.0, p.ListPrice)

	// Same name (any spelling) resolves to the existing product.
	again, err := e.stock.EnsureProduct(ctx, "ca phe sua", 99999)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 25000.0, again.ListPrice, "second reference must not overwrite")

	pushed := remoteProduct(t, e.store, p.ID)
	assert.Equal(t, "Cà phê sữa", pushed.Name)
}

func TestStock_ImportThenSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedProducts(t, models.Product{ID: "sku-1", Name: "Banh mi", UpdatedAt: at(60)})
	require.NoError(t, e.store.Put(ctx, models.CollectionProducts,
		DocOf(models.Product{ID: "sku-1", Name: "Banh mi", UpdatedAt: at(60)})))

	_, err := e.stock.AdjustStock(ctx, "sku-1", 50, &ImportInfo{UnitCost: 10000, Note: "morning intake"})
	require.NoError(t, err)

	p, err := e.stock.AdjustStock(ctx, "sku-1", -12, nil)
	require.NoError(t, err)

	assert.Equal(t, 38, p.StockQuantity)
	assert.Equal(t, 50, p.TotalImported, "sales never reduce the cumulative import total")
	require.Len(t, p.ImportRecords, 1, "only the intake leaves an import record")
	assert.Equal(t, 50, p.ImportRecords[0].Quantity)
	assert.Equal(t, 10000.0, p.ImportRecords[0].UnitCost)
	assert.Equal(t, "morning intake", p.ImportRecords[0].Note)

	// The remote copy got the same mutation.
	pushed := remoteProduct(t, e.store, "sku-1")
	assert.Equal(t, 38, pushed.StockQuantity)
	assert.Equal(t, 50, pushed.TotalImported)
}

func TestStock_AdjustAppliesDeltaOverRemoteCopy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedProducts(t, models.Product{ID: "sku-1", Name: "Banh mi", StockQuantity: 10, UpdatedAt: at(60)})

	// Another client already sold 4 units; only the remote copy knows.
	require.NoError(t, e.store.Put(ctx, models.CollectionProducts,
		DocOf(models.Product{ID: "sku-1", Name: "Banh mi", StockQuantity: 6, UpdatedAt: at(30)})))

	p, err := e.stock.AdjustStock(ctx, "sku-1", -2, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, p.StockQuantity, "local view")

	pushed := remoteProduct(t, e.store, "sku-1")
	assert.Equal(t, 4, pushed.StockQuantity, "remote applies the delta, not the local absolute")
}

func TestStock_QuotaKeepsLocalAdjustment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedProducts(t, models.Product{ID: "sku-1", Name: "Banh mi", StockQuantity: 5, UpdatedAt: at(60)})
	require.True(t, e.brk.Report(quotaErr()))

	p, err := e.stock.AdjustStock(ctx, "sku-1", -3, nil)
	require.NoError(t, err, "an exhausted remote must not fail the sale")
	assert.Equal(t, 2, p.StockQuantity)

	stored, err := e.products.GetByID("sku-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StockQuantity)
}

func TestStock_UnknownProductFails(t *testing.T) {
	e := newEnv(t)
	_, err := e.stock.AdjustStock(context.Background(), "sku-missing", 1, nil)
	require.Error(t, err)
}
