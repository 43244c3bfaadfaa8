package main

import (
	"log"
	"time"

	"sales_sync/internal/database"
	"sales_sync/internal/models"
	"sales_sync/internal/repository"
)

// Seeds a handful of customers and products into the local database
// for manual testing. Run with: go run scripts/seed-db.go
func main() {
	db, err := database.Initialize("sales_sync.db")
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	now := time.Now()
	customers := []models.Customer{
		{ID: "0912345678", Name: "Nguyen Van A", Phone: "0912345678", Address: "12 Hang Bac, Ha Noi", OrderCount: 3, PriorityScore: models.UnrankedPriority, CreatedAt: now, UpdatedAt: now},
		{ID: "0987000111", Name: "Tran Thi B", Phone: "0987000111", Address: "5 Le Loi, Da Nang", OrderCount: 1, PriorityScore: models.UnrankedPriority, CreatedAt: now, UpdatedAt: now},
	}
	products := []models.Product{
		{ID: "sku-demo1", Name: "Banh mi", ListPrice: 25000, CostPrice: 15000, StockQuantity: 40, TotalImported: 40, CreatedAt: now, UpdatedAt: now,
			ImportRecords: []models.ImportRecord{{ID: "seed-1", Timestamp: now, Quantity: 40, UnitCost: 15000}}},
		{ID: "sku-demo2", Name: "Ca phe sua", ListPrice: 30000, CostPrice: 12000, StockQuantity: 60, TotalImported: 60, CreatedAt: now, UpdatedAt: now,
			ImportRecords: []models.ImportRecord{{ID: "seed-2", Timestamp: now, Quantity: 60, UnitCost: 12000}}},
	}

	if err := repository.NewCustomerRepository(db).UpsertMany(customers); err != nil {
		log.Fatal("Failed to seed customers:", err)
	}
	if err := repository.NewProductRepository(db).UpsertMany(products); err != nil {
		log.Fatal("Failed to seed products:", err)
	}

	log.Printf("Seeded %d customers and %d products", len(customers), len(products))
}
