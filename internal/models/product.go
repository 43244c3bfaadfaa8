package models

import (
	"time"
)

// ImportRecord is one stock intake for a product. Records are kept in
// order on the product itself so the full intake history travels with
// the document during sync.
type ImportRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Quantity  int       `json:"quantity"`
	UnitCost  float64   `json:"unit_cost"`
	Note      string    `json:"note,omitempty"`
}

type Product struct {
	ID            string         `json:"id" gorm:"primaryKey"` // stable SKU derived from the name
	Name          string         `json:"name" gorm:"not null"`
	ListPrice     float64        `json:"list_price"`
	CostPrice     float64        `json:"cost_price"`
	StockQuantity int            `json:"stock_quantity" gorm:"default:0"`
	TotalImported int            `json:"total_imported" gorm:"default:0"`
	ImportRecords []ImportRecord `json:"import_records" gorm:"serializer:json"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"index"`
}

func (p Product) EntityID() string           { return p.ID }
func (p Product) EntityUpdatedAt() time.Time { return p.UpdatedAt }
