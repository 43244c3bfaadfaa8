package models

// OrderItem is a line item snapshot inside an Order. ProductID is empty
// for free-form lines that never matched a catalog product; only lines
// with a ProductID take part in stock accounting.
type OrderItem struct {
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}
