package models

import (
	"time"
)

type Order struct {
	ID              string      `json:"id" gorm:"primaryKey"`
	CustomerID      string      `json:"customer_id" gorm:"index"`
	Batch           string      `json:"batch" gorm:"index"`
	CustomerName    string      `json:"customer_name" gorm:"not null"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	Items           []OrderItem `json:"items" gorm:"serializer:json"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status" gorm:"default:'pending'"` // pending, processing, completed, cancelled
	PaymentMethod   string      `json:"payment_method"`
	PaymentVerified bool        `json:"payment_verified" gorm:"default:false"`
	ReminderCount   int         `json:"reminder_count" gorm:"default:0"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" gorm:"index"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (o Order) EntityID() string           { return o.ID }
func (o Order) EntityUpdatedAt() time.Time { return o.UpdatedAt }
