package models

import (
	"time"
)

// Setting is a local-only key-value row: current user name and the
// circuit breaker flag. Settings never sync.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingCurrentUser     = "current_user"
	SettingRemoteExhausted = "remote_exhausted" // value: YYYY-MM-DD of the day the quota ran out
)

// Collection names shared by the local store, the remote store and the
// event bus.
const (
	CollectionCustomers = "customers"
	CollectionProducts  = "products"
	CollectionOrders    = "orders"
)
