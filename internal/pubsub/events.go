package pubsub

import (
	"sales_sync/internal/models"
)

// Events carries every signal the engine emits to in-process consumers:
// per-collection "data changed" snapshots, the one-time "remote became
// unavailable" event, and the notification read signals relayed to the
// notification collaborator.
type Events struct {
	Customers *Topic[[]models.Customer]
	Products  *Topic[[]models.Product]
	Orders    *Topic[[]models.Order]

	// RemoteDown fires once per circuit-breaker trip; payload is the
	// calendar date (YYYY-MM-DD) the quota ran out.
	RemoteDown *Topic[string]

	// NotificationsRead carries a notification id, or "" for mark-all.
	NotificationsRead *Topic[string]
}

func NewEvents() *Events {
	return &Events{
		Customers:         NewTopic[[]models.Customer](),
		Products:          NewTopic[[]models.Product](),
		Orders:            NewTopic[[]models.Order](),
		RemoteDown:        NewTopic[string](),
		NotificationsRead: NewTopic[string](),
	}
}
