package models

import (
	"time"
)

// UnrankedPriority is the sentinel score for customers that have never
// been placed on a route. Lower scores sort earlier.
const UnrankedPriority = 999999

type Customer struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"not null"`
	Phone         string     `json:"phone" gorm:"index"`
	Address       string     `json:"address"`
	LastOrderAt   *time.Time `json:"last_order_at"`
	OrderCount    int        `json:"order_count" gorm:"default:0"`
	PriorityScore int        `json:"priority_score" gorm:"default:999999"`
	Legacy        bool       `json:"legacy" gorm:"default:false"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"index"`
}

func (c Customer) EntityID() string           { return c.ID }
func (c Customer) EntityUpdatedAt() time.Time { return c.UpdatedAt }
