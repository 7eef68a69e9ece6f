package models

import "time"

// OrderTracking rows are append-only. The store rejects UPDATE and DELETE
// on this table, see database/triggers.
type OrderTracking struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Location  string      `gorm:"type:varchar(255)" json:"location,omitempty"`
	Notes     string      `gorm:"type:text" json:"notes,omitempty"`
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
}

func (OrderTracking) TableName() string {
	return "order_trackings"
}
