package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem doubles as the inventory record. Stock is only ever changed
// through conditional UPDATE statements, never read-modify-write.
type MenuItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   *Restaurant     `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"restaurant,omitempty"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Category     string          `gorm:"type:varchar(100);index" json:"category"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable  bool            `gorm:"not null" json:"is_available"`
	Stock        int             `gorm:"not null;check:chk_menu_items_stock,stock >= 0" json:"stock"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
