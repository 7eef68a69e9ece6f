package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	MenuItemID  uint            `gorm:"not null;index" json:"menu_item_id"`
	MenuItem    *MenuItem       `gorm:"foreignKey:MenuItemID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item,omitempty"`
	Quantity    int             `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_time"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
