package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// statusRank orders the forward chain. CANCELLED sits outside it.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusReadyForPickup: 3,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in s may move to next.
// Moves go forward along the chain (skipping is allowed); CANCELLED is
// reachable from every non-terminal status. Staying put is not a transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() || s == next {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

type Order struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	OrderNumber           string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"order_number"`
	UserID                uint            `gorm:"not null;index" json:"user_id"`
	User                  *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"user,omitempty"`
	RestaurantID          uint            `gorm:"not null;index" json:"restaurant_id"`
	Restaurant            *Restaurant     `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"restaurant,omitempty"`
	AddressID             uint            `gorm:"not null" json:"address_id"`
	Address               *Address        `gorm:"foreignKey:AddressID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"address,omitempty"`
	DeliveryPersonID      *uint           `gorm:"index" json:"delivery_person_id,omitempty"`
	DeliveryPerson        *DeliveryPerson `gorm:"foreignKey:DeliveryPersonID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"delivery_person,omitempty"`
	Status                OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DeliveryFee           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	Tax                   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Discount              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	SpecialInstructions   string          `gorm:"type:text" json:"special_instructions,omitempty"`
	EstimatedDeliveryTime *time.Time      `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time      `json:"actual_delivery_time,omitempty"`
	CreatedAt             time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"not null" json:"updated_at"`
	Items                 []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment               *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	Tracking              []OrderTracking `gorm:"foreignKey:OrderID" json:"tracking,omitempty"`
}

// ComputedTotal recomputes the grand total from the stored components.
func (o *Order) ComputedTotal() decimal.Decimal {
	return o.Subtotal.Add(o.DeliveryFee).Add(o.Tax).Sub(o.Discount)
}
