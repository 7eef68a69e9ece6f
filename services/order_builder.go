package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

type OrderItemRequest struct {
	MenuItemID uint
	Quantity   int
	// Price is the price the client saw. When set it must match the catalog.
	Price *decimal.Decimal
}

// CreateOrderRequest is the already-decoded input of order creation.
// Nil fee fields fall back to the restaurant's defaults.
type CreateOrderRequest struct {
	UserID              uint
	RestaurantID        uint
	AddressID           uint
	Items               []OrderItemRequest
	PaymentMethod       models.PaymentMethod
	SpecialInstructions string
	DeliveryFee         *decimal.Decimal
	Tax                 *decimal.Decimal
	Discount            *decimal.Decimal
}

// OrderAggregate is an unsaved order header with its line items.
type OrderAggregate struct {
	Order models.Order
	Items []models.OrderItem
}

type OrderBuilder struct {
	now func() time.Time
}

func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{now: time.Now}
}

// Build resolves every reference in req, snapshots catalog prices and
// computes the totals. It only reads through tx.
func (b *OrderBuilder) Build(tx *gorm.DB, req CreateOrderRequest) (*OrderAggregate, error) {
	if err := validateShape(req); err != nil {
		return nil, err
	}

	if err := mustExist(tx, &models.User{}, "user", req.UserID); err != nil {
		return nil, err
	}

	var restaurant models.Restaurant
	if err := findRef(tx, &restaurant, "restaurant", req.RestaurantID); err != nil {
		return nil, err
	}
	if !restaurant.IsActive {
		return nil, &ValidationError{Field: "restaurant_id", Reason: "restaurant is not accepting orders"}
	}

	var address models.Address
	if err := findRef(tx, &address, "address", req.AddressID); err != nil {
		return nil, err
	}
	if address.UserID != req.UserID {
		return nil, &ValidationError{Field: "address_id", Reason: "address does not belong to user"}
	}

	catalog, err := loadMenuItems(tx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for i, line := range req.Items {
		item, ok := catalog[line.MenuItemID]
		if !ok {
			return nil, &ReferenceNotFoundError{Entity: "menu item", ID: line.MenuItemID}
		}
		field := fmt.Sprintf("items[%d]", i)
		if item.RestaurantID != req.RestaurantID {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("menu item %d belongs to another restaurant", item.ID)}
		}
		if !item.IsAvailable {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("menu item %d (%s) is not available", item.ID, item.Name)}
		}
		if line.Price != nil && !line.Price.Equal(item.Price) {
			return nil, &ValidationError{
				Field:  field + ".price",
				Reason: fmt.Sprintf("price %s does not match current price %s", line.Price.StringFixed(2), item.Price.StringFixed(2)),
			}
		}

		orderItem := models.OrderItem{
			MenuItemID:  item.ID,
			Quantity:    line.Quantity,
			PriceAtTime: item.Price,
		}
		subtotal = subtotal.Add(orderItem.LineTotal())
		items = append(items, orderItem)
	}

	deliveryFee, err := moneyOrDefault("delivery_fee", req.DeliveryFee, restaurant.DeliveryFee)
	if err != nil {
		return nil, err
	}
	tax, err := moneyOrDefault("tax", req.Tax, subtotal.Mul(restaurant.TaxRate).Round(2))
	if err != nil {
		return nil, err
	}
	discount, err := moneyOrDefault("discount", req.Discount, decimal.Zero)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:              req.UserID,
		RestaurantID:        req.RestaurantID,
		AddressID:           req.AddressID,
		Status:              models.OrderStatusPending,
		Subtotal:            subtotal,
		DeliveryFee:         deliveryFee,
		Tax:                 tax,
		Discount:            discount,
		SpecialInstructions: req.SpecialInstructions,
	}
	order.TotalAmount = order.ComputedTotal()
	if order.TotalAmount.IsNegative() {
		return nil, &ValidationError{Field: "discount", Reason: "discount exceeds order subtotal plus fees"}
	}
	if restaurant.DeliveryMinutes > 0 {
		eta := b.now().Add(time.Duration(restaurant.DeliveryMinutes) * time.Minute)
		order.EstimatedDeliveryTime = &eta
	}

	return &OrderAggregate{Order: order, Items: items}, nil
}

func validateShape(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be greater than zero"}
		}
	}
	if !req.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method", Reason: fmt.Sprintf("unsupported method %q", req.PaymentMethod)}
	}
	return nil
}

func moneyOrDefault(field string, v *decimal.Decimal, fallback decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return fallback, nil
	}
	if v.IsNegative() {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	if !v.Equal(v.Round(2)) {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must have at most two decimal places"}
	}
	return *v, nil
}

func loadMenuItems(tx *gorm.DB, lines []OrderItemRequest) (map[uint]models.MenuItem, error) {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MenuItemID)
	}
	var items []models.MenuItem
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, persistence("load menu items", err)
	}
	byID := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}

func findRef(tx *gorm.DB, dest interface{}, entity string, id uint) error {
	err := tx.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReferenceNotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return persistence("load "+entity, err)
	}
	return nil
}

func mustExist(tx *gorm.DB, model interface{}, entity string, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return persistence("load "+entity, err)
	}
	if count == 0 {
		return &ReferenceNotFoundError{Entity: entity, ID: id}
	}
	return nil
}
