package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

// InventoryLedger owns the stock column of menu_items. It never commits on
// its own; every call runs on the transaction handed in by the caller.
type InventoryLedger struct{}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{}
}

// TryReserve decrements stock by quantity in a single conditional UPDATE.
// Zero affected rows means either the item is missing or the floor check
// failed; a follow-up read tells the two apart for the error message only.
func (l *InventoryLedger) TryReserve(tx *gorm.DB, menuItemID uint, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}

	res := tx.Model(&models.MenuItem{}).
		Where("id = ? AND stock >= ?", menuItemID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return persistence("reserve stock", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var item models.MenuItem
	err := tx.Select("id", "name", "stock").First(&item, menuItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ItemNotFoundError{MenuItemID: menuItemID}
	}
	if err != nil {
		return persistence("load menu item", err)
	}
	return &InsufficientStockError{
		MenuItemID: item.ID,
		Name:       item.Name,
		Requested:  quantity,
		Available:  item.Stock,
	}
}

// Replenish adds quantity back to stock. Used by restocking and by order
// cancellation.
func (l *InventoryLedger) Replenish(tx *gorm.DB, menuItemID uint, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}

	res := tx.Model(&models.MenuItem{}).
		Where("id = ?", menuItemID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return persistence("replenish stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ItemNotFoundError{MenuItemID: menuItemID}
	}
	return nil
}

// Stock reads the current stock level.
func (l *InventoryLedger) Stock(db *gorm.DB, menuItemID uint) (int, error) {
	var item models.MenuItem
	err := db.Select("id", "stock").First(&item, menuItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &ItemNotFoundError{MenuItemID: menuItemID}
	}
	if err != nil {
		return 0, persistence("load stock", err)
	}
	return item.Stock, nil
}
