package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

const defaultCancelNote = "cancelled by user"

// StatusUpdate carries the optional fields of a status change. Location,
// Notes and the coordinates only end up in the tracking event, which is
// written when Status actually changes.
type StatusUpdate struct {
	Status              *models.OrderStatus
	SpecialInstructions *string
	DeliveryPersonID    *uint
	Location            string
	Notes               string
	Latitude            *float64
	Longitude           *float64
}

func (u StatusUpdate) empty() bool {
	return u.Status == nil && u.SpecialInstructions == nil && u.DeliveryPersonID == nil
}

// StatusUpdater moves existing orders along their lifecycle.
type StatusUpdater struct {
	db        *gorm.DB
	inventory *InventoryLedger
	payments  *PaymentService
	tracking  *TrackingLog
	opts      options
}

func NewStatusUpdater(db *gorm.DB, opts ...Option) *StatusUpdater {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	u := &StatusUpdater{
		db:        db,
		inventory: NewInventoryLedger(),
		payments:  NewPaymentService(db),
		tracking:  NewTrackingLog(),
		opts:      o,
	}
	u.tracking.now = o.now
	u.payments.now = o.now
	return u
}

func (u *StatusUpdater) UpdateStatus(ctx context.Context, orderID uint, upd StatusUpdate) (*models.Order, error) {
	if upd.empty() {
		return nil, &ValidationError{Reason: "nothing to update"}
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(*upd.Status)}
	}

	var previous models.OrderStatus
	changed := false
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		previous = order.Status

		target := order.Status
		if upd.Status != nil {
			target = *upd.Status
		}
		if order.Status.Terminal() {
			return &StatusTransitionError{OrderID: order.ID, From: order.Status, To: target}
		}

		updates := map[string]interface{}{}
		if target != order.Status {
			if !order.Status.CanTransitionTo(target) {
				return &StatusTransitionError{OrderID: order.ID, From: order.Status, To: target}
			}
			updates["status"] = target
			if target == models.OrderStatusDelivered && order.ActualDeliveryTime == nil {
				updates["actual_delivery_time"] = u.opts.now()
			}
			changed = true
		}
		if upd.SpecialInstructions != nil {
			updates["special_instructions"] = *upd.SpecialInstructions
		}
		if upd.DeliveryPersonID != nil {
			if err := mustExist(tx, &models.DeliveryPerson{}, "delivery person", *upd.DeliveryPersonID); err != nil {
				return err
			}
			updates["delivery_person_id"] = *upd.DeliveryPersonID
		}
		if len(updates) == 0 {
			return nil
		}

		if err := conditionalUpdate(tx, order, target, updates); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		_, err = u.tracking.Append(tx, order.ID, TrackingEvent{
			Status:    target,
			Location:  upd.Location,
			Notes:     upd.Notes,
			Latitude:  upd.Latitude,
			Longitude: upd.Longitude,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := u.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if changed {
		u.opts.notifier.OrderStatusChanged(*updated, previous)
		u.opts.log.WithFields(logrus.Fields{
			"order_id": updated.ID,
			"from":     previous,
			"to":       updated.Status,
		}).Info("order status changed")
	}
	return updated, nil
}

// Cancel moves a non-terminal order to CANCELLED, puts the reserved stock
// back and refunds a completed payment.
func (u *StatusUpdater) Cancel(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	if reason == "" {
		reason = defaultCancelNote
	}

	var previous models.OrderStatus
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		previous = order.Status
		if order.Status.Terminal() {
			return &StatusTransitionError{OrderID: order.ID, From: order.Status, To: models.OrderStatusCancelled}
		}

		if err := conditionalUpdate(tx, order, models.OrderStatusCancelled, map[string]interface{}{
			"status": models.OrderStatusCancelled,
		}); err != nil {
			return err
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Order("id ASC").Find(&items).Error; err != nil {
			return persistence("load order items", err)
		}
		for _, item := range items {
			if err := u.inventory.Replenish(tx, item.MenuItemID, item.Quantity); err != nil {
				return err
			}
		}
		if _, err := u.payments.Refund(tx, order.ID); err != nil {
			return err
		}

		_, err = u.tracking.Append(tx, order.ID, TrackingEvent{
			Status: models.OrderStatusCancelled,
			Notes:  reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := u.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	u.opts.notifier.OrderStatusChanged(*cancelled, previous)
	u.opts.log.WithFields(logrus.Fields{
		"order_id": cancelled.ID,
		"from":     previous,
		"reason":   reason,
	}).Info("order cancelled")
	return cancelled, nil
}

func (u *StatusUpdater) reload(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := u.db.WithContext(ctx).Preload("Items").Preload("Payment").First(&order, orderID).Error
	if err != nil {
		return nil, persistence("reload order", err)
	}
	return &order, nil
}

func loadOrderForUpdate(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return nil, persistence("load order", err)
	}
	return &order, nil
}

// conditionalUpdate applies updates only while the order still has the status
// it was read with, so a concurrent transition cannot slip past the guards.
func conditionalUpdate(tx *gorm.DB, order *models.Order, target models.OrderStatus, updates map[string]interface{}) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return persistence("update order", res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Order
		if err := tx.Select("id", "status").First(&current, order.ID).Error; err != nil {
			return persistence("reload order", err)
		}
		return &StatusTransitionError{OrderID: order.ID, From: current.Status, To: target}
	}
	return nil
}
