package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/food-delivery-app/models"
)

const maxOrderNumberAttempts = 3

type OrderConfirmation struct {
	Order   models.Order   `json:"order"`
	Payment models.Payment `json:"payment"`
}

// OrderProcessor creates orders. Building the aggregate, reserving stock,
// saving line items, recording the payment and writing tracking events all
// share one transaction: either everything is committed or nothing is.
type OrderProcessor struct {
	db        *gorm.DB
	builder   *OrderBuilder
	inventory *InventoryLedger
	payments  *PaymentService
	tracking  *TrackingLog
	opts      options
}

func NewOrderProcessor(db *gorm.DB, opts ...Option) *OrderProcessor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &OrderProcessor{
		db:        db,
		builder:   NewOrderBuilder(),
		inventory: NewInventoryLedger(),
		payments:  NewPaymentService(db),
		tracking:  NewTrackingLog(),
		opts:      o,
	}
	p.builder.now = o.now
	p.tracking.now = o.now
	p.payments.now = o.now
	return p
}

func (p *OrderProcessor) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderConfirmation, error) {
	log := p.opts.log.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"restaurant_id": req.RestaurantID,
		"items":         len(req.Items),
	})

	var confirmation *OrderConfirmation
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agg, err := p.builder.Build(tx, req)
		if err != nil {
			return err
		}

		order := agg.Order
		if err := p.insertHeader(tx, &order); err != nil {
			return err
		}
		if _, err := p.tracking.Append(tx, order.ID, TrackingEvent{
			Status: models.OrderStatusPending,
			Notes:  "order placed",
		}); err != nil {
			return err
		}

		// input order keeps lock acquisition deterministic across requests
		for i := range agg.Items {
			item := &agg.Items[i]
			if err := p.inventory.TryReserve(tx, item.MenuItemID, item.Quantity); err != nil {
				return err
			}
			item.OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
				return persistence("create order item", err)
			}
		}
		order.Items = agg.Items

		if p.opts.faults != nil {
			if err := p.opts.faults.AfterReservation(ctx, &order); err != nil {
				return err
			}
		}

		payment, err := p.payments.Record(tx, order.ID, order.TotalAmount, req.PaymentMethod)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", models.OrderStatusConfirmed)
		if res.Error != nil {
			return persistence("confirm order", res.Error)
		}
		if res.RowsAffected != 1 {
			return persistence("confirm order", fmt.Errorf("order %d left PENDING concurrently", order.ID))
		}
		order.Status = models.OrderStatusConfirmed

		if _, err := p.tracking.Append(tx, order.ID, TrackingEvent{
			Status: models.OrderStatusConfirmed,
			Notes:  "payment " + payment.TransactionID + " completed",
		}); err != nil {
			return err
		}

		confirmation = &OrderConfirmation{Order: order, Payment: *payment}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("order creation rolled back")
		return nil, err
	}

	p.opts.notifier.OrderCreated(confirmation.Order)
	log.WithFields(logrus.Fields{
		"order_id":     confirmation.Order.ID,
		"order_number": confirmation.Order.OrderNumber,
		"total":        confirmation.Order.TotalAmount.StringFixed(2),
	}).Info("order created")
	return confirmation, nil
}

// insertHeader saves the order row, regenerating the order number when it
// collides with an existing one. Each attempt runs under a savepoint so a
// failed insert does not poison the outer transaction.
func (p *OrderProcessor) insertHeader(tx *gorm.DB, order *models.Order) error {
	var lastErr error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.ID = 0
		order.OrderNumber = p.opts.newOrderNumber()

		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Omit(clause.Associations).Create(order).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return persistence("create order", err)
		}
		lastErr = err
		p.opts.log.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"attempt":      attempt,
		}).Warn("order number collision, regenerating")
	}
	return persistence("create order", fmt.Errorf("order number collided %d times: %w", maxOrderNumberAttempts, lastErr))
}

// GetOrder loads an order with its items, payment and tracking history.
func (p *OrderProcessor) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := p.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return nil, persistence("load order", err)
	}
	return &order, nil
}

type OrderFilter struct {
	Status models.OrderStatus
	UserID uint
	Limit  int
	Offset int
}

func (p *OrderProcessor) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := p.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	var orders []models.Order
	if err := q.Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&orders).Error; err != nil {
		return nil, persistence("list orders", err)
	}
	return orders, nil
}

// Tracking returns the ordered tracking history of an existing order.
func (p *OrderProcessor) Tracking(ctx context.Context, orderID uint) ([]models.OrderTracking, error) {
	db := p.db.WithContext(ctx)
	if err := mustExistOrder(db, orderID); err != nil {
		return nil, err
	}
	return p.tracking.History(db, orderID)
}

func mustExistOrder(db *gorm.DB, orderID uint) error {
	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return persistence("load order", err)
	}
	if count == 0 {
		return &NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}
