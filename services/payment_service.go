package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

// PaymentService records the single payment of an order. Settlement is
// synchronous: a recorded payment is COMPLETED straight away.
type PaymentService struct {
	db            *gorm.DB
	newTransactID func() string
	now           func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{
		db:            db,
		newTransactID: NewTransactionID,
		now:           time.Now,
	}
}

// Record creates the payment for orderID inside the caller's transaction.
func (s *PaymentService) Record(tx *gorm.DB, orderID uint, amount decimal.Decimal, method models.PaymentMethod) (*models.Payment, error) {
	if !method.Valid() {
		return nil, &ValidationError{Field: "payment_method", Reason: "unsupported method " + string(method)}
	}

	var order models.Order
	err := tx.Select("id", "total_amount").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return nil, persistence("load order", err)
	}
	if !amount.Equal(order.TotalAmount) {
		return nil, &ValidationError{
			Field:  "amount",
			Reason: "payment amount " + amount.StringFixed(2) + " does not match order total " + order.TotalAmount.StringFixed(2),
		}
	}

	var existing int64
	if err := tx.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
		return nil, persistence("check existing payment", err)
	}
	if existing > 0 {
		return nil, &DuplicatePaymentError{OrderID: orderID}
	}

	paidAt := s.now()
	payment := models.Payment{
		OrderID:       orderID,
		Amount:        amount,
		Method:        method,
		TransactionID: s.newTransactID(),
		Status:        models.PaymentStatusCompleted,
		PaidAt:        &paidAt,
	}
	if err := tx.Create(&payment).Error; err != nil {
		// the unique index on order_id catches a concurrent recorder
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &DuplicatePaymentError{OrderID: orderID}
		}
		return nil, persistence("create payment", err)
	}
	return &payment, nil
}

// Refund marks a completed payment as refunded. Orders without a payment are
// left alone.
func (s *PaymentService) Refund(tx *gorm.DB, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Where("order_id = ?", orderID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistence("load payment", err)
	}
	if payment.Status != models.PaymentStatusCompleted {
		return &payment, nil
	}

	if err := tx.Model(&payment).Update("status", models.PaymentStatusRefunded).Error; err != nil {
		return nil, persistence("refund payment", err)
	}
	payment.Status = models.PaymentStatusRefunded
	return &payment, nil
}

// GetPaymentByOrderID returns the payment recorded for an order.
func (s *PaymentService) GetPaymentByOrderID(ctx context.Context, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "payment for order", ID: orderID}
	}
	if err != nil {
		return nil, persistence("load payment", err)
	}
	return &payment, nil
}
