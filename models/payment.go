package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard     PaymentMethod = "DEBIT_CARD"
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodCash, PaymentMethodDigitalWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is tied 1:1 to an order through the unique index on OrderID.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	TransactionID string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"transaction_id"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}
