package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Phone           string          `gorm:"type:varchar(30)" json:"phone,omitempty"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"tax_rate"`
	DeliveryMinutes int             `gorm:"not null" json:"delivery_minutes"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Line1      string    `gorm:"type:varchar(255);not null" json:"line1"`
	City       string    `gorm:"type:varchar(100);not null" json:"city"`
	PostalCode string    `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type DeliveryPerson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone       string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Vehicle     string    `gorm:"type:varchar(50)" json:"vehicle,omitempty"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}
