package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseStatus is derived from ActualDelivery and never stored.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusDelivered PurchaseStatus = "delivered"
)

// Purchase is a supplier order for a product. UnitPrice is fixed when the
// purchase is created; the row becomes read-only once delivered.
type Purchase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ProductID        uint            `gorm:"index;not null" json:"product_id"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	ExpectedDelivery time.Time       `gorm:"type:date;not null" json:"expected_delivery"`
	ActualDelivery   *time.Time      `json:"actual_delivery,omitempty"`

	Version int `gorm:"not null" json:"version"`
}

func (p *Purchase) BeforeCreate(_ *gorm.DB) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// Delivered reports whether the goods arrived and stock was booked.
func (p *Purchase) Delivered() bool {
	return p.ActualDelivery != nil
}

func (p *Purchase) Status() PurchaseStatus {
	if p.Delivered() {
		return PurchaseStatusDelivered
	}
	return PurchaseStatusPending
}

// Total is quantity times unit price.
func (p *Purchase) Total() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
