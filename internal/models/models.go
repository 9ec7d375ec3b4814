package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. InStock is only changed by the stock ledger:
// delivered purchases add to it, recorded sales take from it.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	NettoPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"netto_price"`
	Category    string          `gorm:"size:100;not null;index" json:"category"`
	InStock     int             `gorm:"not null" json:"in_stock"`
	ImageLink   *string         `gorm:"size:500" json:"image_link,omitempty"`

	// Version is bumped on every write and compared on update.
	Version int `gorm:"not null" json:"version"`

	Purchases []Purchase `gorm:"foreignKey:ProductID" json:"purchases,omitempty"`
	Sales     []Sale     `gorm:"foreignKey:ProductID" json:"sales,omitempty"`
}

// BeforeCreate starts every new row at version 1.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// Available reports whether at least one unit is on stock.
func (p *Product) Available() bool {
	return p.InStock > 0
}

// Image returns the image link or an empty string.
func (p *Product) Image() string {
	if p.ImageLink == nil {
		return ""
	}
	return *p.ImageLink
}
