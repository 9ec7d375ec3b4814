package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyerCompanyMaxLen bounds Sale.BuyerCompany, counted in characters.
const BuyerCompanyMaxLen = 200

// Sale is an outgoing sale to a buyer company. Sales are never edited or removed.
type Sale struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ProductID    uint            `gorm:"index;not null" json:"product_id"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	BuyerCompany string          `gorm:"size:200;not null" json:"buyer_company"`
	SaleDate     time.Time       `gorm:"type:date;not null" json:"sale_date"`
}

func (s *Sale) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// All lists every model in migration order.
func All() []any {
	return []any{&Product{}, &Purchase{}, &Sale{}}
}
