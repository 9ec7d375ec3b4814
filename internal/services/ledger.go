package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService owns every write that touches Product.InStock, plus product
// maintenance. Writes are guarded by the row version read in the same call.
type LedgerService struct {
	DB   *gorm.DB
	Rand Rand
	Now  func() time.Time
	Log  *zap.Logger
}

// NewLedgerService returns a ledger on db. A nil rnd falls back to the
// process-wide source and a nil log discards output.
func NewLedgerService(db *gorm.DB, rnd Rand, log *zap.Logger) *LedgerService {
	if rnd == nil {
		rnd = globalRand{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{DB: db, Rand: rnd, Now: time.Now, Log: log}
}

type SaleInput struct {
	ProductID    uint
	Quantity     int
	UnitPrice    decimal.Decimal
	BuyerCompany string
	SaleDate     time.Time
}

// ProductInput carries editable product fields. Version, when non-zero, is
// the version the caller last read.
type ProductInput struct {
	Name        string
	Description string
	NettoPrice  decimal.Decimal
	Category    string
	ImageLink   string
	Version     int
}

// CreatePurchase books a pending supplier order. The unit price is the
// product's netto price with random supplier variance applied.
func (s *LedgerService) CreatePurchase(ctx context.Context, productID uint, quantity int, expectedDelivery time.Time) (*models.Purchase, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	db := s.DB.WithContext(ctx)
	var product models.Product
	if err := db.Select("id", "netto_price").First(&product, productID).Error; err != nil {
		return nil, lookupErr("load product", err)
	}
	purchase := models.Purchase{
		ProductID:        product.ID,
		Quantity:         quantity,
		UnitPrice:        PurchasePrice(product.NettoPrice, s.Rand),
		ExpectedDelivery: expectedDelivery,
	}
	if err := db.Create(&purchase).Error; err != nil {
		return nil, writeErr("create purchase", err)
	}
	s.Log.Info("purchase created",
		zap.Uint("purchase_id", purchase.ID),
		zap.Uint("product_id", product.ID),
		zap.Int("quantity", quantity),
		zap.String("unit_price", purchase.UnitPrice.StringFixed(2)),
	)
	return &purchase, nil
}

// DeliverPurchase marks a pending purchase delivered and books its quantity
// into stock. Delivering an already delivered purchase changes nothing.
func (s *LedgerService) DeliverPurchase(ctx context.Context, purchaseID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	booked := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&purchase, purchaseID).Error; err != nil {
			return lookupErr("load purchase", err)
		}
		if purchase.Delivered() {
			return nil
		}
		var product models.Product
		if err := tx.Select("id", "in_stock", "version").First(&product, purchase.ProductID).Error; err != nil {
			return lookupErr("load product", err)
		}
		now := s.Now()
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND version = ? AND actual_delivery IS NULL", purchase.ID, purchase.Version).
			Updates(map[string]any{"actual_delivery": now, "version": purchase.Version + 1})
		if res.Error != nil {
			return writeErr("deliver purchase", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := adjustStock(tx, &product, purchase.Quantity); err != nil {
			return err
		}
		purchase.ActualDelivery = &now
		purchase.Version++
		booked = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if booked {
		s.Log.Info("purchase delivered",
			zap.Uint("purchase_id", purchase.ID),
			zap.Uint("product_id", purchase.ProductID),
			zap.Int("quantity", purchase.Quantity),
		)
	}
	return &purchase, nil
}

// DeletePurchase removes a pending purchase and reports whether it did.
// Delivered purchases are kept and the call is a no-op for them.
func (s *LedgerService) DeletePurchase(ctx context.Context, purchaseID uint) (bool, error) {
	deleted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.First(&purchase, purchaseID).Error; err != nil {
			return lookupErr("load purchase", err)
		}
		if purchase.Delivered() {
			return nil
		}
		res := tx.Where("id = ? AND version = ? AND actual_delivery IS NULL", purchase.ID, purchase.Version).
			Delete(&models.Purchase{})
		if res.Error != nil {
			return writeErr("delete purchase", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		deleted = true
		s.Log.Info("purchase deleted", zap.Uint("purchase_id", purchase.ID), zap.Uint("product_id", purchase.ProductID))
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// RecordSale stores a sale and takes its quantity from stock. A sale larger
// than the current stock fails with ErrInsufficientStock and writes nothing.
func (s *LedgerService) RecordSale(ctx context.Context, in SaleInput) (*models.Sale, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	buyer := strings.TrimSpace(in.BuyerCompany)
	if buyer == "" || utf8.RuneCountInString(buyer) > models.BuyerCompanyMaxLen {
		return nil, ErrInvalidBuyer
	}
	var sale models.Sale
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id", "in_stock", "version").First(&product, in.ProductID).Error; err != nil {
			return lookupErr("load product", err)
		}
		if product.InStock < in.Quantity {
			return ErrInsufficientStock
		}
		sale = models.Sale{
			ProductID:    product.ID,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice.Round(2),
			BuyerCompany: buyer,
			SaleDate:     in.SaleDate,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return writeErr("create sale", err)
		}
		return adjustStock(tx, &product, -in.Quantity)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("sale recorded",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
		zap.String("buyer_company", sale.BuyerCompany),
	)
	return &sale, nil
}

// UpdatePrice overwrites the netto price. Purchase and sale prices already
// booked are not touched.
func (s *LedgerService) UpdatePrice(ctx context.Context, productID uint, price decimal.Decimal) (*models.Product, error) {
	return s.UpdatePriceAt(ctx, productID, price, 0)
}

// UpdatePriceAt is UpdatePrice guarded by the version the caller last saw.
// A zero version uses the version loaded here.
func (s *LedgerService) UpdatePriceAt(ctx context.Context, productID uint, price decimal.Decimal, version int) (*models.Product, error) {
	db := s.DB.WithContext(ctx)
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		return nil, lookupErr("load product", err)
	}
	if version != 0 && version != product.Version {
		return nil, ErrConflict
	}
	price = price.Round(2)
	res := db.Model(&models.Product{}).
		Where("id = ? AND version = ?", product.ID, product.Version).
		Updates(map[string]any{"netto_price": price, "version": product.Version + 1})
	if res.Error != nil {
		return nil, writeErr("update price", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	s.Log.Info("price updated",
		zap.Uint("product_id", product.ID),
		zap.String("from", product.NettoPrice.StringFixed(2)),
		zap.String("to", price.StringFixed(2)),
	)
	product.NettoPrice = price
	product.Version++
	return &product, nil
}

// CreateProduct adds a catalog entry. Stock always starts at zero.
func (s *LedgerService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		NettoPrice:  in.NettoPrice.Round(2),
		Category:    strings.TrimSpace(in.Category),
		ImageLink:   optional(in.ImageLink),
		InStock:     0,
	}
	if err := s.DB.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, writeErr("create product", err)
	}
	s.Log.Info("product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return &product, nil
}

// UpdateProduct edits product metadata. InStock is not editable here.
func (s *LedgerService) UpdateProduct(ctx context.Context, productID uint, in ProductInput) (*models.Product, error) {
	db := s.DB.WithContext(ctx)
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		return nil, lookupErr("load product", err)
	}
	if in.Version != 0 && in.Version != product.Version {
		return nil, ErrConflict
	}
	product.Name = strings.TrimSpace(in.Name)
	product.Description = strings.TrimSpace(in.Description)
	product.NettoPrice = in.NettoPrice.Round(2)
	product.Category = strings.TrimSpace(in.Category)
	product.ImageLink = optional(in.ImageLink)
	res := db.Model(&models.Product{}).
		Where("id = ? AND version = ?", product.ID, product.Version).
		Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"netto_price": product.NettoPrice,
			"category":    product.Category,
			"image_link":  product.ImageLink,
			"version":     product.Version + 1,
		})
	if res.Error != nil {
		return nil, writeErr("update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	product.Version++
	s.Log.Info("product updated", zap.Uint("product_id", product.ID))
	return &product, nil
}

// adjustStock applies delta to the stock of p, which must have been loaded
// with its version inside tx.
func adjustStock(tx *gorm.DB, p *models.Product, delta int) error {
	next := p.InStock + delta
	if next < 0 {
		return ErrInsufficientStock
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{"in_stock": next, "version": p.Version + 1})
	if res.Error != nil {
		return writeErr("update stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	p.InStock = next
	p.Version++
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
