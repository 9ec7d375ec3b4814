package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockFilter narrows the catalog by stock presence.
type StockFilter int

const (
	StockAny StockFilter = iota
	StockOut
	StockIn
)

// ParseStockFilter accepts the form values "0" (out of stock) and "1"
// (in stock) as well as "out", "in" and "any". Anything else means any.
func ParseStockFilter(s string) StockFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "out":
		return StockOut
	case "1", "in":
		return StockIn
	default:
		return StockAny
	}
}

func (f StockFilter) String() string {
	switch f {
	case StockOut:
		return "out"
	case StockIn:
		return "in"
	default:
		return "any"
	}
}

// ProductFilter holds the optional catalog filters. Set fields are combined with AND.
type ProductFilter struct {
	Search   string
	Category string
	Stock    StockFilter
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// CatalogService answers read-only catalog queries.
type CatalogService struct{ DB *gorm.DB }

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// ListProducts returns the products matching f ordered by id.
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.DB.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	switch f.Stock {
	case StockOut:
		q = q.Where("in_stock = 0")
	case StockIn:
		q = q.Where("in_stock > 0")
	}
	if f.MinPrice != nil {
		q = q.Where("netto_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("netto_price <= ?", *f.MaxPrice)
	}
	products := []models.Product{}
	if err := q.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListCategories returns every category in use, sorted.
func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.DB.WithContext(ctx).Model(&models.Product{}).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetProductDetail loads a product with its purchases and sales.
func (s *CatalogService) GetProductDetail(ctx context.Context, productID uint) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).
		Preload("Purchases", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Sales", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&product, productID).Error
	if err != nil {
		return nil, lookupErr("load product", err)
	}
	return &product, nil
}

// GetPurchase loads a single purchase.
func (s *CatalogService) GetPurchase(ctx context.Context, purchaseID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.DB.WithContext(ctx).First(&purchase, purchaseID).Error; err != nil {
		return nil, lookupErr("load purchase", err)
	}
	return &purchase, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
