package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedProduct struct {
	Name        string
	Description string
	Price       string
	Category    string
	Image       string
	Delivered   int
}

var demoCatalog = []seedProduct{
	{"Fire Station", "Two-storey fire station with garage and ladder truck.", "89.99", "City", "https://placehold.co/400x300?text=Fire+Station", 6},
	{"Police Patrol Car", "Patrol car with two minifigures.", "9.99", "City", "", 20},
	{"Harbour Crane", "Working crane with container and forklift.", "59.99", "City", "", 0},
	{"Medieval Castle", "Castle with drawbridge, towers and knights.", "129.99", "Castle", "https://placehold.co/400x300?text=Medieval+Castle", 3},
	{"Space Shuttle Explorer", "Shuttle with opening cargo bay and satellite.", "49.99", "Space", "https://placehold.co/400x300?text=Space+Shuttle", 8},
	{"Lunar Rover", "Six-wheel rover with astronaut.", "24.99", "Space", "", 0},
	{"Pirate Ship", "Three-mast ship with cannons and treasure chest.", "199.99", "Pirates", "https://placehold.co/400x300?text=Pirate+Ship", 2},
	{"Classic Brick Box", "Assorted bricks in 33 colours.", "34.99", "Classic", "", 15},
}

// Seed inserts the demo catalog. Products already present by name are left
// untouched, so running it twice is harmless. Initial stock is booked through
// a delivered purchase so the ledger history adds up.
func Seed(ctx context.Context, db *gorm.DB) error {
	now := time.Now()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sp := range demoCatalog {
			var existing models.Product
			err := tx.Where("name = ?", sp.Name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lookup %s: %w", sp.Name, err)
			}
			p := models.Product{
				Name:        sp.Name,
				Description: sp.Description,
				NettoPrice:  decimal.RequireFromString(sp.Price),
				Category:    sp.Category,
				InStock:     sp.Delivered,
			}
			if sp.Image != "" {
				img := sp.Image
				p.ImageLink = &img
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("seed %s: %w", sp.Name, err)
			}
			if sp.Delivered == 0 {
				continue
			}
			delivered := now
			purchase := models.Purchase{
				ProductID:        p.ID,
				Quantity:         sp.Delivered,
				UnitPrice:        p.NettoPrice,
				ExpectedDelivery: now.Truncate(24 * time.Hour),
				ActualDelivery:   &delivered,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return fmt.Errorf("seed purchase for %s: %w", sp.Name, err)
			}
		}
		return nil
	})
}
