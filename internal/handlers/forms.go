package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"github.com/diewo77/go-klemmbausteine/validation"
	"github.com/shopspring/decimal"
)

// Forms accept either a JSON body or an urlencoded form with the same field names.
// JSON bodies decode prices through pointers so a missing price is reported.

type productForm struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	NettoPrice  decimal.Decimal `json:"netto_price"`
	Category    string          `json:"category"`
	ImageLink   string          `json:"image_link"`
	Version     int             `json:"version"`
}

func bindProduct(w http.ResponseWriter, r *http.Request) (productForm, validation.Violations, error) {
	var f productForm
	v := validation.Violations{}
	if httpx.IsJSONBody(r) {
		var body struct {
			productForm
			NettoPrice *decimal.Decimal `json:"netto_price"`
		}
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			return f, v, err
		}
		f = body.productForm
		f.NettoPrice = validation.RequiredDecimal("netto_price", body.NettoPrice, v)
	} else {
		if err := r.ParseForm(); err != nil {
			return f, v, err
		}
		f.Name = r.FormValue("name")
		f.Description = r.FormValue("description")
		f.NettoPrice = validation.ParseDecimal("netto_price", r.FormValue("netto_price"), v)
		f.Category = r.FormValue("category")
		f.ImageLink = r.FormValue("image_link")
		if raw := r.FormValue("version"); raw != "" {
			f.Version = validation.ParseInt("version", raw, v)
		}
	}
	validation.Required("name", f.Name, v)
	validation.MaxLen("name", f.Name, 255, v)
	validation.Required("description", f.Description, v)
	validation.Required("category", f.Category, v)
	validation.MaxLen("category", f.Category, 100, v)
	validation.OptionalURL("image_link", f.ImageLink, v)
	if _, bad := v["netto_price"]; !bad {
		validation.NonNegativeDecimal("netto_price", f.NettoPrice, v)
	}
	return f, v, nil
}

func (f productForm) input() services.ProductInput {
	return services.ProductInput{
		Name:        f.Name,
		Description: f.Description,
		NettoPrice:  f.NettoPrice,
		Category:    f.Category,
		ImageLink:   f.ImageLink,
		Version:     f.Version,
	}
}

func productFormFrom(p *models.Product) productForm {
	return productForm{
		Name:        p.Name,
		Description: p.Description,
		NettoPrice:  p.NettoPrice,
		Category:    p.Category,
		ImageLink:   p.Image(),
		Version:     p.Version,
	}
}

type priceForm struct {
	NettoPrice decimal.Decimal `json:"netto_price"`
	Version    int             `json:"version"`
}

func bindPrice(w http.ResponseWriter, r *http.Request) (priceForm, validation.Violations, error) {
	var f priceForm
	v := validation.Violations{}
	if httpx.IsJSONBody(r) {
		var body struct {
			NettoPrice *decimal.Decimal `json:"netto_price"`
			Version    int              `json:"version"`
		}
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			return f, v, err
		}
		f.NettoPrice = validation.RequiredDecimal("netto_price", body.NettoPrice, v)
		f.Version = body.Version
	} else {
		if err := r.ParseForm(); err != nil {
			return f, v, err
		}
		f.NettoPrice = validation.ParseDecimal("netto_price", r.FormValue("netto_price"), v)
		if raw := r.FormValue("version"); raw != "" {
			f.Version = validation.ParseInt("version", raw, v)
		}
	}
	if _, bad := v["netto_price"]; !bad {
		validation.NonNegativeDecimal("netto_price", f.NettoPrice, v)
	}
	return f, v, nil
}

type purchaseForm struct {
	Quantity         int    `json:"quantity"`
	ExpectedDelivery string `json:"expected_delivery"`
}

func bindPurchase(w http.ResponseWriter, r *http.Request) (purchaseForm, time.Time, validation.Violations, error) {
	var f purchaseForm
	v := validation.Violations{}
	if httpx.IsJSONBody(r) {
		if err := httpx.DecodeJSON(w, r, &f); err != nil {
			return f, time.Time{}, v, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return f, time.Time{}, v, err
		}
		f.Quantity = validation.ParseInt("quantity", r.FormValue("quantity"), v)
		f.ExpectedDelivery = r.FormValue("expected_delivery")
	}
	if _, bad := v["quantity"]; !bad {
		validation.PositiveInt("quantity", f.Quantity, v)
	}
	var expected time.Time
	validation.Required("expected_delivery", f.ExpectedDelivery, v)
	if _, bad := v["expected_delivery"]; !bad {
		expected = validation.ParseDate("expected_delivery", f.ExpectedDelivery, v)
	}
	return f, expected, v, nil
}

type saleForm struct {
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	BuyerCompany string          `json:"buyer_company"`
	SaleDate     string          `json:"sale_date"`
}

// bindSale defaults an empty sale date to today.
func bindSale(w http.ResponseWriter, r *http.Request, today time.Time) (saleForm, time.Time, validation.Violations, error) {
	var f saleForm
	v := validation.Violations{}
	if httpx.IsJSONBody(r) {
		var body struct {
			saleForm
			UnitPrice *decimal.Decimal `json:"unit_price"`
		}
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			return f, time.Time{}, v, err
		}
		f = body.saleForm
		f.UnitPrice = validation.RequiredDecimal("unit_price", body.UnitPrice, v)
	} else {
		if err := r.ParseForm(); err != nil {
			return f, time.Time{}, v, err
		}
		f.Quantity = validation.ParseInt("quantity", r.FormValue("quantity"), v)
		f.UnitPrice = validation.ParseDecimal("unit_price", r.FormValue("unit_price"), v)
		f.BuyerCompany = r.FormValue("buyer_company")
		f.SaleDate = r.FormValue("sale_date")
	}
	if _, bad := v["quantity"]; !bad {
		validation.PositiveInt("quantity", f.Quantity, v)
	}
	if _, bad := v["unit_price"]; !bad {
		validation.NonNegativeDecimal("unit_price", f.UnitPrice, v)
	}
	validation.Required("buyer_company", f.BuyerCompany, v)
	validation.MaxLen("buyer_company", f.BuyerCompany, models.BuyerCompanyMaxLen, v)
	saleDate := today
	if strings.TrimSpace(f.SaleDate) != "" {
		saleDate = validation.ParseDate("sale_date", f.SaleDate, v)
	}
	return f, saleDate, v, nil
}

// filterForm keeps the raw query values so the filter form can be redrawn.
type filterForm struct {
	Search   string
	Category string
	Stock    string
	MinPrice string
	MaxPrice string
}

func bindFilter(r *http.Request) (filterForm, services.ProductFilter, validation.Violations) {
	q := r.URL.Query()
	f := filterForm{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: q.Get("category"),
		Stock:    q.Get("stock"),
		MinPrice: q.Get("min_price"),
		MaxPrice: q.Get("max_price"),
	}
	v := validation.Violations{}
	filter := services.ProductFilter{
		Search:   f.Search,
		Category: f.Category,
		Stock:    services.ParseStockFilter(f.Stock),
		MinPrice: validation.ParseOptionalDecimal("min_price", f.MinPrice, v),
		MaxPrice: validation.ParseOptionalDecimal("max_price", f.MaxPrice, v),
	}
	return f, filter, v
}
