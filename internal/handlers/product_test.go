package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductJSONFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/products", `{"name":"Fire Station","description":"Three storey station","netto_price":"49.99","category":"City","in_stock":40}`)
	require.Equal(t, http.StatusBadRequest, w.Code, "unknown field in_stock must be rejected: %s", w.Body.String())

	w = app.postJSON("/products", `{"name":"Fire Station","description":"Three storey station","netto_price":"49.99","category":"City"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	assert.Equal(t, float64(0), created["in_stock"])
	assert.Equal(t, float64(1), created["version"])
	id := uint(created["id"].(float64))

	app.seed(t, "Rocket", "Space", "29.99", 3)

	w = app.getJSON("/products?category=City")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)
	assert.Equal(t, float64(1), list["total"])
	items := list["items"].([]any)
	assert.Equal(t, "Fire Station", items[0].(map[string]any)["name"])

	w = app.getJSON("/products?stock=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["total"])

	w = app.getJSON("/products?min_price=abc")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.getJSON("/categories")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"City", "Space"}, decodeBody(t, w)["items"])

	w = app.postJSON(productURL(id)+"/price", `{"netto_price":"54.5","version":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody(t, w)
	assert.Equal(t, "54.5", updated["netto_price"])
	assert.Equal(t, float64(2), updated["version"])

	// the version read before the price change is stale now
	w = app.postJSON(productURL(id)+"/price", `{"netto_price":"60","version":1}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeBody(t, w)["error"])

	w = app.postJSON(productURL(id), `{"name":"Fire Station XL","description":"Bigger","netto_price":"54.50","category":"City","image_link":"https://img.example.com/fs.png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Fire Station XL", decodeBody(t, w)["name"])

	w = app.getJSON(productURL(id))
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeBody(t, w)
	assert.Equal(t, "https://img.example.com/fs.png", detail["image_link"])
	assert.Equal(t, float64(0), detail["in_stock"])
}

func TestProductValidation(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/products", `{"name":" ","description":"x","netto_price":"-1","category":"City","image_link":"ftp://nope"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "validation_failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "required", details["name"])
	assert.Equal(t, "must_not_be_negative", details["netto_price"])
	assert.Equal(t, "invalid_url", details["image_link"])

	w = app.postForm("/products", url.Values{"name": {"Castle"}, "netto_price": {"abc"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Not a number")
	assert.Contains(t, w.Body.String(), `value="Castle"`)

	var count int64
	app.db.Model(&models.Product{}).Count(&count)
	assert.Zero(t, count)
}

func TestProductFormFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/products", url.Values{
		"name":        {"Castle"},
		"description": {"Grey castle with drawbridge"},
		"netto_price": {"99,90"},
		"category":    {"Castle"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/products/1", w.Header().Get("Location"))
	assert.Equal(t, "Product created.", flashOf(t, w))

	var p models.Product
	require.NoError(t, app.db.First(&p, 1).Error)
	assert.Equal(t, "99.9", p.NettoPrice.String())

	w = app.postForm("/products/1", url.Values{
		"name":        {"Castle"},
		"description": {"Grey castle"},
		"netto_price": {"89.90"},
		"category":    {"Castle"},
		"version":     {"7"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/products/1/edit", w.Header().Get("Location"))
	assert.Equal(t, "The product was changed in the meantime. Please reload and try again.", flashOf(t, w))

	w = app.postForm("/products/1/price", url.Values{"netto_price": {"79.00"}, "version": {"1"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "Price updated.", flashOf(t, w))
}

func TestProductPagesRender(t *testing.T) {
	app := newTestApp(t)
	p := app.seed(t, "Pirate Ship", "Pirates", "129.99", 2)
	app.seed(t, "Harbour", "City", "59.99", 0)

	r := httptest.NewRequest(http.MethodGet, "/products?search=pirate", nil)
	w := app.do(r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "Pirate Ship")
	assert.NotContains(t, body, "Harbour</a>")
	assert.Contains(t, body, "€129.99")

	r = httptest.NewRequest(http.MethodGet, productURL(p.ID), nil)
	r.Header.Set("Accept-Language", "de")
	w = app.do(r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Verkauf erfassen")

	w = app.do(httptest.NewRequest(http.MethodGet, "/products/new", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `action="/products"`)

	w = app.do(httptest.NewRequest(http.MethodGet, productURL(p.ID)+"/edit", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `value="129.99"`)
	assert.True(t, strings.Contains(w.Body.String(), `name="version" value="1"`))
}

func TestProductNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.getJSON("/products/999")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["error"])

	w = app.do(httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not found")

	w = app.postJSON("/products/999/price", `{"netto_price":"1"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJSONPricesAreRequired(t *testing.T) {
	app := newTestApp(t)
	p := app.seed(t, "Rocket", "Space", "30.00", 4)

	tests := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{"create product", "/products", `{"name":"N","description":"D","category":"C"}`, "netto_price"},
		{"create product null price", "/products", `{"name":"N","description":"D","netto_price":null,"category":"C"}`, "netto_price"},
		{"update price", productURL(p.ID) + "/price", `{}`, "netto_price"},
		{"record sale", productURL(p.ID) + "/sales", `{"quantity":2,"buyer_company":"Acme"}`, "unit_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.postJSON(tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, "validation_failed", body["error"])
			assert.Equal(t, "required", body["details"].(map[string]any)[tt.field])
		})
	}

	var products, sales int64
	app.db.Model(&models.Product{}).Count(&products)
	app.db.Model(&models.Sale{}).Count(&sales)
	assert.Equal(t, int64(1), products)
	assert.Zero(t, sales)
	assert.Equal(t, 4, app.stock(t, p.ID))

	var stored models.Product
	require.NoError(t, app.db.First(&stored, p.ID).Error)
	assert.True(t, stored.NettoPrice.Equal(decimal.NewFromInt(30)), "netto price %s", stored.NettoPrice)
}
