package handlers

import (
	"net/http"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/middleware"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"github.com/diewo77/go-klemmbausteine/validation"
	"github.com/diewo77/go-klemmbausteine/view"
	"go.uber.org/zap"
)

type ProductHandler struct {
	base
}

func NewProductHandler(catalog *services.CatalogService, ledger *services.LedgerService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{base: newBase(catalog, ledger, log)}
}

func (h *ProductHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.List)
	mux.HandleFunc("GET /products/new", h.New)
	mux.HandleFunc("POST /products", h.Create)
	mux.HandleFunc("GET /products/{id}", h.View)
	mux.HandleFunc("GET /products/{id}/edit", h.Edit)
	mux.HandleFunc("POST /products/{id}", h.Update)
	mux.HandleFunc("POST /products/{id}/price", h.UpdatePrice)
	mux.HandleFunc("GET /categories", h.Categories)
}

// List shows the filtered catalog.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	form, filter, v := bindFilter(r)
	if httpx.WantsJSON(r) && !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": len(products)})
		return
	}
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	err = view.Render(w, r, "products/index.html", map[string]any{
		"Products":   products,
		"Total":      len(products),
		"Filter":     form,
		"Categories": categories,
		"Errors":     v,
		"Flash":      middleware.PopFlash(w, r),
	})
	if err != nil {
		h.fail(w, r, err, "/products")
	}
}

// Categories lists the categories in use.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": categories})
}

func (h *ProductHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, productForm{}, validation.Violations{})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, v, err := bindProduct(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !v.Empty() {
		h.invalidProduct(w, r, 0, form, v)
		return
	}
	product, err := h.ledger.CreateProduct(r.Context(), form.input())
	if err != nil {
		h.fail(w, r, err, "/products/new")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, product)
		return
	}
	h.redirectWithFlash(w, r, productURL(product.ID), "flash_product_created")
}

// View shows a product with its purchases and sales.
func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if httpx.WantsJSON(r) {
		product, err := h.catalog.GetProductDetail(r.Context(), id)
		if err != nil {
			h.fail(w, r, err, "/products")
			return
		}
		httpx.JSON(w, http.StatusOK, product)
		return
	}
	h.renderDetail(w, r, http.StatusOK, id, nil, nil)
}

func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	product, err := h.catalog.GetProductDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	h.renderForm(w, r, http.StatusOK, id, productFormFrom(product), validation.Violations{})
}

// Update saves product metadata. Stock is not part of the form.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	form, v, err := bindProduct(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !v.Empty() {
		h.invalidProduct(w, r, id, form, v)
		return
	}
	product, err := h.ledger.UpdateProduct(r.Context(), id, form.input())
	if err != nil {
		h.fail(w, r, err, productURL(id)+"/edit")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, product)
		return
	}
	h.redirectWithFlash(w, r, productURL(product.ID), "flash_product_updated")
}

// UpdatePrice changes the netto price only.
func (h *ProductHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	form, v, err := bindPrice(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !v.Empty() {
		h.invalid(w, r, id, v)
		return
	}
	product, err := h.ledger.UpdatePriceAt(r.Context(), id, form.NettoPrice, form.Version)
	if err != nil {
		h.fail(w, r, err, productURL(id))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, product)
		return
	}
	h.redirectWithFlash(w, r, productURL(product.ID), "flash_price_updated")
}

func (h *ProductHandler) invalidProduct(w http.ResponseWriter, r *http.Request, id uint, form productForm, v validation.Violations) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	h.renderForm(w, r, http.StatusBadRequest, id, form, v)
}

func (h *ProductHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id uint, form productForm, v validation.Violations) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	action, title := "/products", "new_product"
	if id != 0 {
		action, title = productURL(id), "edit_product"
	}
	err = view.RenderStatus(w, r, status, "products/form.html", map[string]any{
		"ID":         id,
		"Form":       form,
		"Action":     action,
		"Title":      title,
		"Categories": categories,
		"Errors":     v,
		"Flash":      middleware.PopFlash(w, r),
	})
	if err != nil {
		h.fail(w, r, err, "/products")
	}
}
