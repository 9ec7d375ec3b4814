package handlers

import (
	"net/http"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"go.uber.org/zap"
)

type PurchaseHandler struct {
	base
}

func NewPurchaseHandler(catalog *services.CatalogService, ledger *services.LedgerService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{base: newBase(catalog, ledger, log)}
}

func (h *PurchaseHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /products/{id}/purchases", h.Create)
	mux.HandleFunc("GET /purchases/{id}", h.Get)
	mux.HandleFunc("POST /purchases/{id}/deliver", h.Deliver)
	mux.HandleFunc("POST /purchases/{id}/delete", h.Delete)
}

// Create orders stock for the product in the path.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	form, expected, v, err := bindPurchase(w, r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !v.Empty() {
		h.invalid(w, r, productID, v)
		return
	}
	purchase, err := h.ledger.CreatePurchase(r.Context(), productID, form.Quantity, expected)
	if err != nil {
		h.fail(w, r, err, productURL(productID))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, purchase)
		return
	}
	h.redirectWithFlash(w, r, productURL(productID), "flash_purchase_created")
}

// Deliver books a pending purchase into stock.
func (h *PurchaseHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	purchase, err := h.ledger.DeliverPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, purchase)
		return
	}
	h.redirectWithFlash(w, r, productURL(purchase.ProductID), "flash_purchase_delivered")
}

// Delete removes a pending purchase. Delivered purchases stay and the
// response reports deleted=false.
func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	purchase, err := h.catalog.GetPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	back := productURL(purchase.ProductID)
	deleted, err := h.ledger.DeletePurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "deleted": deleted})
		return
	}
	code := ""
	if deleted {
		code = "flash_purchase_deleted"
	}
	h.redirectWithFlash(w, r, back, code)
}

// Get returns a single purchase as JSON.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	purchase, err := h.catalog.GetPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, productURL(purchase.ProductID), http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}
