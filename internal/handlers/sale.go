package handlers

import (
	"net/http"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"go.uber.org/zap"
)

type SaleHandler struct {
	base
}

func NewSaleHandler(catalog *services.CatalogService, ledger *services.LedgerService, log *zap.Logger) *SaleHandler {
	return &SaleHandler{base: newBase(catalog, ledger, log)}
}

func (h *SaleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /products/{id}/sales", h.Create)
}

// Create records a sale. An oversell is rejected as a whole and reported
// as insufficient stock.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	form, saleDate, v, err := bindSale(w, r, h.today())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !v.Empty() {
		h.invalid(w, r, productID, v)
		return
	}
	sale, err := h.ledger.RecordSale(r.Context(), services.SaleInput{
		ProductID:    productID,
		Quantity:     form.Quantity,
		UnitPrice:    form.UnitPrice,
		BuyerCompany: form.BuyerCompany,
		SaleDate:     saleDate,
	})
	if err != nil {
		h.fail(w, r, err, productURL(productID))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, sale)
		return
	}
	h.redirectWithFlash(w, r, productURL(productID), "flash_sale_recorded")
}
