package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/middleware"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"github.com/diewo77/go-klemmbausteine/validation"
	"github.com/diewo77/go-klemmbausteine/view"
	"go.uber.org/zap"
)

// base carries what every ledger-facing handler needs.
type base struct {
	catalog *services.CatalogService
	ledger  *services.LedgerService
	log     *zap.Logger
}

func newBase(catalog *services.CatalogService, ledger *services.LedgerService, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{catalog: catalog, ledger: ledger, log: log}
}

// parseID reads the {id} path value. Anything that is not a positive integer
// can never resolve, so it is reported as not found.
func parseID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func productURL(id uint) string {
	return "/products/" + strconv.FormatUint(uint64(id), 10)
}

// today is the ledger clock truncated to a calendar date.
func (b *base) today() time.Time {
	now := b.ledger.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (b *base) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, code string) {
	if code != "" {
		middleware.Flash(w, r, code)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (b *base) notFound(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusNotFound, services.ErrNotFound.Error(), nil)
		return
	}
	b.errorPage(w, r, http.StatusNotFound, "not_found")
}

func (b *base) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	b.errorPage(w, r, http.StatusBadRequest, "flash_invalid_input")
}

func (b *base) errorPage(w http.ResponseWriter, r *http.Request, status int, code string) {
	err := view.RenderStatus(w, r, status, "error.html", map[string]any{
		"Status":  status,
		"Message": code,
	})
	if err != nil {
		b.log.Error("render error page", zap.Error(err))
		http.Error(w, http.StatusText(status), status)
	}
}

// fail maps a service error to a response. Recoverable ledger errors send
// HTML clients back to `back` with a flash message.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	wantsJSON := httpx.WantsJSON(r)
	switch {
	case errors.Is(err, services.ErrNotFound):
		b.notFound(w, r)
	case errors.Is(err, services.ErrInsufficientStock):
		if wantsJSON {
			httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
			return
		}
		b.redirectWithFlash(w, r, back, "flash_insufficient_stock")
	case errors.Is(err, services.ErrConflict):
		if wantsJSON {
			httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
			return
		}
		b.redirectWithFlash(w, r, back, "flash_conflict")
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrInvalidBuyer):
		if wantsJSON {
			httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		b.redirectWithFlash(w, r, back, "flash_invalid_input")
	default:
		b.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if wantsJSON {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		b.errorPage(w, r, http.StatusInternalServerError, "error")
	}
}

// renderDetail draws the product page, optionally with form errors and the
// submitted values so the failing form can be corrected.
func (b *base) renderDetail(w http.ResponseWriter, r *http.Request, status int, productID uint, errs validation.Violations, values url.Values) {
	product, err := b.catalog.GetProductDetail(r.Context(), productID)
	if err != nil {
		b.fail(w, r, err, "/products")
		return
	}
	if errs == nil {
		errs = validation.Violations{}
	}
	if values == nil {
		values = url.Values{}
	}
	err = view.RenderStatus(w, r, status, "products/show.html", map[string]any{
		"Product": product,
		"Flash":   middleware.PopFlash(w, r),
		"Errors":  errs,
		"Values":  values,
		"Today":   b.today(),
	})
	if err != nil {
		b.fail(w, r, err, "/products")
	}
}

// invalid answers a request whose input failed validation.
func (b *base) invalid(w http.ResponseWriter, r *http.Request, productID uint, v validation.Violations) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	b.renderDetail(w, r, http.StatusBadRequest, productID, v, r.PostForm)
}
