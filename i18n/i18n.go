package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "en"

// Supported lists the languages with a message table.
var Supported = []string{"en", "de"}

var messages = map[string]map[string]string{
	"en": {
		"required":             "Required",
		"too_long":             "Too long",
		"invalid_number":       "Not a number",
		"invalid_date":         "Not a valid date",
		"invalid_url":          "Not a valid URL",
		"must_be_positive":     "Must be greater than zero",
		"must_not_be_negative": "Must not be negative",

		"products":       "Products",
		"product":        "Product",
		"new_product":    "New product",
		"edit_product":   "Edit product",
		"name":           "Name",
		"description":    "Description",
		"category":       "Category",
		"all_categories": "All categories",
		"netto_price":    "Net price",
		"in_stock":       "In stock",
		"image_link":     "Image link",
		"search":         "Search",
		"filter":         "Filter",
		"reset":          "Reset",
		"stock":          "Stock",
		"stock_any":      "Any stock",
		"stock_in":       "In stock",
		"stock_out":      "Out of stock",
		"min_price":      "Min price",
		"max_price":      "Max price",
		"save":           "Save",
		"cancel":         "Cancel",
		"back":           "Back",
		"edit":           "Edit",
		"details":        "Details",
		"no_products":    "No products match the filters.",
		"purchases":      "Purchases",
		"sales":          "Sales",
		"quantity":       "Quantity",
		"unit_price":     "Unit price",
		"total":          "Total",
		"expected":       "Expected delivery",
		"delivered_at":   "Delivered",
		"status":         "Status",
		"pending":        "Pending",
		"delivered":      "Delivered",
		"deliver":        "Mark delivered",
		"delete":         "Delete",
		"buyer_company":  "Buyer company",
		"sale_date":      "Sale date",
		"add_purchase":   "Order from supplier",
		"add_sale":       "Record sale",
		"update_price":   "Update price",
		"no_purchases":   "No purchases yet.",
		"no_sales":       "No sales yet.",
		"error":          "Something went wrong",
		"not_found":      "Not found",
		"updated":        "Last change",

		"flash_product_created":    "Product created.",
		"flash_product_updated":    "Product updated.",
		"flash_price_updated":      "Price updated.",
		"flash_purchase_created":   "Purchase ordered.",
		"flash_purchase_delivered": "Purchase delivered, stock updated.",
		"flash_purchase_deleted":   "Purchase deleted.",
		"flash_sale_recorded":      "Sale successfully recorded.",
		"flash_insufficient_stock": "Not enough stock available for this sale.",
		"flash_conflict":           "The product was changed in the meantime. Please reload and try again.",
		"flash_invalid_input":      "Please check your input.",
	},
	"de": {
		"required":             "Pflichtfeld",
		"too_long":             "Zu lang",
		"invalid_number":       "Keine Zahl",
		"invalid_date":         "Kein gültiges Datum",
		"invalid_url":          "Keine gültige URL",
		"must_be_positive":     "Muss größer als null sein",
		"must_not_be_negative": "Darf nicht negativ sein",

		"products":       "Produkte",
		"product":        "Produkt",
		"new_product":    "Neues Produkt",
		"edit_product":   "Produkt bearbeiten",
		"name":           "Name",
		"description":    "Beschreibung",
		"category":       "Kategorie",
		"all_categories": "Alle Kategorien",
		"netto_price":    "Nettopreis",
		"in_stock":       "Lagerbestand",
		"image_link":     "Bild-Link",
		"search":         "Suche",
		"filter":         "Filtern",
		"reset":          "Zurücksetzen",
		"stock":          "Bestand",
		"stock_any":      "Beliebiger Bestand",
		"stock_in":       "Auf Lager",
		"stock_out":      "Nicht auf Lager",
		"min_price":      "Mindestpreis",
		"max_price":      "Höchstpreis",
		"save":           "Speichern",
		"cancel":         "Abbrechen",
		"back":           "Zurück",
		"edit":           "Bearbeiten",
		"details":        "Details",
		"no_products":    "Keine Produkte gefunden.",
		"purchases":      "Einkäufe",
		"sales":          "Verkäufe",
		"quantity":       "Menge",
		"unit_price":     "Stückpreis",
		"total":          "Summe",
		"expected":       "Erwartete Lieferung",
		"delivered_at":   "Geliefert",
		"status":         "Status",
		"pending":        "Offen",
		"delivered":      "Geliefert",
		"deliver":        "Als geliefert markieren",
		"delete":         "Löschen",
		"buyer_company":  "Käuferfirma",
		"sale_date":      "Verkaufsdatum",
		"add_purchase":   "Beim Lieferanten bestellen",
		"add_sale":       "Verkauf erfassen",
		"update_price":   "Preis ändern",
		"no_purchases":   "Noch keine Einkäufe.",
		"no_sales":       "Noch keine Verkäufe.",
		"error":          "Etwas ist schiefgelaufen",
		"not_found":      "Nicht gefunden",
		"updated":        "Letzte Änderung",

		"flash_product_created":    "Produkt angelegt.",
		"flash_product_updated":    "Produkt gespeichert.",
		"flash_price_updated":      "Preis geändert.",
		"flash_purchase_created":   "Einkauf bestellt.",
		"flash_purchase_delivered": "Einkauf geliefert, Bestand aktualisiert.",
		"flash_purchase_deleted":   "Einkauf gelöscht.",
		"flash_sale_recorded":      "Verkauf erfolgreich erfasst.",
		"flash_insufficient_stock": "Nicht genügend Bestand für diesen Verkauf.",
		"flash_conflict":           "Das Produkt wurde zwischenzeitlich geändert. Bitte neu laden.",
		"flash_invalid_input":      "Bitte Eingaben prüfen.",
	},
}

// IsSupported reports whether lang has a message table.
func IsSupported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// DetectLanguage picks the first supported language from an Accept-Language
// header, falling back to DefaultLang.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if IsSupported(base) {
			return base
		}
	}
	return DefaultLang
}

// T translates code for lang. Unknown languages use DefaultLang, unknown
// codes are returned as is.
func T(lang, code string) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[DefaultLang]
	}
	if msg, ok := table[code]; ok {
		return msg
	}
	if msg, ok := messages[DefaultLang][code]; ok {
		return msg
	}
	return code
}

type langKey struct{}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the language stored by WithLang or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
