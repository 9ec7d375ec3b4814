package validation

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the format of date form fields.
const DateLayout = "2006-01-02"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		v[field] = "too_long"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

// RequiredDecimal records a violation when val is missing and returns the
// dereferenced value otherwise.
func RequiredDecimal(field string, val *decimal.Decimal, v Violations) decimal.Decimal {
	if val == nil {
		v[field] = "required"
		return decimal.Zero
	}
	return *val
}

// OptionalURL accepts an empty value or an absolute http(s) URL.
func OptionalURL(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v[field] = "invalid_url"
	}
}

// Parsers record a violation and return the zero value on bad input.

func ParseInt(field, raw string, v Violations) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		v[field] = "invalid_number"
		return 0
	}
	return n
}

// ParseDecimal accepts both "12.50" and "12,50".
func ParseDecimal(field, raw string, v Violations) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v[field] = "invalid_number"
		return decimal.Zero
	}
	return d
}

// ParseOptionalDecimal returns nil for an empty value.
func ParseOptionalDecimal(field, raw string, v Violations) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d := ParseDecimal(field, raw, v)
	if _, bad := v[field]; bad {
		return nil
	}
	return &d
}

func ParseDate(field, raw string, v Violations) time.Time {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		v[field] = "invalid_date"
		return time.Time{}
	}
	return d
}
