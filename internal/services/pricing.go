package services

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Rand is the randomness the ledger draws supplier price variance from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// globalRand uses the locked top-level source of math/rand/v2 and is safe
// to share between requests.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

const (
	minVariancePercent = 5
	maxVariancePercent = 10
)

// PurchasePrice moves netto by 5 to 10 percent, up or down with equal
// probability, and rounds to cents.
func PurchasePrice(netto decimal.Decimal, r Rand) decimal.Decimal {
	percent := minVariancePercent + r.IntN(maxVariancePercent-minVariancePercent+1)
	delta := decimal.New(int64(percent), -2)
	if r.IntN(2) == 0 {
		delta = delta.Neg()
	}
	return netto.Mul(decimal.NewFromInt(1).Add(delta)).Round(2)
}
