package models

import (
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// USDCDecimals is the number of fractional digits in one display unit.
const USDCDecimals = 6

const ruleAmount = "must match ^[0-9]+$"

var amountPattern = regexp.MustCompile(`^[0-9]+$`)

// FormatUSDCAmount converts a canonical smallest-unit amount into its exact
// display value. The input must already satisfy the amount format; a parse
// failure here is a programming error.
func FormatUSDCAmount(amount string) decimal.Decimal {
	units, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		panic("models: FormatUSDCAmount called with unvalidated amount " + amount)
	}
	return decimal.NewFromBigInt(units, -USDCDecimals)
}
