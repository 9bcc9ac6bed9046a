package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// HumanizeAmount converts a raw on-chain amount to a human-readable string
// using the given decimal scale. The integer part is computed with integer
// division and the fractional part from the remainder, so no precision is
// lost regardless of magnitude. Trailing fractional zeros are trimmed; a
// fully-zero fraction emits no decimal point.
// Example: amount=5566768803, decimals=8 => "55.66768803"
func HumanizeAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	integer, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))

	fracStr := frac.String()
	if padding := decimals - len(fracStr); padding > 0 {
		fracStr = strings.Repeat("0", padding) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")

	if fracStr == "" {
		return integer.String()
	}
	return integer.String() + "." + fracStr
}

// UsdValue prices a raw amount: priceUsd * (amount / 10^decimals). A nil
// price yields nil, not zero.
func UsdValue(amount *big.Int, decimals int, priceUsd *decimal.Decimal) *decimal.Decimal {
	if amount == nil || priceUsd == nil {
		return nil
	}
	human := decimal.NewFromBigInt(amount, 0)
	if decimals > 0 {
		human = human.Shift(int32(-decimals))
	}
	value := priceUsd.Mul(human)
	return &value
}
