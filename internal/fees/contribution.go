package fees

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidShare is returned for shares that are not a number in [0, 1].
var ErrInvalidShare = errors.New("share must be a number between 0 and 1")

var one = decimal.NewFromInt(1)

// ParseShare reads a user supplied contribution share such as "0.25" or
// "25%". The value is kept exact; no float conversion happens.
func ParseShare(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidShare, s)
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	if d.IsNegative() || d.GreaterThan(one) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidShare, d)
	}
	return d, nil
}

// ScaleContribution returns the wei to send for a share of amount. The share
// is rounded up to a whole multiple of 1/divisor before scaling, so the
// result never under-funds the requested share.
func ScaleContribution(share decimal.Decimal, amount, divisor *big.Int) *big.Int {
	if amount == nil || divisor == nil || divisor.Sign() <= 0 {
		return new(big.Int)
	}
	share = clampShare(share)

	scaledShare := share.Mul(decimal.NewFromBigInt(divisor, 0)).Ceil().BigInt()

	out := new(big.Int).Mul(amount, scaledShare)
	return out.Quo(out, divisor)
}

// ShareOf is the inverse of ScaleContribution: the fraction of remaining that
// wei covers, truncated to a multiple of 1/divisor and clamped to [0, 1].
// When nothing remains, any positive contribution covers everything.
func ShareOf(wei, remaining, divisor *big.Int) decimal.Decimal {
	if wei == nil || wei.Sign() <= 0 {
		return decimal.Zero
	}
	if remaining == nil || remaining.Sign() <= 0 {
		return one
	}
	if divisor == nil || divisor.Sign() <= 0 {
		return decimal.Zero
	}

	scaled := new(big.Int).Mul(wei, divisor)
	scaled.Quo(scaled, remaining)

	share := decimal.NewFromBigInt(scaled, 0).Div(decimal.NewFromBigInt(divisor, 0))
	return clampShare(share)
}

func clampShare(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}

// FormatUnits renders an integer amount with the given number of decimals,
// without trailing zeros ("1500000000000000000", 18 -> "1.5").
func FormatUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// FormatETH renders a wei amount in ETH.
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	return FormatUnits(wei, 18) + " ETH"
}
