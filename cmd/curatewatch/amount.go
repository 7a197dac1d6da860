package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// parseWei parses an amount given either in wei ("1500000000000000000") or
// in ETH with a suffix ("1.5eth"). Fractions of a wei are rejected.
func parseWei(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	shift := int32(0)
	switch {
	case strings.HasSuffix(s, "eth"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "eth"))
		shift = 18
	case strings.HasSuffix(s, "gwei"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "gwei"))
		shift = 9
	case strings.HasSuffix(s, "wei"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "wei"))
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	d = d.Shift(shift)
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	return d.BigInt(), nil
}

// bigFlag is a pflag.Value holding a wei amount.
type bigFlag struct {
	v *big.Int
}

func (f *bigFlag) String() string {
	if f.v == nil {
		return ""
	}
	return f.v.String()
}

func (f *bigFlag) Set(s string) error {
	v, err := parseWei(s)
	if err != nil {
		return err
	}
	f.v = v
	return nil
}

func (f *bigFlag) Type() string {
	return "amount"
}
