package fees

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseShare(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0.25", "0.25", false},
		{"25%", "0.25", false},
		{" 1 ", "1", false},
		{"0", "0", false},
		{"100%", "1", false},
		{"1.01", "", true},
		{"-0.1", "", true},
		{"half", "", true},
	}

	for _, tt := range tests {
		got, err := ParseShare(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidShare) {
				t.Errorf("ParseShare(%q): expected ErrInvalidShare, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseShare(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseShare(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestScaleContributionRoundsShareUp(t *testing.T) {
	divisor := big.NewInt(10000)
	amount := big.NewInt(1_000_000)

	// 0.33333 * 10000 = 3333.3 -> ceil 3334 -> 1_000_000*3334/10000 = 333400
	got := ScaleContribution(decimal.RequireFromString("0.33333"), amount, divisor)
	if got.Int64() != 333400 {
		t.Errorf("Expected 333400, got %s", got)
	}

	full := ScaleContribution(decimal.NewFromInt(1), amount, divisor)
	if full.Cmp(amount) != 0 {
		t.Errorf("Full share should return the whole amount, got %s", full)
	}

	zero := ScaleContribution(decimal.Zero, amount, divisor)
	if zero.Sign() != 0 {
		t.Errorf("Zero share should return zero, got %s", zero)
	}
}

func TestScaleContributionNeverUnderFunds(t *testing.T) {
	divisor := big.NewInt(10000)
	amount, _ := new(big.Int).SetString("1234567890123456789012", 10)

	for _, s := range []string{"0.1", "0.123456789", "0.5", "0.99999", "0.00001", "0.7777777"} {
		share := decimal.RequireFromString(s)
		got := ScaleContribution(share, amount, divisor)

		exact := decimal.NewFromBigInt(amount, 0).Mul(share)
		// Allow the final integer division to truncate at most one wei.
		if decimal.NewFromBigInt(got, 0).Add(decimal.NewFromInt(1)).LessThan(exact) {
			t.Errorf("share %s: scaled %s under-funds exact %s", s, got, exact)
		}
		if got.Cmp(amount) > 0 {
			t.Errorf("share %s: scaled %s exceeds amount", s, got)
		}
	}
}

func TestScaleContributionClampsAndGuards(t *testing.T) {
	amount := big.NewInt(500)
	if got := ScaleContribution(decimal.NewFromInt(3), amount, big.NewInt(100)); got.Int64() != 500 {
		t.Errorf("share above 1 should clamp, got %s", got)
	}
	if got := ScaleContribution(decimal.NewFromInt(-1), amount, big.NewInt(100)); got.Sign() != 0 {
		t.Errorf("negative share should clamp to zero, got %s", got)
	}
	if got := ScaleContribution(decimal.NewFromInt(1), amount, big.NewInt(0)); got.Sign() != 0 {
		t.Errorf("zero divisor should yield zero, got %s", got)
	}
}

func TestShareOf(t *testing.T) {
	divisor := big.NewInt(10000)

	got := ShareOf(big.NewInt(250), big.NewInt(1000), divisor)
	if !got.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("Expected 0.25, got %s", got)
	}

	// 1/3 truncates to 3333/10000
	got = ShareOf(big.NewInt(1), big.NewInt(3), divisor)
	if !got.Equal(decimal.RequireFromString("0.3333")) {
		t.Errorf("Expected 0.3333, got %s", got)
	}

	if got := ShareOf(big.NewInt(5000), big.NewInt(1000), divisor); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Over-contribution should clamp to 1, got %s", got)
	}
	if got := ShareOf(big.NewInt(10), big.NewInt(0), divisor); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Nothing remaining should be a full share, got %s", got)
	}
	if got := ShareOf(big.NewInt(0), big.NewInt(0), divisor); !got.IsZero() {
		t.Errorf("Zero contribution should be zero share, got %s", got)
	}
}

func TestShareRoundTrip(t *testing.T) {
	divisor := big.NewInt(10000)
	remaining := big.NewInt(987654321)

	step := decimal.NewFromInt(1).Div(decimal.NewFromBigInt(divisor, 0))

	for _, s := range []string{"0.4321", "0.5", "0.0001", "1"} {
		share := decimal.RequireFromString(s)
		wei := ScaleContribution(share, remaining, divisor)
		back := ShareOf(wei, remaining, divisor)
		// Truncation in both directions may lose at most one step.
		if back.GreaterThan(share) || share.Sub(back).GreaterThan(step) {
			t.Errorf("share %s: got %s back (wei %s)", share, back, wei)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatETH(wei); got != "1.5 ETH" {
		t.Errorf("Expected 1.5 ETH, got %s", got)
	}
	if got := FormatUnits(big.NewInt(1), 18); got != "0.000000000000000001" {
		t.Errorf("Expected 1 wei, got %s", got)
	}
	if got := FormatETH(nil); got != "-" {
		t.Errorf("Expected -, got %s", got)
	}
}
