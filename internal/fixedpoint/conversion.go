/*
This file converts between human-readable decimal amounts and integer base
units scaled by 10^decimals.

Parsing and rendering are exact string decomposition over big integers.
Floating point never enters the conversion path; the only float entry point is
Float64ToBaseUnit, which round-trips through a fixed-precision string first.
*/

package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidScale    = errors.New("decimal scale is invalid")
	ErrAmountNil       = errors.New("amount is nil")
	ErrAmountNegative  = errors.New("amount is negative")
	ErrNotFinite       = errors.New("value is not finite")
	ErrMalformedAmount = errors.New("amount is not a valid decimal string")
	ErrAmountOverflow  = errors.New("amount exceeds the 256-bit integer range")
)

const (
	// MaxSupportedScale bounds every decimal scale accepted by the numeric
	// packages. 36 covers the product of two 18-decimal operands.
	MaxSupportedScale = 36

	// CanonicalUSDScale is the scale all USD prices and values are carried at.
	CanonicalUSDScale = 18
)

// Rendering switches to scientific notation outside this exponent window.
const (
	sciSmallExponent = -7
	sciLargeExponent = 21
)

// ToBaseUnit parses a human decimal string into base units at the given scale.
// An empty string is the additive identity: it returns zero with no error.
// Fractional digits beyond the scale are truncated, never rounded; callers
// that must reject excess precision validate before converting.
func ToBaseUnit(amount string, decimals int) (sdkmath.Int, error) {
	if err := checkScale(decimals); err != nil {
		return sdkmath.ZeroInt(), err
	}

	s := strings.TrimSpace(amount)
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	if strings.HasPrefix(s, "-") {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	s = strings.TrimPrefix(s, "+")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}
	if intPart == "" && fracPart == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}

	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	combined := intPart + fracPart
	if combined == "" {
		combined = "0"
	}
	value, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}
	return boundedInt(value)
}

// Float64ToBaseUnit converts a float to base units at the given scale.
// The value is rendered to a fixed-precision string first so binary float
// artifacts cannot leak into the integer representation.
func Float64ToBaseUnit(amount float64, decimals int) (sdkmath.Int, error) {
	if err := checkScale(decimals); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}
	return ToBaseUnit(strconv.FormatFloat(amount, 'f', decimals, 64), decimals)
}

// FromBaseUnit renders base units as the shortest exact decimal string.
// Trailing zeros are stripped; values whose leading digit falls outside the
// [1e-6, 1e21) window render in scientific notation, so one base unit at
// 18 decimals comes back as "1e-18".
func FromBaseUnit(amount sdkmath.Int, decimals int) (string, error) {
	if err := checkScale(decimals); err != nil {
		return "", err
	}
	if amount.IsNil() {
		return "", ErrAmountNil
	}
	if amount.IsNegative() {
		return "", ErrAmountNegative
	}
	if amount.IsZero() {
		return "0", nil
	}

	digits := amount.BigInt().String()
	exponent := len(digits) - 1 - decimals
	if exponent <= sciSmallExponent || exponent >= sciLargeExponent {
		return scientificForm(digits, exponent), nil
	}

	if decimals == 0 {
		return digits, nil
	}
	var intPart, fracPart string
	if len(digits) > decimals {
		intPart, fracPart = digits[:len(digits)-decimals], digits[len(digits)-decimals:]
	} else {
		intPart = "0"
		fracPart = strings.Repeat("0", decimals-len(digits)) + digits
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart, nil
	}
	return intPart + "." + fracPart, nil
}

// FromBaseUnitRounded renders base units with exactly precision fractional
// digits, rounding half-up and zero-padding. 1239999 at scale 6 with
// precision 2 renders as "1.24".
func FromBaseUnitRounded(amount sdkmath.Int, decimals, precision int) (string, error) {
	if err := checkScale(decimals); err != nil {
		return "", err
	}
	if precision < 0 || precision > MaxSupportedScale {
		return "", fmt.Errorf("%w: precision %d (must be between 0 and %d)", ErrInvalidScale, precision, MaxSupportedScale)
	}
	if amount.IsNil() {
		return "", ErrAmountNil
	}
	if amount.IsNegative() {
		return "", ErrAmountNegative
	}

	scaled := amount.BigInt()
	switch {
	case precision < decimals:
		divisor := pow10Big(decimals - precision)
		half := new(big.Int).Quo(divisor, big.NewInt(2))
		scaled.Add(scaled, half)
		scaled.Quo(scaled, divisor)
	case precision > decimals:
		scaled.Mul(scaled, pow10Big(precision-decimals))
	}

	digits := scaled.String()
	if precision == 0 {
		return digits, nil
	}
	if len(digits) <= precision {
		digits = strings.Repeat("0", precision-len(digits)+1) + digits
	}
	cut := len(digits) - precision
	return digits[:cut] + "." + digits[cut:], nil
}

// Pow10 returns 10^n as an Int. n must be within the supported scale range.
func Pow10(n int) sdkmath.Int {
	return sdkmath.NewIntFromBigInt(pow10Big(n))
}

func pow10Big(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// scientificForm renders decimal digits as mantissa plus exponent, with the
// exponent anchored on the leading significant digit.
func scientificForm(digits string, exponent int) string {
	mantissa := strings.TrimRight(digits, "0")
	out := mantissa[:1]
	if len(mantissa) > 1 {
		out += "." + mantissa[1:]
	}
	if exponent < 0 {
		return fmt.Sprintf("%se-%d", out, -exponent)
	}
	return fmt.Sprintf("%se+%d", out, exponent)
}

func checkScale(scale int) error {
	if scale < 0 || scale > MaxSupportedScale {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidScale, scale, MaxSupportedScale)
	}
	return nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// boundedInt converts a big.Int to an Int, surfacing the 256-bit range bound
// as an error instead of the panic the underlying type raises.
func boundedInt(value *big.Int) (sdkmath.Int, error) {
	if value.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), ErrAmountOverflow
	}
	return sdkmath.NewIntFromBigInt(value), nil
}
