/*
Scaled integer arithmetic over token base units.

Every operation takes values at independent decimal scales and produces a
result at a caller-chosen scale, computed entirely over big integers so no
intermediate step can lose precision to floating point. Rescaling by division
truncates toward zero.

Divide and Ratio treat a zero denominator differently on purpose: a zero
divisor in direct arithmetic is a programming error and fails loudly, while a
zero denominator in a health-ratio context means the position has no loan
value and the ratio is reported as 0.
*/

package bigmath

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/tidelend/core/internal/fixedpoint"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidScale   = errors.New("decimal scale is invalid")
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrResultOverflow = errors.New("result exceeds the 256-bit integer range")
)

// BPSDenominator is the basis-point unit: 10000 represents 100%.
const BPSDenominator = 10_000

var basisPoints = big.NewInt(BPSDenominator)

// Multiply computes a*b where a carries scaleA fractional digits and b
// carries scaleB, returning the product rescaled to scaleResult.
func Multiply(a, b sdkmath.Int, scaleA, scaleB, scaleResult int) (sdkmath.Int, error) {
	if err := checkScales(scaleA, scaleB, scaleResult); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := checkAmounts(a, b); err != nil {
		return sdkmath.ZeroInt(), err
	}

	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return rescale(product, scaleA+scaleB, scaleResult)
}

// Divide computes a/b at scaleResult. The numerator is pre-scaled by
// 10^(scaleResult+scaleB-scaleA) so the single integer division at the end is
// the only truncation point; when that exponent is negative the factor moves
// to the denominator, which yields the same quotient.
func Divide(a, b sdkmath.Int, scaleA, scaleB, scaleResult int) (sdkmath.Int, error) {
	if err := checkScales(scaleA, scaleB, scaleResult); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := checkAmounts(a, b); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if b.IsZero() {
		return sdkmath.ZeroInt(), ErrDivisionByZero
	}

	num := a.BigInt()
	den := b.BigInt()
	exp := scaleResult + scaleB - scaleA
	if exp >= 0 {
		num.Mul(num, pow10(exp))
	} else {
		den.Mul(den, pow10(-exp))
	}
	num.Quo(num, den)
	return boundedInt(num)
}

// Percentage applies a basis-point rate to a value, truncating: value at 75%
// is Percentage(value, 7500, scale). The result keeps the value's scale.
func Percentage(value sdkmath.Int, bps uint64, scale int) (sdkmath.Int, error) {
	if err := checkScales(scale); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := checkAmounts(value); err != nil {
		return sdkmath.ZeroInt(), err
	}

	v := value.BigInt()
	v.Mul(v, new(big.Int).SetUint64(bps))
	v.Quo(v, basisPoints)
	return boundedInt(v)
}

// Ratio returns numerator/denominator in basis points, normalizing both
// operands to the larger of the two scales first. A zero denominator returns
// 0 with no error; this is the documented contract for health ratios, where
// no loan value means there is nothing to be under-collateralized against.
func Ratio(numerator, denominator sdkmath.Int, scaleNum, scaleDen int) (sdkmath.Int, error) {
	if err := checkScales(scaleNum, scaleDen); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := checkAmounts(numerator, denominator); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if denominator.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	num := numerator.BigInt()
	den := denominator.BigInt()
	if scaleNum < scaleDen {
		num.Mul(num, pow10(scaleDen-scaleNum))
	} else if scaleDen < scaleNum {
		den.Mul(den, pow10(scaleNum-scaleDen))
	}
	num.Mul(num, basisPoints)
	num.Quo(num, den)
	return boundedInt(num)
}

// rescale moves a raw big integer from one scale to another, truncating when
// the target scale is smaller.
func rescale(value *big.Int, from, to int) (sdkmath.Int, error) {
	switch {
	case to > from:
		value.Mul(value, pow10(to-from))
	case to < from:
		value.Quo(value, pow10(from-to))
	}
	return boundedInt(value)
}

func checkScales(scales ...int) error {
	for _, s := range scales {
		if s < 0 || s > fixedpoint.MaxSupportedScale {
			return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidScale, s, fixedpoint.MaxSupportedScale)
		}
	}
	return nil
}

func checkAmounts(amounts ...sdkmath.Int) error {
	for _, a := range amounts {
		if a.IsNil() {
			return ErrAmountNil
		}
		if a.IsNegative() {
			return ErrAmountNegative
		}
	}
	return nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func boundedInt(value *big.Int) (sdkmath.Int, error) {
	if value.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), ErrResultOverflow
	}
	return sdkmath.NewIntFromBigInt(value), nil
}
