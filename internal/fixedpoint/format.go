/*
Display formatting for token amounts and USD values.

These functions sit at the final human-display boundary and are deliberately
forgiving: malformed input renders as a zero amount instead of an error, so a
broken price string can never take a page down. Everything upstream of here
stays integer-exact.
*/

package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.English)

// FormatTokenAmount renders base units as "<amount> <symbol>" using the
// shortest exact representation. Invalid inputs render as a zero amount.
func FormatTokenAmount(amount sdkmath.Int, decimals int, symbol string) string {
	rendered, err := FromBaseUnit(amount, decimals)
	if err != nil {
		rendered = "0"
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return rendered
	}
	return rendered + " " + symbol
}

// FormatUSDValue renders a human decimal price string as a grouped USD
// amount, e.g. "4500" becomes "$4,500.00". Cents are rounded half-up.
// Zero, empty, negative, or non-numeric input returns "$0.00".
func FormatUSDValue(price string) string {
	cents, err := usdCents(price)
	if err != nil || cents.Sign() <= 0 {
		return "$0.00"
	}

	dollars, rem := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))
	if dollars.IsInt64() {
		return usdPrinter.Sprintf("$%d.%02d", dollars.Int64(), rem.Int64())
	}
	return "$" + groupDigits(dollars.String()) + fmt.Sprintf(".%02d", rem.Int64())
}

// usdCents parses a decimal price string into whole cents, rounding the
// third fractional digit half-up. Currency symbols and grouping commas are
// tolerated on input.
func usdCents(price string) (*big.Int, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil, ErrMalformedAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrAmountNegative
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, price)
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, price)
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, price)
	}
	cents := whole.Mul(whole, big.NewInt(100))

	fracCents := 0
	if len(fracPart) >= 1 {
		fracCents = int(fracPart[0]-'0') * 10
	}
	if len(fracPart) >= 2 {
		fracCents += int(fracPart[1] - '0')
	}
	if len(fracPart) >= 3 && fracPart[2] >= '5' {
		fracCents++
	}
	cents.Add(cents, big.NewInt(int64(fracCents)))
	return cents, nil
}

// groupDigits inserts thousands separators into a bare digit string. Only
// reached for dollar amounts beyond the int64 range of the locale printer.
func groupDigits(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
