// Package amount converts raw integer token values to and from exact decimal
// strings. All arithmetic stays in big.Int; values never pass through a
// binary floating-point type.
package amount

import (
	"fmt"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// FormatUnits renders a raw integer value as a decimal string scaled down by
// 10^decimals. The result is exact: trailing fractional zeros are trimmed and
// a whole number carries no decimal point.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	if decimals == 0 {
		return raw.String()
	}

	scale := pow10(decimals)
	quotient, remainder := new(big.Int).QuoRem(raw, scale, new(big.Int))

	sign := ""
	if raw.Sign() < 0 {
		sign = "-"
		quotient.Abs(quotient)
		remainder.Abs(remainder)
	}

	if remainder.Sign() == 0 {
		return sign + quotient.String()
	}

	fraction := strings.TrimRight(
		fmt.Sprintf("%0*s", int(decimals), remainder.String()),
		"0",
	)
	return sign + quotient.String() + "." + fraction
}

// ParseUnits is the exact inverse of FormatUnits: it expands a decimal string
// back to the raw integer at the given precision. The fractional part must
// fit in decimals digits.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}

	sign := ""
	if strings.HasPrefix(value, "-") {
		sign = "-"
		value = value[1:]
	}

	whole := value
	fraction := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		fraction = value[idx+1:]
	}
	if whole == "" && fraction == "" {
		return nil, fmt.Errorf("invalid amount: %q", value)
	}
	if whole == "" {
		whole = "0"
	}
	if len(fraction) > int(decimals) {
		return nil, fmt.Errorf("amount %q exceeds %d decimals", value, decimals)
	}

	padded := fraction + strings.Repeat("0", int(decimals)-len(fraction))
	raw, ok := new(big.Int).SetString(sign+whole+padded, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", value)
	}
	return raw, nil
}

// ScaleDecimals rescales a raw integer from one decimal precision to another.
// The target precision must be at least the source precision so the scaling
// factor is an exact power of ten.
func ScaleDecimals(raw *big.Int, from, to uint8) (*big.Int, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil value")
	}
	if to < from {
		return nil, fmt.Errorf("cannot scale from %d to %d decimals without precision loss", from, to)
	}
	return new(big.Int).Mul(raw, pow10(to-from)), nil
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil)
}
