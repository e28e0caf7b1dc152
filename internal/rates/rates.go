package rates

import "errors"

var (
	// ErrUnsupportedCurrency occurs when no rate is configured for the source currency.
	ErrUnsupportedCurrency = errors.New("unsupported source currency")

	// ErrInvalidAmount occurs when the source amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Quote maps an amount of source-currency minor units to settlement-currency
// minor units. Implementations must be pure: no side effects, no I/O.
type Quote func(amount int64, currency string) (int64, error)

// FixedUZS builds a Quote for the UZS on-ramp at a fixed rate of uzsPerUnit
// UZS per one whole unit of the settlement currency. Both currencies share
// the same minor-unit scale, so the conversion is integer division by the
// whole-unit rate, rounded down.
func FixedUZS(uzsPerUnit int64) Quote {
	return func(amount int64, currency string) (int64, error) {
		if currency != "UZS" {
			return 0, ErrUnsupportedCurrency
		}
		if amount <= 0 {
			return 0, ErrInvalidAmount
		}
		return amount / uzsPerUnit, nil
	}
}
