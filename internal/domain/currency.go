package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies charged in whole units at the gateway
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// Currencies with three decimal places. The gateway only accepts amounts
// whose last minor-unit digit is zero.
var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {},
}

// CurrencyExponent returns the number of decimal places of currency's minor unit
func CurrencyExponent(currency string) int32 {
	code := strings.ToUpper(currency)
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return 3
	}
	return 2
}

// ToMinorUnits converts amount to the smallest unit of currency, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := CurrencyExponent(currency)
	minor := amount.Shift(exp).Round(0)
	if exp == 3 {
		minor = minor.Round(-1)
	}
	return minor.IntPart()
}
