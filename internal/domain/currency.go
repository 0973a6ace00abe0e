package domain

// SupportedCurrency maps each supported ISO-4217 code to its minor-unit
// exponent (decimal places used when persisting or displaying amounts).
var SupportedCurrency = map[string]int32{
	"GBP": 2,
	"EUR": 2,
	"USD": 2,
	"CHF": 2,
	"JPY": 0,
	"CAD": 2,
	"AUD": 2,
	"NZD": 2,
	"SEK": 2,
	"NOK": 2,
	"DKK": 2,
	"PLN": 2,
	"CZK": 2,
}

func IsSupportedCurrency(code string) bool {
	_, ok := SupportedCurrency[code]
	return ok
}

// MinorUnits returns the number of decimal places for a currency.
// Unknown codes default to 2.
func MinorUnits(code string) int32 {
	if exp, ok := SupportedCurrency[code]; ok {
		return exp
	}
	return 2
}
