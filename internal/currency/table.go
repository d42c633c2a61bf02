// Package currency holds the rate table, the conversion primitives and
// the country/currency metadata used by the presentation layer.
//
// All persisted amounts are in the base currency (PHP). A rate is the
// number of units of a currency equivalent to one peso, so converting to
// base divides and converting from base multiplies.
package currency

// Base is the fixed base currency every amount is stored in.
const Base = "PHP"

// DefaultCountry selects the currency shown to users who never picked one.
const DefaultCountry = "Philippines"

// FallbackRates is the built-in rate table used whenever the live rate
// source is unreachable and no fresh snapshot is cached. Base is always
// exactly 1.0.
var FallbackRates = map[string]float64{
	"PHP": 1.0,
	"USD": 0.018,
	"GBP": 0.014,
	"EUR": 0.017,
	"JPY": 2.65,
	"AUD": 0.028,
	"CAD": 0.025,
	"SGD": 0.024,
	"HKD": 0.14,
	"KRW": 24.0,
}

// Country describes a selectable display locale.
type Country struct {
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
	Flag     string `json:"flag"`
}

// Countries maps country names to their display currency.
var Countries = map[string]Country{
	"Philippines":    {Currency: "PHP", Symbol: "₱", Flag: "🇵🇭"},
	"United States":  {Currency: "USD", Symbol: "$", Flag: "🇺🇸"},
	"United Kingdom": {Currency: "GBP", Symbol: "£", Flag: "🇬🇧"},
	"European Union": {Currency: "EUR", Symbol: "€", Flag: "🇪🇺"},
	"Japan":          {Currency: "JPY", Symbol: "¥", Flag: "🇯🇵"},
	"Australia":      {Currency: "AUD", Symbol: "A$", Flag: "🇦🇺"},
	"Canada":         {Currency: "CAD", Symbol: "C$", Flag: "🇨🇦"},
	"Singapore":      {Currency: "SGD", Symbol: "S$", Flag: "🇸🇬"},
	"Hong Kong":      {Currency: "HKD", Symbol: "HK$", Flag: "🇭🇰"},
	"South Korea":    {Currency: "KRW", Symbol: "₩", Flag: "🇰🇷"},
}

// CountryInfo returns the currency info for a country, falling back to
// the default country for unknown names.
func CountryInfo(name string) Country {
	if c, ok := Countries[name]; ok {
		return c
	}
	return Countries[DefaultCountry]
}

// Symbol returns the currency symbol for a country name.
func Symbol(name string) string {
	return CountryInfo(name).Symbol
}

func fallbackCopy() map[string]float64 {
	rates := make(map[string]float64, len(FallbackRates))
	for c, r := range FallbackRates {
		rates[c] = r
	}
	return rates
}
