package currency

// RateProvider supplies the current rate for a currency. Unknown
// currencies resolve to 1.0, so lookups never fail.
type RateProvider interface {
	Rate(currency string) float64
}

// Converter maps amounts between a currency and the base currency using
// an injected rate table. No rounding happens here; formatting is a
// presentation concern.
type Converter struct {
	rates RateProvider
}

func NewConverter(rates RateProvider) *Converter {
	return &Converter{rates: rates}
}

// ToBase converts an amount entered in from-currency to base currency.
// One base unit is worth rate(from) units of from, hence the division.
func (c *Converter) ToBase(amount float64, from string) float64 {
	if from == Base {
		return amount
	}
	return amount / c.rates.Rate(from)
}

// FromBase converts a stored base-currency amount to a display currency.
func (c *Converter) FromBase(amount float64, to string) float64 {
	if to == Base {
		return amount
	}
	return amount * c.rates.Rate(to)
}

// Convert maps an amount between two arbitrary currencies. Identical
// currencies short-circuit so a stale rate table can never drift a
// round trip.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	return c.FromBase(c.ToBase(amount, from), to)
}

// ConversionRate returns how many units of to-currency one unit of
// from-currency buys.
func (c *Converter) ConversionRate(from, to string) float64 {
	return c.Convert(1.0, from, to)
}
