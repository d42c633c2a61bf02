package currency

import (
	"math"
	"testing"
)

// staticRates is a fixed RateProvider for deterministic conversion tests.
type staticRates map[string]float64

func (s staticRates) Rate(currency string) float64 {
	if r, ok := s[currency]; ok {
		return r
	}
	return 1.0
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConverterToBase(t *testing.T) {
	c := NewConverter(staticRates{"USD": 0.02, "JPY": 2.5})

	tests := []struct {
		name   string
		amount float64
		from   string
		want   float64
	}{
		{"base currency is identity", 100, "PHP", 100},
		{"divides by the rate", 2, "USD", 100},
		{"fractional rate above one", 250, "JPY", 100},
		{"unknown currency defaults to rate one", 42, "XXX", 42},
		{"zero stays zero", 0, "USD", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ToBase(tt.amount, tt.from); !approxEqual(got, tt.want) {
				t.Errorf("ToBase(%v, %q) = %v, want %v", tt.amount, tt.from, got, tt.want)
			}
		})
	}
}

func TestConverterFromBase(t *testing.T) {
	c := NewConverter(staticRates{"USD": 0.02})

	if got := c.FromBase(100, "USD"); !approxEqual(got, 2) {
		t.Errorf("FromBase(100, USD) = %v, want 2", got)
	}
	if got := c.FromBase(100, "PHP"); !approxEqual(got, 100) {
		t.Errorf("FromBase(100, PHP) = %v, want 100", got)
	}
}

func TestConverterRoundTrip(t *testing.T) {
	c := NewConverter(staticRates{"USD": 0.018, "KRW": 24.0, "GBP": 0.014})

	for _, cur := range []string{"USD", "KRW", "GBP", "PHP"} {
		for _, amount := range []float64{0.01, 1, 99.99, 12345.67} {
			got := c.FromBase(c.ToBase(amount, cur), cur)
			if !approxEqual(got, amount) {
				t.Errorf("round trip %v %s = %v", amount, cur, got)
			}
		}
	}
}

func TestConverterConvert(t *testing.T) {
	c := NewConverter(staticRates{"USD": 0.02, "EUR": 0.016})

	// Same-currency conversion short-circuits regardless of the table.
	if got := c.Convert(55.5, "USD", "USD"); got != 55.5 {
		t.Errorf("Convert identity = %v, want 55.5", got)
	}

	// 100 USD -> 5000 PHP -> 80 EUR.
	if got := c.Convert(100, "USD", "EUR"); !approxEqual(got, 80) {
		t.Errorf("Convert(100, USD, EUR) = %v, want 80", got)
	}
}

func TestConversionRate(t *testing.T) {
	c := NewConverter(staticRates{"USD": 0.02})

	if got := c.ConversionRate("PHP", "USD"); !approxEqual(got, 0.02) {
		t.Errorf("ConversionRate(PHP, USD) = %v, want 0.02", got)
	}
	if got := c.ConversionRate("USD", "PHP"); !approxEqual(got, 50) {
		t.Errorf("ConversionRate(USD, PHP) = %v, want 50", got)
	}
}

func TestCountryInfo(t *testing.T) {
	if got := CountryInfo("Japan").Currency; got != "JPY" {
		t.Errorf("CountryInfo(Japan).Currency = %q, want JPY", got)
	}
	// Unknown country falls back to the default.
	if got := CountryInfo("Atlantis").Currency; got != "PHP" {
		t.Errorf("CountryInfo(Atlantis).Currency = %q, want PHP", got)
	}
	if got := Symbol("United States"); got != "$" {
		t.Errorf("Symbol(United States) = %q, want $", got)
	}
}
