package pricing

// Resale rates translate a new-price web reference into expected used-market
// value. Calibrated per category; unknown categories take the default.
type RateTable struct {
	Rates       map[string]float64
	DefaultRate float64
}

func NewRateTable() RateTable {
	return RateTable{
		Rates: map[string]float64{
			"electronics": 0.50,
			"fitness":     0.40,
		},
		DefaultRate: 0.45,
	}
}

func (t RateTable) For(category string) float64 {
	if r, ok := t.Rates[category]; ok {
		return r
	}
	return t.DefaultRate
}
