package allocation

import "github.com/shopspring/decimal"

// round rounds to n decimal places, half away from zero, on the shortest
// decimal representation of val, so 2.675 rounds to 2.68.
func round(val float64, places int32) float64 {
	return decimal.NewFromFloat(val).Round(places).InexactFloat64()
}

func round1(val float64) float64 {
	return round(val, 1)
}

func round2(val float64) float64 {
	return round(val, 2)
}
