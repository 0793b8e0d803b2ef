package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// finite maps NaN and ±Inf to 0
func finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// percentOf returns part / whole * 100, or 0 when whole is not positive
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return finite(part.Div(whole).Mul(hundred).InexactFloat64())
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return finite(sum / float64(len(values)))
}

// populationStdDev is the standard deviation over the whole window (divides by n)
func populationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	variance /= float64(len(values))
	if variance <= 0 {
		return 0
	}
	return finite(math.Sqrt(variance))
}
