package calculator

import (
	"math"

	"portfolio-analytics-api/internal/models"
)

// Health score bands. They add up to 100.
const (
	WinRateBand       = 30.0
	SharpeBand        = 30.0
	LowVolatilityBand = 20.0
	AverageReturnBand = 20.0

	// a Sharpe ratio of 3 fills its band, an average monthly return of 2% fills its band
	sharpePointsPerUnit        = 10.0
	averageReturnPointsPerUnit = 10.0
)

// HealthScore combines the performance metrics into an integer in [0, 100].
// A portfolio without positions scores 0.
func HealthScore(metrics models.PerformanceMetrics, positions int) int {
	if positions == 0 {
		return 0
	}

	winRate := clamp(finite(metrics.WinRate)*WinRateBand/100, 0, WinRateBand)
	sharpe := clamp(finite(metrics.SharpeRatio)*sharpePointsPerUnit, 0, SharpeBand)
	volatility := clamp(LowVolatilityBand-finite(metrics.Volatility), 0, LowVolatilityBand)
	averageReturn := clamp(finite(metrics.AverageReturn)*averageReturnPointsPerUnit, 0, AverageReturnBand)

	score := math.Round(winRate + sharpe + volatility + averageReturn)
	return int(clamp(score, 0, 100))
}
