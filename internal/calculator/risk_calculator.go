package calculator

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

const (
	uncategorizedSector = "Uncategorized"
	unratedRisk         = "unrated"
)

var riskOrder = map[string]int{
	"low":    0,
	"medium": 1,
	"high":   2,
}

type RiskCalculator struct {
	riskFreeRate float64 // monthly, percent
}

type RiskCalculatorConfig struct {
	RiskFreeRate float64 `json:"risk_free_rate" default:"2.0"` // annual, percent
}

func NewRiskCalculator(config RiskCalculatorConfig) *RiskCalculator {
	return &RiskCalculator{
		riskFreeRate: config.RiskFreeRate / 12,
	}
}

// CalculatePerformance computes window statistics from the visible monthly series
// and the per-position realized returns. Degenerate input yields zeros.
func (rc *RiskCalculator) CalculatePerformance(series []models.MonthlyBucket, positions []models.Position) models.PerformanceMetrics {
	returns := make([]float64, len(series))
	for i, bucket := range series {
		returns[i] = bucket.Return
	}

	metrics := models.PerformanceMetrics{}
	metrics.AverageReturn = mean(returns)
	metrics.Volatility = populationStdDev(returns)
	metrics.SharpeRatio = rc.calculateSharpeRatio(metrics.AverageReturn, metrics.Volatility)
	metrics.MaxDrawdown = rc.calculateMaxDrawdown(series)
	metrics.WinRate = rc.calculateWinRate(positions)

	if best, ok := bestMonth(series); ok {
		metrics.BestMonth = best.MonthKey()
		metrics.BestMonthValue = best.Return
	}
	if worst, ok := worstMonth(series); ok {
		metrics.WorstMonth = worst.MonthKey()
		metrics.WorstMonthValue = worst.Return
	}

	return metrics
}

// calculateSharpeRatio is (average - risk free) / volatility, 0 when volatility is 0
func (rc *RiskCalculator) calculateSharpeRatio(averageReturn, volatility float64) float64 {
	if volatility <= 0 {
		return 0
	}
	return finite((averageReturn - rc.riskFreeRate) / volatility)
}

// calculateMaxDrawdown is the largest fall of the cumulative return below its running
// peak within the window, in percentage points. The peak starts at 0, so a window
// that opens below zero counts from there. Always <= 0.
func (rc *RiskCalculator) calculateMaxDrawdown(series []models.MonthlyBucket) float64 {
	maxDrawdown := 0.0
	peak := 0.0
	for _, bucket := range series {
		if bucket.Cumulative > peak {
			peak = bucket.Cumulative
		}
		if drawdown := bucket.Cumulative - peak; drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return finite(maxDrawdown)
}

// calculateWinRate is the share of positions whose realized return is not negative
func (rc *RiskCalculator) calculateWinRate(positions []models.Position) float64 {
	if len(positions) == 0 {
		return 0
	}
	wins := 0
	for _, position := range positions {
		if !position.RealizedReturn().IsNegative() {
			wins++
		}
	}
	return finite(float64(wins) / float64(len(positions)) * 100)
}

// first maximum wins, so ties resolve to the earliest month
func bestMonth(series []models.MonthlyBucket) (models.MonthlyBucket, bool) {
	if len(series) == 0 {
		return models.MonthlyBucket{}, false
	}
	best := series[0]
	for _, bucket := range series[1:] {
		if bucket.Return > best.Return {
			best = bucket
		}
	}
	return best, true
}

func worstMonth(series []models.MonthlyBucket) (models.MonthlyBucket, bool) {
	if len(series) == 0 {
		return models.MonthlyBucket{}, false
	}
	worst := series[0]
	for _, bucket := range series[1:] {
		if bucket.Return < worst.Return {
			worst = bucket
		}
	}
	return worst, true
}

// SectorBreakdown groups positions by project category, largest allocation first
func (rc *RiskCalculator) SectorBreakdown(positions []models.Position) []models.SectorPerformance {
	index := make(map[string]int)
	sectors := make([]models.SectorPerformance, 0)

	for _, position := range positions {
		name := strings.TrimSpace(position.Sector)
		if name == "" {
			name = uncategorizedSector
		}
		i, ok := index[name]
		if !ok {
			i = len(sectors)
			index[name] = i
			sectors = append(sectors, models.SectorPerformance{
				Sector:   name,
				Invested: decimal.Zero,
				Returns:  decimal.Zero,
			})
		}
		sectors[i].Invested = sectors[i].Invested.Add(position.InvestedAmount)
		sectors[i].Returns = sectors[i].Returns.Add(position.DistributedProfits)
	}

	for i := range sectors {
		sectors[i].ReturnRate = percentOf(sectors[i].Returns, sectors[i].Invested)
	}

	sort.SliceStable(sectors, func(i, j int) bool {
		if !sectors[i].Invested.Equal(sectors[j].Invested) {
			return sectors[i].Invested.GreaterThan(sectors[j].Invested)
		}
		return sectors[i].Sector < sectors[j].Sector
	})

	return sectors
}

// RiskBreakdown groups positions by project risk level, ordered low, medium, high, then by name
func (rc *RiskCalculator) RiskBreakdown(positions []models.Position, totalInvested decimal.Decimal) []models.RiskAllocation {
	index := make(map[string]int)
	buckets := make([]models.RiskAllocation, 0)

	for _, position := range positions {
		name := models.NormalizeStatus(position.RiskLevel)
		if name == "" {
			name = unratedRisk
		}
		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, models.RiskAllocation{
				Risk:     name,
				Invested: decimal.Zero,
				Returns:  decimal.Zero,
			})
		}
		buckets[i].Invested = buckets[i].Invested.Add(position.InvestedAmount)
		buckets[i].Returns = buckets[i].Returns.Add(position.DistributedProfits)
	}

	for i := range buckets {
		buckets[i].Allocation = percentOf(buckets[i].Invested, totalInvested)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		oi, iKnown := riskOrder[buckets[i].Risk]
		oj, jKnown := riskOrder[buckets[j].Risk]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return buckets[i].Risk < buckets[j].Risk
		}
	})

	return buckets
}
