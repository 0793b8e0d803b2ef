package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/dto"
	"portfolio-analytics-api/internal/models"
)

// PortfolioAnalyzer runs the whole analytics pipeline over one ledger snapshot:
// aggregation, monthly series, risk statistics and the health score.
// It holds no mutable state and is safe for concurrent use.
type PortfolioAnalyzer struct {
	aggregator     *calculator.Aggregator
	timeSeries     *calculator.TimeSeriesBuilder
	riskCalculator *calculator.RiskCalculator
}

func NewPortfolioAnalyzer(
	aggregator *calculator.Aggregator,
	timeSeries *calculator.TimeSeriesBuilder,
	riskCalculator *calculator.RiskCalculator,
) *PortfolioAnalyzer {
	return &PortfolioAnalyzer{
		aggregator:     aggregator,
		timeSeries:     timeSeries,
		riskCalculator: riskCalculator,
	}
}

// Analyze is deterministic in (snapshot, timeframe, asOf). The only error it returns
// is a *models.DataIntegrityError from aggregation.
func (pa *PortfolioAnalyzer) Analyze(snapshot *models.LedgerSnapshot, timeframe models.Timeframe, asOf time.Time) (*dto.AnalyticsReport, error) {
	portfolio, err := pa.aggregator.Aggregate(snapshot, asOf)
	if err != nil {
		return nil, err
	}

	series := pa.timeSeries.Build(portfolio.Positions, timeframe, asOf)
	metrics := pa.riskCalculator.CalculatePerformance(series, portfolio.Positions)
	sectors := pa.riskCalculator.SectorBreakdown(portfolio.Positions)
	risks := pa.riskCalculator.RiskBreakdown(portfolio.Positions, portfolio.TotalInvested)
	healthScore := calculator.HealthScore(metrics, portfolio.TotalPositions())

	report := &dto.AnalyticsReport{
		InvestorID:         portfolio.InvestorID,
		Timeframe:          timeframe.String(),
		GeneratedAt:        asOf.UTC(),
		Empty:              portfolio.IsEmpty(),
		HealthScore:        healthScore,
		Portfolio:          toPortfolioSummary(portfolio),
		Investments:        toInvestmentItems(portfolio.Positions),
		MonthlyReturns:     toMonthlyReturns(series),
		SectorPerformance:  toSectorPerformance(sectors),
		RiskAnalysis:       toRiskAnalysis(risks),
		PerformanceMetrics: toPerformanceMetrics(metrics),
		Summary: dto.Summary{
			TotalInvestments:  portfolio.TotalPositions(),
			TotalInvested:     money(portfolio.TotalInvested),
			TotalReturns:      money(portfolio.TotalReturns),
			ActiveInvestments: portfolio.ActivePositions,
			HealthScore:       healthScore,
		},
	}

	return report, nil
}

func toPortfolioSummary(p *models.Portfolio) dto.PortfolioSummary {
	return dto.PortfolioSummary{
		TotalValue:         money(p.TotalCurrentValue),
		TotalInvested:      money(p.TotalInvested),
		TotalReturns:       money(p.TotalReturns),
		PortfolioReturn:    percent(p.PortfolioReturn),
		DistributedProfits: money(p.DistributedProfits),
		PendingProfits:     money(p.PendingProfits),
		UnrealizedGains:    money(p.UnrealizedGains),
		ActiveInvestments:  p.ActivePositions,
		TotalInvestments:   p.TotalPositions(),
		InvestmentRecords:  p.InvestmentRecords,
	}
}

func toInvestmentItems(positions []models.Position) []dto.InvestmentItem {
	items := make([]dto.InvestmentItem, 0, len(positions))
	for _, p := range positions {
		items = append(items, dto.InvestmentItem{
			ProjectID:          p.ProjectID,
			ProjectTitle:       p.ProjectTitle,
			Sector:             p.Sector,
			RiskLevel:          p.RiskLevel,
			InvestedAmount:     money(p.InvestedAmount),
			CurrentFunding:     money(p.CurrentFunding),
			CurrentValue:       money(p.CurrentValue),
			OwnershipShare:     p.OwnershipShare.Round(6).InexactFloat64(),
			TotalReturn:        money(p.TotalReturn),
			ReturnPercentage:   percent(p.ReturnPercentage),
			DistributedProfits: money(p.DistributedProfits),
			PendingProfits:     money(p.PendingProfits),
			UnrealizedGains:    money(p.UnrealizedGains),
			Progress:           percent(p.Progress),
			Status:             p.ProjectStatus,
			LifecycleStage:     p.LifecycleStage.String(),
			InvestmentDate:     p.FirstInvestmentDate.UTC(),
			LastInvestmentDate: p.LastInvestmentDate.UTC(),
			InvestmentCount:    p.InvestmentCount,
		})
	}
	return items
}

func toMonthlyReturns(series []models.MonthlyBucket) []dto.MonthlyReturn {
	months := make([]dto.MonthlyReturn, 0, len(series))
	for _, b := range series {
		months = append(months, dto.MonthlyReturn{
			Month:               b.MonthKey(),
			Returns:             percent(b.Return),
			Cumulative:          percent(b.Cumulative),
			Benchmark:           percent(b.Benchmark),
			BenchmarkCumulative: percent(b.BenchmarkCumulative),
			Realized:            money(b.Realized),
			CumulativeRealized:  money(b.CumulativeRealized),
			PortfolioValue:      money(b.PortfolioValue),
			InvestedValue:       money(b.InvestedValue),
		})
	}
	return months
}

func toSectorPerformance(sectors []models.SectorPerformance) []dto.SectorPerformance {
	items := make([]dto.SectorPerformance, 0, len(sectors))
	for _, s := range sectors {
		items = append(items, dto.SectorPerformance{
			Sector:     s.Sector,
			Invested:   money(s.Invested),
			Returns:    money(s.Returns),
			ReturnRate: percent(s.ReturnRate),
		})
	}
	return items
}

func toRiskAnalysis(buckets []models.RiskAllocation) []dto.RiskAnalysisItem {
	items := make([]dto.RiskAnalysisItem, 0, len(buckets))
	for _, r := range buckets {
		items = append(items, dto.RiskAnalysisItem{
			Risk:       r.Risk,
			Invested:   money(r.Invested),
			Allocation: percent(r.Allocation),
			Returns:    money(r.Returns),
		})
	}
	return items
}

func toPerformanceMetrics(m models.PerformanceMetrics) dto.PerformanceMetrics {
	return dto.PerformanceMetrics{
		AverageReturn:   percent(m.AverageReturn),
		BestMonth:       m.BestMonth,
		BestMonthValue:  percent(m.BestMonthValue),
		WorstMonth:      m.WorstMonth,
		WorstMonthValue: percent(m.WorstMonthValue),
		Volatility:      percent(m.Volatility),
		SharpeRatio:     percent(m.SharpeRatio),
		MaxDrawdown:     percent(m.MaxDrawdown),
		WinRate:         percent(m.WinRate),
	}
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percent rounds to two decimals and maps non-finite values to 0
func percent(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	rounded := math.Round(value*100) / 100
	if rounded == 0 {
		return 0 // no negative zero in JSON
	}
	return rounded
}
