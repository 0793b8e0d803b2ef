package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/models"
)

func newTestAnalyzer() *PortfolioAnalyzer {
	return NewPortfolioAnalyzer(
		calculator.NewAggregator(calculator.NewLinearAccrualPolicy()),
		calculator.NewTimeSeriesBuilder(time.UTC, calculator.NewStaticBenchmark(6)),
		calculator.NewRiskCalculator(calculator.RiskCalculatorConfig{RiskFreeRate: 2}),
	)
}

func amount(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 30, 0, 0, time.UTC)
}

func TestPortfolioAnalyzer_Analyze(t *testing.T) {
	asOf := at(2024, time.June, 15)

	t.Run("investor with zero investments", func(t *testing.T) {
		report, err := newTestAnalyzer().Analyze(models.NewLedgerSnapshot(3), models.Timeframe1Y, asOf)

		require.NoError(t, err)
		assert.True(t, report.Empty)
		assert.Equal(t, int64(3), report.InvestorID)
		assert.Equal(t, 0.0, report.Portfolio.TotalInvested)
		assert.Equal(t, 0.0, report.PerformanceMetrics.AverageReturn)
		assert.Equal(t, 0.0, report.PerformanceMetrics.SharpeRatio)
		assert.Equal(t, 0, report.HealthScore)
		assert.NotNil(t, report.MonthlyReturns)
		assert.Empty(t, report.MonthlyReturns)
		assert.Empty(t, report.Investments)

		body, err := json.Marshal(report)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"monthlyReturns":[]`)
		assert.Contains(t, string(body), `"investments":[]`)
	})

	t.Run("one investment with a fully owned approved distribution", func(t *testing.T) {
		snapshot := models.NewLedgerSnapshot(1)
		snapshot.Projects[10] = models.Project{ID: 10, Title: "Solar Farm", Status: "completed", FundingGoal: amount("1000"), CurrentFunding: amount("1000"), Category: "Energy", RiskLevel: "medium"}
		snapshot.Investments = []models.Investment{{ID: 1, InvestorID: 1, ProjectID: 10, Amount: amount("1000"), Status: "completed", CreatedAt: at(2024, time.January, 10)}}
		snapshot.Distributions = []models.ProfitDistribution{{ID: 1, ProjectID: 10, Amount: amount("100"), Status: "approved", Type: "final", DistributionDate: at(2024, time.April, 30)}}

		report, err := newTestAnalyzer().Analyze(snapshot, models.TimeframeAll, asOf)

		require.NoError(t, err)
		require.Len(t, report.Investments, 1)
		item := report.Investments[0]
		assert.Equal(t, 100.0, item.DistributedProfits)
		assert.Equal(t, 10.0, item.ReturnPercentage)
		assert.Equal(t, "COMPLETED_WITH_PROFITS", item.LifecycleStage)
		assert.Equal(t, "completed", item.Status)
		assert.Equal(t, 1, item.InvestmentCount)

		assert.Equal(t, 1000.0, report.Portfolio.TotalValue)
		assert.Equal(t, 100.0, report.Portfolio.TotalReturns)
		assert.Equal(t, 10.0, report.Portfolio.PortfolioReturn)
		assert.Equal(t, 0, report.Portfolio.ActiveInvestments)
		assert.Equal(t, 1, report.Portfolio.TotalInvestments)
		assert.Equal(t, 1, report.Portfolio.InvestmentRecords)

		require.Len(t, report.MonthlyReturns, 6)
		assert.Equal(t, "2024-04", report.MonthlyReturns[3].Month)
		assert.Equal(t, 10.0, report.MonthlyReturns[3].Returns)
		assert.Equal(t, 10.0, report.MonthlyReturns[5].Cumulative)
		assert.Equal(t, 0.5, report.MonthlyReturns[0].Benchmark)

		assert.Equal(t, "2024-04", report.PerformanceMetrics.BestMonth)
		assert.Equal(t, 100.0, report.PerformanceMetrics.WinRate)
		require.Len(t, report.SectorPerformance, 1)
		assert.Equal(t, "Energy", report.SectorPerformance[0].Sector)
		assert.Equal(t, 10.0, report.SectorPerformance[0].ReturnRate)
		require.Len(t, report.RiskAnalysis, 1)
		assert.Equal(t, 100.0, report.RiskAnalysis[0].Allocation)

		assert.GreaterOrEqual(t, report.HealthScore, 0)
		assert.LessOrEqual(t, report.HealthScore, 100)
		assert.Equal(t, report.HealthScore, report.Summary.HealthScore)
	})

	t.Run("two investments in one project are one row", func(t *testing.T) {
		snapshot := models.NewLedgerSnapshot(1)
		snapshot.Projects[5] = models.Project{ID: 5, Status: "active", FundingGoal: amount("2000"), CurrentFunding: amount("1500")}
		snapshot.Investments = []models.Investment{
			{ID: 1, ProjectID: 5, Amount: amount("600"), Status: "active", CreatedAt: at(2024, time.February, 1)},
			{ID: 2, ProjectID: 5, Amount: amount("400"), Status: "active", CreatedAt: at(2024, time.March, 1)},
		}

		report, err := newTestAnalyzer().Analyze(snapshot, models.Timeframe3M, asOf)

		require.NoError(t, err)
		require.Len(t, report.Investments, 1)
		assert.Equal(t, 2, report.Investments[0].InvestmentCount)
		assert.Equal(t, 1000.0, report.Investments[0].InvestedAmount)
		assert.Equal(t, 75.0, report.Investments[0].Progress)
		assert.Equal(t, "ACTIVE", report.Investments[0].LifecycleStage)
		assert.Equal(t, 1000.0, report.Summary.TotalInvested)
		assert.Equal(t, 1, report.Summary.ActiveInvestments)
		assert.Len(t, report.MonthlyReturns, 3)
		assert.Equal(t, 1000.0, report.MonthlyReturns[0].InvestedValue)
	})

	t.Run("completed without approved distributions", func(t *testing.T) {
		snapshot := models.NewLedgerSnapshot(1)
		snapshot.Projects[8] = models.Project{ID: 8, Status: "COMPLETED", CurrentFunding: amount("500")}
		snapshot.Investments = []models.Investment{{ID: 1, ProjectID: 8, Amount: amount("500"), Status: "completed", CreatedAt: at(2023, time.March, 1)}}
		snapshot.Distributions = []models.ProfitDistribution{{ID: 3, ProjectID: 8, Amount: amount("50"), Status: "rejected", DistributionDate: at(2023, time.December, 1)}}

		report, err := newTestAnalyzer().Analyze(snapshot, models.TimeframeAll, asOf)

		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", report.Investments[0].LifecycleStage)
		assert.Equal(t, 0.0, report.Investments[0].DistributedProfits)
	})

	t.Run("data integrity fault is surfaced", func(t *testing.T) {
		snapshot := models.NewLedgerSnapshot(1)
		snapshot.Investments = []models.Investment{{ID: 1, ProjectID: 99, Amount: amount("10"), Status: "active"}}

		report, err := newTestAnalyzer().Analyze(snapshot, models.TimeframeAll, asOf)

		assert.Nil(t, report)
		var integrityErr *models.DataIntegrityError
		assert.ErrorAs(t, err, &integrityErr)
	})

	t.Run("same snapshot gives identical documents", func(t *testing.T) {
		snapshot := models.NewLedgerSnapshot(1)
		start := at(2023, time.January, 1)
		snapshot.Projects[1] = models.Project{ID: 1, Status: "funded", CurrentFunding: amount("10000"), FundingGoal: amount("12000"), ExpectedReturn: amount("9"), StartDate: &start, DurationMonths: 24, Category: "Agriculture", RiskLevel: "high"}
		snapshot.Projects[2] = models.Project{ID: 2, Status: "active", CurrentFunding: amount("4000"), FundingGoal: amount("4000"), ExpectedReturn: amount("7"), DurationMonths: 12, Category: "Energy", RiskLevel: "low"}
		snapshot.Investments = []models.Investment{
			{ID: 1, ProjectID: 1, Amount: amount("2500"), Status: "active", CreatedAt: at(2023, time.January, 15)},
			{ID: 2, ProjectID: 2, Amount: amount("1000"), Status: "active", CreatedAt: at(2023, time.June, 2)},
			{ID: 3, ProjectID: 1, Amount: amount("500"), Status: "active", CreatedAt: at(2023, time.August, 20)},
		}
		snapshot.Distributions = []models.ProfitDistribution{
			{ID: 1, ProjectID: 1, Amount: amount("800"), Status: "approved", DistributionDate: at(2023, time.September, 30)},
			{ID: 2, ProjectID: 1, Amount: amount("800"), Status: "approved", DistributionDate: at(2024, time.March, 31)},
			{ID: 3, ProjectID: 2, Amount: amount("300"), Status: "pending", DistributionDate: at(2024, time.July, 1)},
		}
		analyzer := newTestAnalyzer()

		first, err := analyzer.Analyze(snapshot, models.Timeframe1Y, asOf)
		require.NoError(t, err)
		second, err := analyzer.Analyze(snapshot, models.Timeframe1Y, asOf)
		require.NoError(t, err)

		firstJSON, _ := json.Marshal(first)
		secondJSON, _ := json.Marshal(second)
		assert.JSONEq(t, string(firstJSON), string(secondJSON))

		sum := 0.0
		for _, item := range first.Investments {
			sum += item.InvestedAmount
		}
		assert.Equal(t, first.Portfolio.TotalInvested, sum)
		assert.Equal(t, 4000.0, sum)
		assert.Len(t, first.MonthlyReturns, 12)
		assert.Equal(t, 2, first.Portfolio.ActiveInvestments)
		assert.Equal(t, "PROFITS_PENDING", first.Investments[1].LifecycleStage)
		assert.GreaterOrEqual(t, first.HealthScore, 0)
		assert.LessOrEqual(t, first.HealthScore, 100)
	})
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 12.35, percent(12.3456))
	assert.Equal(t, -0.5, percent(-0.499))
	assert.Equal(t, 0.0, percent(-0.001))
	assert.Equal(t, 0.0, percent(0.0/zero()))
}

func zero() float64 { return 0 }
