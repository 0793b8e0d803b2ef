package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contribution is a single non-cancelled investment booked against a position
type Contribution struct {
	InvestmentID int64
	Amount       decimal.Decimal
	Date         time.Time
}

// Payout is the investor's attributable part of one profit distribution
type Payout struct {
	DistributionID int64
	Amount         decimal.Decimal
	Status         string
	Date           time.Time
}

// Position is the aggregate of one investor's investments in one project
type Position struct {
	ProjectID      int64
	ProjectTitle   string
	ProjectStatus  string
	Sector         string
	RiskLevel      string
	LifecycleStage LifecycleStage

	InvestedAmount     decimal.Decimal
	CurrentFunding     decimal.Decimal
	OwnershipShare     decimal.Decimal
	DistributedProfits decimal.Decimal
	PendingProfits     decimal.Decimal
	UnrealizedGains    decimal.Decimal
	CurrentValue       decimal.Decimal
	TotalReturn        decimal.Decimal

	ReturnPercentage float64
	Progress         float64

	InvestmentCount     int
	FirstInvestmentDate time.Time
	LastInvestmentDate  time.Time

	Contributions []Contribution
	Payouts       []Payout
}

// RealizedReturn is what the investor has actually been paid on the position
func (p Position) RealizedReturn() decimal.Decimal {
	return p.DistributedProfits
}

// Portfolio is the sum of all positions of an investor
type Portfolio struct {
	InvestorID int64
	Positions  []Position

	TotalInvested      decimal.Decimal
	TotalCurrentValue  decimal.Decimal
	TotalReturns       decimal.Decimal
	DistributedProfits decimal.Decimal
	PendingProfits     decimal.Decimal
	UnrealizedGains    decimal.Decimal
	PortfolioReturn    float64

	ActivePositions   int
	InvestmentRecords int
}

// TotalPositions is the number of logical positions
func (p *Portfolio) TotalPositions() int {
	return len(p.Positions)
}

// IsEmpty reports whether the investor holds nothing yet
func (p *Portfolio) IsEmpty() bool {
	return len(p.Positions) == 0
}

// MonthlyBucket is one calendar month of the returns series
type MonthlyBucket struct {
	Month time.Time

	Realized           decimal.Decimal
	CumulativeRealized decimal.Decimal
	InvestedValue      decimal.Decimal
	PortfolioValue     decimal.Decimal

	// percentages of invested capital
	Return              float64
	Cumulative          float64
	Benchmark           float64
	BenchmarkCumulative float64
}

// MonthKey is the bucket label, e.g. "2024-03"
func (b MonthlyBucket) MonthKey() string {
	return MonthKey(b.Month)
}

// MonthKey formats the calendar month of t
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// PerformanceMetrics are the risk and performance statistics over the window
type PerformanceMetrics struct {
	AverageReturn   float64
	BestMonth       string
	BestMonthValue  float64
	WorstMonth      string
	WorstMonthValue float64
	Volatility      float64
	SharpeRatio     float64
	MaxDrawdown     float64
	WinRate         float64
}

// SectorPerformance groups positions by project category
type SectorPerformance struct {
	Sector     string
	Invested   decimal.Decimal
	Returns    decimal.Decimal
	ReturnRate float64
}

// RiskAllocation groups positions by project risk level
type RiskAllocation struct {
	Risk       string
	Invested   decimal.Decimal
	Allocation float64
	Returns    decimal.Decimal
}
