package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// UnrealizedInput is what an unrealized-gains policy may look at for one position
type UnrealizedInput struct {
	Project             models.Project
	InvestedAmount      decimal.Decimal
	DistributedProfits  decimal.Decimal
	PendingProfits      decimal.Decimal
	FirstInvestmentDate time.Time
	AsOf                time.Time
}

// UnrealizedGainsPolicy values the part of a running position that has not been paid out.
// Implementations must not return negative values. The aggregator never calls the
// policy for completed positions.
type UnrealizedGainsPolicy interface {
	UnrealizedGains(in UnrealizedInput) decimal.Decimal
}

// LinearAccrualPolicy accrues the project's expected return linearly over its term
// and subtracts whatever has already been distributed or is pending.
type LinearAccrualPolicy struct{}

func NewLinearAccrualPolicy() *LinearAccrualPolicy {
	return &LinearAccrualPolicy{}
}

func (p *LinearAccrualPolicy) UnrealizedGains(in UnrealizedInput) decimal.Decimal {
	if !in.InvestedAmount.IsPositive() || !in.Project.ExpectedReturn.IsPositive() {
		return decimal.Zero
	}

	fraction := elapsedFraction(in.Project, in.FirstInvestmentDate, in.AsOf)
	if fraction <= 0 {
		return decimal.Zero
	}

	expected := in.InvestedAmount.
		Mul(in.Project.ExpectedReturn).
		Div(hundred).
		Mul(decimal.NewFromFloat(fraction))

	gain := expected.Sub(in.DistributedProfits).Sub(in.PendingProfits)
	if gain.IsNegative() {
		return decimal.Zero
	}
	return gain.Round(2)
}

// elapsedFraction is the share of the project term already elapsed, in [0, 1]
func elapsedFraction(project models.Project, firstInvestment, asOf time.Time) float64 {
	start := firstInvestment
	if project.StartDate != nil && !project.StartDate.IsZero() {
		start = *project.StartDate
	}
	if start.IsZero() {
		return 0
	}

	var end time.Time
	switch {
	case project.EndDate != nil && !project.EndDate.IsZero():
		end = *project.EndDate
	case project.DurationMonths > 0:
		end = start.AddDate(0, project.DurationMonths, 0)
	default:
		return 0
	}

	if !end.After(start) {
		if asOf.Before(end) {
			return 0
		}
		return 1
	}

	fraction := asOf.Sub(start).Hours() / end.Sub(start).Hours()
	return clamp(fraction, 0, 1)
}

// NoUnrealizedGains only recognizes value once it is distributed
type NoUnrealizedGains struct{}

func (NoUnrealizedGains) UnrealizedGains(UnrealizedInput) decimal.Decimal {
	return decimal.Zero
}

// BenchmarkProvider supplies the reference series, as monthly returns in percent
// keyed by "2006-01". Months it does not know are simply absent.
type BenchmarkProvider interface {
	MonthlyReturns(from, to time.Time) map[string]float64
}

// StaticBenchmark returns the same monthly rate for every month
type StaticBenchmark struct {
	monthlyRate float64
}

// NewStaticBenchmark spreads an annual rate (percent) evenly across twelve months
func NewStaticBenchmark(annualRate float64) *StaticBenchmark {
	return &StaticBenchmark{monthlyRate: annualRate / 12}
}

func (b *StaticBenchmark) MonthlyReturns(from, to time.Time) map[string]float64 {
	series := make(map[string]float64)
	for month := from; !month.After(to); month = month.AddDate(0, 1, 0) {
		series[models.MonthKey(month)] = b.monthlyRate
	}
	return series
}
