package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// TimeSeriesBuilder buckets contributions and approved payouts into calendar months
type TimeSeriesBuilder struct {
	location  *time.Location
	benchmark BenchmarkProvider
}

func NewTimeSeriesBuilder(location *time.Location, benchmark BenchmarkProvider) *TimeSeriesBuilder {
	if location == nil {
		location = time.UTC
	}
	return &TimeSeriesBuilder{
		location:  location,
		benchmark: benchmark,
	}
}

type monthEvents struct {
	contributed decimal.Decimal
	realized    decimal.Decimal
}

// Build returns the monthly series for the timeframe, ending at the month of asOf.
// The full history is accumulated first and then truncated, so the first visible
// bucket carries every cumulative total from before the window.
// Events dated after asOf are booked in the asOf month. Undated events are booked
// in the first dated month, or in the asOf month when nothing is dated.
func (b *TimeSeriesBuilder) Build(positions []models.Position, timeframe models.Timeframe, asOf time.Time) []models.MonthlyBucket {
	last := b.monthStart(asOf)
	events := make(map[string]*monthEvents)
	undated := &monthEvents{contributed: decimal.Zero, realized: decimal.Zero}
	var first time.Time
	seen, hasUndated := false, false

	record := func(date time.Time) *monthEvents {
		if date.IsZero() {
			hasUndated = true
			return undated
		}
		if date.After(asOf) {
			date = asOf
		}
		month := b.monthStart(date)
		if !seen || month.Before(first) {
			first = month
			seen = true
		}
		key := models.MonthKey(month)
		e, ok := events[key]
		if !ok {
			e = &monthEvents{contributed: decimal.Zero, realized: decimal.Zero}
			events[key] = e
		}
		return e
	}

	for _, position := range positions {
		for _, c := range position.Contributions {
			e := record(c.Date)
			e.contributed = e.contributed.Add(c.Amount)
		}
		for _, p := range position.Payouts {
			if p.Status != models.DistributionStatusApproved {
				continue
			}
			e := record(p.Date)
			e.realized = e.realized.Add(p.Amount)
		}
	}

	if hasUndated {
		if !seen {
			first = last
			seen = true
		}
		key := models.MonthKey(first)
		e, ok := events[key]
		if !ok {
			e = &monthEvents{contributed: decimal.Zero, realized: decimal.Zero}
			events[key] = e
		}
		e.contributed = e.contributed.Add(undated.contributed)
		e.realized = e.realized.Add(undated.realized)
	}

	if !seen {
		return []models.MonthlyBucket{}
	}

	var benchmark map[string]float64
	if b.benchmark != nil {
		benchmark = b.benchmark.MonthlyReturns(first, last)
	}

	series := make([]models.MonthlyBucket, 0)
	invested := decimal.Zero
	cumulativeRealized := decimal.Zero
	cumulative := 0.0
	benchmarkCumulative := 0.0

	for month := first; !month.After(last); month = month.AddDate(0, 1, 0) {
		key := models.MonthKey(month)
		realized := decimal.Zero
		if e, ok := events[key]; ok {
			invested = invested.Add(e.contributed)
			realized = e.realized
		}
		cumulativeRealized = cumulativeRealized.Add(realized)

		monthReturn := percentOf(realized, invested)
		cumulative += monthReturn

		benchmarkReturn := finite(benchmark[key])
		benchmarkCumulative += benchmarkReturn

		series = append(series, models.MonthlyBucket{
			Month:               month,
			Realized:            realized,
			CumulativeRealized:  cumulativeRealized,
			InvestedValue:       invested,
			PortfolioValue:      invested.Add(cumulativeRealized),
			Return:              monthReturn,
			Cumulative:          cumulative,
			Benchmark:           benchmarkReturn,
			BenchmarkCumulative: benchmarkCumulative,
		})
	}

	return truncateWindow(series, timeframe, last)
}

// truncateWindow keeps the trailing months of the timeframe, never reaching
// before the first month of history
func truncateWindow(series []models.MonthlyBucket, timeframe models.Timeframe, last time.Time) []models.MonthlyBucket {
	months := timeframe.Months()
	if months == 0 || len(series) == 0 {
		return series
	}

	windowStart := last.AddDate(0, -(months - 1), 0)
	for i, bucket := range series {
		if !bucket.Month.Before(windowStart) {
			return series[i:]
		}
	}
	return []models.MonthlyBucket{}
}

func (b *TimeSeriesBuilder) monthStart(t time.Time) time.Time {
	local := t.In(b.location)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, b.location)
}
