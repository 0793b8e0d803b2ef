package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/models"
)

type fixedBenchmark map[string]float64

func (b fixedBenchmark) MonthlyReturns(from, to time.Time) map[string]float64 {
	return b
}

func approvedPayout(amount string, when time.Time) models.Payout {
	return models.Payout{Amount: dec(amount), Status: models.DistributionStatusApproved, Date: when}
}

func TestTimeSeriesBuilder_Build(t *testing.T) {
	asOf := date(2024, time.June, 10)

	t.Run("no events gives an empty series", func(t *testing.T) {
		builder := NewTimeSeriesBuilder(time.UTC, NewStaticBenchmark(12))

		series := builder.Build(nil, models.TimeframeAll, asOf)

		assert.NotNil(t, series)
		assert.Empty(t, series)
	})

	t.Run("months without events are filled", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("1000"), Date: date(2024, time.January, 3)}},
			Payouts: []models.Payout{
				approvedPayout("20", date(2024, time.February, 28)),
				approvedPayout("30", date(2024, time.May, 1)),
				{Amount: dec("500"), Status: models.DistributionStatusPending, Date: date(2024, time.March, 1)},
			},
		}}
		builder := NewTimeSeriesBuilder(time.UTC, NewStaticBenchmark(12))

		series := builder.Build(positions, models.TimeframeAll, asOf)

		require.Len(t, series, 6)
		months := make([]string, len(series))
		for i, bucket := range series {
			months[i] = bucket.MonthKey()
		}
		assert.Equal(t, []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06"}, months)

		assert.Equal(t, 0.0, series[0].Return)
		assert.Equal(t, 2.0, series[1].Return)
		assert.Equal(t, 0.0, series[2].Return)
		assert.Equal(t, 3.0, series[4].Return)
		assert.Equal(t, 5.0, series[5].Cumulative)
		assert.True(t, series[5].CumulativeRealized.Equal(dec("50")))
		assert.True(t, series[5].InvestedValue.Equal(dec("1000")))
		assert.True(t, series[5].PortfolioValue.Equal(dec("1050")))
		assert.Equal(t, 1.0, series[3].Benchmark)
		assert.Equal(t, 6.0, series[5].BenchmarkCumulative)
	})

	t.Run("cumulative is a running sum", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("100"), Date: date(2024, time.January, 1)}},
			Payouts: []models.Payout{
				approvedPayout("1", date(2024, time.January, 20)),
				approvedPayout("2", date(2024, time.February, 20)),
				approvedPayout("-4", date(2024, time.March, 20)),
			},
		}}

		series := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.TimeframeAll, date(2024, time.March, 31))

		require.Len(t, series, 3)
		for i := 1; i < len(series); i++ {
			assert.InDelta(t, series[i-1].Cumulative+series[i].Return, series[i].Cumulative, 1e-9)
		}
		assert.InDelta(t, -1.0, series[2].Cumulative, 1e-9)
		assert.Equal(t, 0.0, series[2].Benchmark)
	})

	t.Run("1Y window folds earlier history into the first visible month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("1000"), Date: date(2021, time.July, 1)}},
		}}
		// a payout every month for three years
		var allTime float64
		for month := date(2021, time.July, 15); !month.After(asOf); month = month.AddDate(0, 1, 0) {
			positions[0].Payouts = append(positions[0].Payouts, approvedPayout("10", month))
		}

		builder := NewTimeSeriesBuilder(time.UTC, nil)
		full := builder.Build(positions, models.TimeframeAll, asOf)
		window := builder.Build(positions, models.Timeframe1Y, asOf)

		require.Len(t, window, 12)
		assert.Equal(t, "2023-07", window[0].MonthKey())
		assert.Equal(t, "2024-06", window[11].MonthKey())

		for _, bucket := range full {
			allTime += bucket.Return
			if bucket.MonthKey() == "2023-07" {
				break
			}
		}
		assert.InDelta(t, allTime, window[0].Cumulative, 1e-9)
		assert.Greater(t, window[0].Cumulative, window[0].Return)
		assert.True(t, window[0].CumulativeRealized.Equal(dec("250")))
	})

	t.Run("short history is not padded before the first event", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("500"), Date: date(2024, time.May, 2)}},
		}}

		series := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.Timeframe1Y, asOf)

		require.Len(t, series, 2)
		assert.Equal(t, "2024-05", series[0].MonthKey())
	})

	t.Run("1M window keeps only the current month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("500"), Date: date(2023, time.May, 2)}},
		}}

		series := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.Timeframe1M, asOf)

		require.Len(t, series, 1)
		assert.Equal(t, "2024-06", series[0].MonthKey())
		assert.True(t, series[0].InvestedValue.Equal(dec("500")))
	})

	t.Run("buckets follow the reporting timezone", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		// 2024-01-31 20:00 UTC is already February in Tokyo
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("100"), Date: time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC)}},
		}}

		utcSeries := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.TimeframeAll, date(2024, time.February, 10))
		tokyoSeries := NewTimeSeriesBuilder(tokyo, nil).Build(positions, models.TimeframeAll, date(2024, time.February, 10))

		assert.Equal(t, "2024-01", utcSeries[0].MonthKey())
		assert.Equal(t, "2024-02", tokyoSeries[0].MonthKey())
		assert.Len(t, tokyoSeries, 1)
	})

	t.Run("benchmark is aligned by month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("100"), Date: date(2024, time.April, 1)}},
		}}
		benchmark := fixedBenchmark{"2024-04": 0.5, "2024-06": 1.5, "2023-01": 99}

		series := NewTimeSeriesBuilder(time.UTC, benchmark).Build(positions, models.TimeframeAll, asOf)

		require.Len(t, series, 3)
		assert.Equal(t, 0.5, series[0].Benchmark)
		assert.Equal(t, 0.0, series[1].Benchmark)
		assert.Equal(t, 1.5, series[2].Benchmark)
		assert.Equal(t, 2.0, series[2].BenchmarkCumulative)
	})

	t.Run("payouts dated after asOf stay in the asOf month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("1000"), Date: date(2024, time.January, 3)}},
			Payouts: []models.Payout{
				approvedPayout("50", date(2024, time.June, 2)),
				approvedPayout("20", date(2024, time.September, 30)),
			},
		}}
		builder := NewTimeSeriesBuilder(time.UTC, nil)

		month := builder.Build(positions, models.Timeframe1M, asOf)
		require.Len(t, month, 1)
		assert.Equal(t, "2024-06", month[0].MonthKey())
		assert.True(t, month[0].Realized.Equal(dec("70")))

		all := builder.Build(positions, models.TimeframeAll, asOf)
		require.Len(t, all, 6)
		assert.Equal(t, "2024-06", all[len(all)-1].MonthKey())
		assert.True(t, all[len(all)-1].CumulativeRealized.Equal(dec("70")))
	})

	t.Run("undated contributions are booked in the first dated month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{
				{Amount: dec("1000")},
				{Amount: dec("500"), Date: date(2024, time.March, 4)},
			},
		}}

		series := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.TimeframeAll, asOf)

		require.Len(t, series, 4)
		assert.Equal(t, "2024-03", series[0].MonthKey())
		assert.True(t, series[0].InvestedValue.Equal(dec("1500")))
		assert.True(t, series[len(series)-1].InvestedValue.Equal(dec("1500")))
	})

	t.Run("only undated events land in the asOf month", func(t *testing.T) {
		positions := []models.Position{{
			Contributions: []models.Contribution{{Amount: dec("1000")}},
		}}

		series := NewTimeSeriesBuilder(time.UTC, nil).Build(positions, models.TimeframeAll, asOf)

		require.Len(t, series, 1)
		assert.Equal(t, "2024-06", series[0].MonthKey())
		assert.True(t, series[0].InvestedValue.Equal(dec("1000")))
	})
}
