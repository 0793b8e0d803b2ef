package models

import (
	"fmt"
	"strings"
)

// Timeframe selects the window of the monthly series
type Timeframe string

const (
	Timeframe1M  Timeframe = "1M"
	Timeframe3M  Timeframe = "3M"
	Timeframe6M  Timeframe = "6M"
	Timeframe1Y  Timeframe = "1Y"
	TimeframeAll Timeframe = "ALL"
)

// AllTimeframes lists the supported timeframes
var AllTimeframes = []Timeframe{Timeframe1M, Timeframe3M, Timeframe6M, Timeframe1Y, TimeframeAll}

// ParseTimeframe parses a timeframe case-insensitively
func ParseTimeframe(raw string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllTimeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, raw)
}

// Months returns the number of calendar months in the window, 0 meaning unbounded
func (t Timeframe) Months() int {
	switch t {
	case Timeframe1M:
		return 1
	case Timeframe3M:
		return 3
	case Timeframe6M:
		return 6
	case Timeframe1Y:
		return 12
	default:
		return 0
	}
}

func (t Timeframe) String() string {
	return string(t)
}
