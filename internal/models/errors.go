package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTimeframe is returned for timeframes outside 1M|3M|6M|1Y|ALL
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// DataIntegrityError means a ledger row references a project that cannot be resolved.
// Dropping the row would understate the investor's holdings, so it is surfaced instead.
type DataIntegrityError struct {
	ProjectID int64
	Source    string // "investment" or "distribution"
	RecordID  int64
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s %d references unknown project %d", e.Source, e.RecordID, e.ProjectID)
}
