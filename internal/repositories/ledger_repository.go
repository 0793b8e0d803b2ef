package repositories

import (
	"context"
	"errors"

	"portfolio-analytics-api/internal/models"
)

// ErrLedgerUnavailable wraps every failure to read from the ledger store.
// Callers may retry; the engine itself never does.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// LedgerRepository defines the read-only access the analytics engine has to the ledger
type LedgerRepository interface {
	// ReadSnapshot reads the investor's investments, the distributions and the
	// projects they reference as one consistent point-in-time snapshot
	ReadSnapshot(ctx context.Context, investorID int64) (*models.LedgerSnapshot, error)

	// InvestorIDsByProject lists the investors holding a position in the project
	InvestorIDsByProject(ctx context.Context, projectID int64) ([]int64, error)

	// Ping checks the connection to the store
	Ping(ctx context.Context) error
}
