package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/repositories"
)

type ledgerRepository struct {
	db        *gorm.DB
	txOptions *sql.TxOptions
}

// NewLedgerRepository creates a gorm backed ledger reader. txOptions controls the
// snapshot transaction; nil uses the driver default.
func NewLedgerRepository(db *gorm.DB, txOptions *sql.TxOptions) repositories.LedgerRepository {
	return &ledgerRepository{
		db:        db,
		txOptions: txOptions,
	}
}

// SnapshotTxOptions is a read-only REPEATABLE READ transaction, so investments and
// distributions are read as of the same instant
func SnapshotTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	}
}

func (r *ledgerRepository) ReadSnapshot(ctx context.Context, investorID int64) (*models.LedgerSnapshot, error) {
	snapshot := models.NewLedgerSnapshot(investorID)

	read := func(tx *gorm.DB) error {
		if err := tx.Where("investor_id = ?", investorID).
			Order("created_at ASC, id ASC").
			Find(&snapshot.Investments).Error; err != nil {
			return fmt.Errorf("failed to read investments: %w", err)
		}

		projectIDs := snapshot.ProjectIDs()
		if len(projectIDs) == 0 {
			return nil
		}

		var projects []models.Project
		if err := tx.Where("id IN ?", projectIDs).Find(&projects).Error; err != nil {
			return fmt.Errorf("failed to read projects: %w", err)
		}
		for _, p := range projects {
			snapshot.Projects[p.ID] = p
		}

		if err := tx.Where("project_id IN ?", projectIDs).
			Order("distribution_date ASC, id ASC").
			Find(&snapshot.Distributions).Error; err != nil {
			return fmt.Errorf("failed to read distributions: %w", err)
		}

		return nil
	}

	var err error
	if r.txOptions != nil {
		err = r.db.WithContext(ctx).Transaction(read, r.txOptions)
	} else {
		err = r.db.WithContext(ctx).Transaction(read)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrLedgerUnavailable, err)
	}

	snapshot.ReadAt = time.Now().UTC()
	return snapshot, nil
}

func (r *ledgerRepository) InvestorIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	var investorIDs []int64
	err := r.db.WithContext(ctx).
		Model(&models.Investment{}).
		Where("project_id = ?", projectID).
		Distinct("investor_id").
		Order("investor_id ASC").
		Pluck("investor_id", &investorIDs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list investors of project %d: %w", repositories.ErrLedgerUnavailable, projectID, err)
	}
	return investorIDs, nil
}

func (r *ledgerRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates the ledger tables. Production schemas are owned by the
// platform; this is used for local runs and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Project{}, &models.Investment{}, &models.ProfitDistribution{}); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}
