package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Investment statuses as written by the placement flow
const (
	InvestmentStatusPending   = "pending"
	InvestmentStatusActive    = "active"
	InvestmentStatusFunded    = "funded"
	InvestmentStatusCompleted = "completed"
	InvestmentStatusCancelled = "cancelled"
)

// Project statuses
const (
	ProjectStatusPending   = "pending"
	ProjectStatusActive    = "active"
	ProjectStatusFunded    = "funded"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Distribution statuses and types
const (
	DistributionStatusPending  = "pending"
	DistributionStatusApproved = "approved"
	DistributionStatusRejected = "rejected"

	DistributionTypePartial = "partial"
	DistributionTypeFinal   = "final"
)

// Investment is one capital commitment of an investor to a project.
// Several rows may target the same project (top-ups).
type Investment struct {
	ID         int64           `gorm:"primaryKey" json:"id"`
	InvestorID int64           `gorm:"index;not null" json:"investor_id"`
	ProjectID  int64           `gorm:"index;not null" json:"project_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status     string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Investment) TableName() string {
	return "investments"
}

// IsCancelled reports whether the commitment was withdrawn
func (i Investment) IsCancelled() bool {
	return NormalizeStatus(i.Status) == InvestmentStatusCancelled
}

// ProfitDistribution is a payment event on a project. Each investor receives
// Amount multiplied by their ownership share of the project.
// A final distribution may carry a negative amount when the project closed at a loss.
type ProfitDistribution struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	ProjectID        int64           `gorm:"index;not null" json:"project_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ProfitRate       decimal.Decimal `gorm:"type:decimal(7,4)" json:"profit_rate"`
	Type             string          `gorm:"column:distribution_type;type:varchar(20)" json:"distribution_type"`
	Status           string          `gorm:"type:varchar(20);not null" json:"status"`
	DistributionDate time.Time       `json:"distribution_date"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy       *int64          `json:"approved_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ProfitDistribution) TableName() string {
	return "profit_distributions"
}

// IsApproved reports whether the distribution has been paid out
func (d ProfitDistribution) IsApproved() bool {
	return NormalizeStatus(d.Status) == DistributionStatusApproved
}

// IsPending reports whether the distribution awaits approval
func (d ProfitDistribution) IsPending() bool {
	return NormalizeStatus(d.Status) == DistributionStatusPending
}

// EffectiveDate is the date the payout is booked on. The scheduled date wins,
// the approval timestamp is used for rows written without one.
func (d ProfitDistribution) EffectiveDate() time.Time {
	if !d.DistributionDate.IsZero() {
		return d.DistributionDate
	}
	if d.ApprovedAt != nil {
		return *d.ApprovedAt
	}
	return d.CreatedAt
}

// Project is read-only reference data for the analytics engine
type Project struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"type:varchar(255)" json:"title"`
	Status         string          `gorm:"type:varchar(20)" json:"status"`
	FundingGoal    decimal.Decimal `gorm:"type:decimal(15,2)" json:"funding_goal"`
	CurrentFunding decimal.Decimal `gorm:"type:decimal(15,2)" json:"current_funding"`
	ExpectedReturn decimal.Decimal `gorm:"type:decimal(7,4)" json:"expected_return"`
	DurationMonths int             `json:"duration_months"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	RiskLevel      string          `gorm:"type:varchar(20)" json:"risk_level"`
	Category       string          `gorm:"type:varchar(100)" json:"category"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Project) TableName() string {
	return "projects"
}

// LedgerSnapshot is everything the engine needs for one investor, read at one point in time
type LedgerSnapshot struct {
	InvestorID    int64
	Investments   []Investment
	Distributions []ProfitDistribution
	Projects      map[int64]Project
	ReadAt        time.Time
}

// NewLedgerSnapshot returns an empty snapshot for the investor
func NewLedgerSnapshot(investorID int64) *LedgerSnapshot {
	return &LedgerSnapshot{
		InvestorID:    investorID,
		Investments:   []Investment{},
		Distributions: []ProfitDistribution{},
		Projects:      make(map[int64]Project),
	}
}

// ProjectIDs returns the distinct project ids referenced by the investments, in first-seen order
func (s *LedgerSnapshot) ProjectIDs() []int64 {
	seen := make(map[int64]struct{}, len(s.Investments))
	ids := make([]int64, 0, len(s.Investments))
	for _, inv := range s.Investments {
		if _, ok := seen[inv.ProjectID]; ok {
			continue
		}
		seen[inv.ProjectID] = struct{}{}
		ids = append(ids, inv.ProjectID)
	}
	return ids
}

// NormalizeStatus lower-cases and trims a raw status string
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
