package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// Aggregator folds an investor's ledger rows into positions and portfolio totals
type Aggregator struct {
	policy UnrealizedGainsPolicy
}

func NewAggregator(policy UnrealizedGainsPolicy) *Aggregator {
	if policy == nil {
		policy = NoUnrealizedGains{}
	}
	return &Aggregator{policy: policy}
}

type investmentGroup struct {
	projectID     int64
	firstRecordID int64
	invested      decimal.Decimal
	first         time.Time
	last          time.Time
	contributions []models.Contribution
}

// Aggregate builds the portfolio of snapshot.InvestorID as of the given instant.
// A project referenced by an investment or a distribution that is missing from
// snapshot.Projects yields a *models.DataIntegrityError.
func (a *Aggregator) Aggregate(snapshot *models.LedgerSnapshot, asOf time.Time) (*models.Portfolio, error) {
	portfolio := &models.Portfolio{
		Positions:          []models.Position{},
		TotalInvested:      decimal.Zero,
		TotalCurrentValue:  decimal.Zero,
		TotalReturns:       decimal.Zero,
		DistributedProfits: decimal.Zero,
		PendingProfits:     decimal.Zero,
		UnrealizedGains:    decimal.Zero,
	}
	if snapshot == nil {
		return portfolio, nil
	}
	portfolio.InvestorID = snapshot.InvestorID

	distributionsByProject := make(map[int64][]models.ProfitDistribution)
	for _, d := range snapshot.Distributions {
		if _, ok := snapshot.Projects[d.ProjectID]; !ok {
			return nil, &models.DataIntegrityError{ProjectID: d.ProjectID, Source: "distribution", RecordID: d.ID}
		}
		distributionsByProject[d.ProjectID] = append(distributionsByProject[d.ProjectID], d)
	}

	groups := groupInvestments(snapshot.Investments)
	for _, group := range groups {
		project, ok := snapshot.Projects[group.projectID]
		if !ok {
			return nil, &models.DataIntegrityError{ProjectID: group.projectID, Source: "investment", RecordID: group.firstRecordID}
		}

		position := a.buildPosition(group, project, distributionsByProject[group.projectID], asOf)

		portfolio.Positions = append(portfolio.Positions, position)
		portfolio.InvestmentRecords += position.InvestmentCount
		portfolio.TotalInvested = portfolio.TotalInvested.Add(position.InvestedAmount)
		portfolio.TotalCurrentValue = portfolio.TotalCurrentValue.Add(position.CurrentValue)
		portfolio.DistributedProfits = portfolio.DistributedProfits.Add(position.DistributedProfits)
		portfolio.PendingProfits = portfolio.PendingProfits.Add(position.PendingProfits)
		portfolio.UnrealizedGains = portfolio.UnrealizedGains.Add(position.UnrealizedGains)
		if position.LifecycleStage.IsOpen() {
			portfolio.ActivePositions++
		}
	}

	portfolio.TotalReturns = portfolio.DistributedProfits.Add(portfolio.UnrealizedGains)
	portfolio.PortfolioReturn = percentOf(portfolio.TotalReturns, portfolio.TotalInvested)

	return portfolio, nil
}

func (a *Aggregator) buildPosition(group *investmentGroup, project models.Project, distributions []models.ProfitDistribution, asOf time.Time) models.Position {
	position := models.Position{
		ProjectID:           project.ID,
		ProjectTitle:        project.Title,
		ProjectStatus:       models.NormalizeStatus(project.Status),
		Sector:              project.Category,
		RiskLevel:           models.NormalizeStatus(project.RiskLevel),
		InvestedAmount:      group.invested,
		CurrentFunding:      project.CurrentFunding,
		DistributedProfits:  decimal.Zero,
		PendingProfits:      decimal.Zero,
		UnrealizedGains:     decimal.Zero,
		InvestmentCount:     len(group.contributions),
		FirstInvestmentDate: group.first,
		LastInvestmentDate:  group.last,
		Contributions:       group.contributions,
		Payouts:             []models.Payout{},
	}

	denominator := shareDenominator(group.invested, project.CurrentFunding)
	position.OwnershipShare = OwnershipShare(group.invested, project.CurrentFunding)

	sort.SliceStable(distributions, func(i, j int) bool {
		di, dj := distributions[i].EffectiveDate(), distributions[j].EffectiveDate()
		if di.Equal(dj) {
			return distributions[i].ID < distributions[j].ID
		}
		return di.Before(dj)
	})

	for _, d := range distributions {
		var target *decimal.Decimal
		switch {
		case d.IsApproved():
			target = &position.DistributedProfits
		case d.IsPending():
			target = &position.PendingProfits
		default:
			continue
		}

		payout := payoutFor(d.Amount, group.invested, denominator)
		*target = target.Add(payout)
		position.Payouts = append(position.Payouts, models.Payout{
			DistributionID: d.ID,
			Amount:         payout,
			Status:         models.NormalizeStatus(d.Status),
			Date:           d.EffectiveDate(),
		})
	}

	hasPending, hasApproved := distributionFlags(distributions)
	position.LifecycleStage = ClassifyLifecycle(project.Status, hasPending, hasApproved)

	// completed and unclassifiable positions carry no unrealized value
	if position.LifecycleStage.IsOpen() {
		gain := a.policy.UnrealizedGains(UnrealizedInput{
			Project:             project,
			InvestedAmount:      group.invested,
			DistributedProfits:  position.DistributedProfits,
			PendingProfits:      position.PendingProfits,
			FirstInvestmentDate: group.first,
			AsOf:                asOf,
		})
		if gain.IsPositive() {
			position.UnrealizedGains = gain
		}
	}

	position.CurrentValue = position.InvestedAmount.Add(position.UnrealizedGains)
	position.TotalReturn = position.DistributedProfits.Add(position.UnrealizedGains)
	position.ReturnPercentage = percentOf(position.TotalReturn, position.InvestedAmount)
	position.Progress = clamp(percentOf(project.CurrentFunding, project.FundingGoal), 0, 100)

	return position
}

// groupInvestments folds non-cancelled investments by project, ordered by first investment
func groupInvestments(investments []models.Investment) []*investmentGroup {
	byProject := make(map[int64]*investmentGroup)
	groups := make([]*investmentGroup, 0)

	for _, inv := range investments {
		if inv.IsCancelled() {
			continue
		}

		group, ok := byProject[inv.ProjectID]
		if !ok {
			group = &investmentGroup{
				projectID:     inv.ProjectID,
				firstRecordID: inv.ID,
				invested:      decimal.Zero,
				first:         inv.CreatedAt,
				last:          inv.CreatedAt,
			}
			byProject[inv.ProjectID] = group
			groups = append(groups, group)
		}

		group.invested = group.invested.Add(inv.Amount)
		if inv.CreatedAt.Before(group.first) {
			group.first = inv.CreatedAt
			group.firstRecordID = inv.ID
		}
		if inv.CreatedAt.After(group.last) {
			group.last = inv.CreatedAt
		}
		group.contributions = append(group.contributions, models.Contribution{
			InvestmentID: inv.ID,
			Amount:       inv.Amount,
			Date:         inv.CreatedAt,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].first.Equal(groups[j].first) {
			return groups[i].projectID < groups[j].projectID
		}
		return groups[i].first.Before(groups[j].first)
	})

	return groups
}

// OwnershipShare is invested / project funding. When the recorded funding lags
// behind the investor's own stake the share is capped at 1.
func OwnershipShare(invested, projectFunding decimal.Decimal) decimal.Decimal {
	denominator := shareDenominator(invested, projectFunding)
	if !invested.IsPositive() || !denominator.IsPositive() {
		return decimal.Zero
	}
	return invested.Div(denominator)
}

// AllocateDistribution splits one distribution across investors pro rata to their
// stakes. Payouts are truncated to cents so their sum never exceeds amount.
func AllocateDistribution(amount decimal.Decimal, stakes map[int64]decimal.Decimal, projectFunding decimal.Decimal) map[int64]decimal.Decimal {
	totalStake := decimal.Zero
	for _, stake := range stakes {
		if stake.IsPositive() {
			totalStake = totalStake.Add(stake)
		}
	}

	denominator := shareDenominator(totalStake, projectFunding)
	payouts := make(map[int64]decimal.Decimal, len(stakes))
	for investorID, stake := range stakes {
		payouts[investorID] = payoutFor(amount, stake, denominator)
	}
	return payouts
}

func shareDenominator(stake, projectFunding decimal.Decimal) decimal.Decimal {
	if stake.GreaterThan(projectFunding) {
		return stake
	}
	return projectFunding
}

func payoutFor(amount, stake, denominator decimal.Decimal) decimal.Decimal {
	if !stake.IsPositive() || !denominator.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(stake).Div(denominator).Truncate(2)
}
