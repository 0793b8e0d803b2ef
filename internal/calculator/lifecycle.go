package calculator

import "portfolio-analytics-api/internal/models"

// ClassifyLifecycle derives the lifecycle stage of a position from the project
// status and whether the project has pending and approved distributions.
// It assumes no history and gives the same answer for the same facts.
func ClassifyLifecycle(projectStatus string, hasPending, hasApproved bool) models.LifecycleStage {
	switch models.NormalizeStatus(projectStatus) {
	case models.ProjectStatusCompleted:
		if hasApproved {
			return models.StageCompletedWithProfits
		}
		return models.StageCompleted

	case models.ProjectStatusActive, models.ProjectStatusFunded:
		switch {
		case hasApproved:
			return models.StageProfitsDistributed
		case hasPending:
			return models.StageProfitsPending
		default:
			return models.StageActive
		}

	case models.ProjectStatusPending, models.ProjectStatusCancelled:
		// distributions on a project that is not running yet (or anymore) are still
		// reported, but such a project is never shown as ACTIVE
		switch {
		case hasApproved:
			return models.StageProfitsDistributed
		case hasPending:
			return models.StageProfitsPending
		}
	}

	return models.StageUnknown
}

// distributionFlags reports whether any distribution is pending or approved
func distributionFlags(distributions []models.ProfitDistribution) (hasPending, hasApproved bool) {
	for _, d := range distributions {
		switch {
		case d.IsApproved():
			hasApproved = true
		case d.IsPending():
			hasPending = true
		}
	}
	return hasPending, hasApproved
}
