package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"portfolio-analytics-api/internal/models"
)

func TestClassifyLifecycle(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		hasPending  bool
		hasApproved bool
		expected    models.LifecycleStage
	}{
		{"active without distributions", "active", false, false, models.StageActive},
		{"funded without distributions", "funded", false, false, models.StageActive},
		{"pending distribution only", "active", true, false, models.StageProfitsPending},
		{"approved distribution", "funded", false, true, models.StageProfitsDistributed},
		{"approved and pending", "active", true, true, models.StageProfitsDistributed},
		{"completed with approved", "completed", false, true, models.StageCompletedWithProfits},
		{"completed with approved and pending", "completed", true, true, models.StageCompletedWithProfits},
		{"completed without approved", "COMPLETED", false, false, models.StageCompleted},
		{"completed with only pending", "completed", true, false, models.StageCompleted},
		{"upper case and spaces", "  Active ", false, false, models.StageActive},
		{"cancelled with approved", "cancelled", false, true, models.StageProfitsDistributed},
		{"cancelled without distributions", "cancelled", false, false, models.StageUnknown},
		{"pending project without distributions", "pending", false, false, models.StageUnknown},
		{"empty status", "", false, false, models.StageUnknown},
		{"corrupt status with distributions", "archived??", true, true, models.StageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := ClassifyLifecycle(tt.status, tt.hasPending, tt.hasApproved)
			assert.Equal(t, tt.expected, stage)

			// same facts, same answer
			assert.Equal(t, stage, ClassifyLifecycle(tt.status, tt.hasPending, tt.hasApproved))
		})
	}
}

func TestDistributionFlags(t *testing.T) {
	distributions := []models.ProfitDistribution{
		{ID: 1, Status: "rejected"},
		{ID: 2, Status: "Pending"},
	}

	hasPending, hasApproved := distributionFlags(distributions)
	assert.True(t, hasPending)
	assert.False(t, hasApproved)

	distributions = append(distributions, models.ProfitDistribution{ID: 3, Status: "approved"})
	hasPending, hasApproved = distributionFlags(distributions)
	assert.True(t, hasPending)
	assert.True(t, hasApproved)

	hasPending, hasApproved = distributionFlags(nil)
	assert.False(t, hasPending)
	assert.False(t, hasApproved)
}
