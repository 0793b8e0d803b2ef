package models

// LifecycleStage is the derived life-cycle classification of a position.
// It is never persisted; it is recomputed from the ledger on every read.
type LifecycleStage string

const (
	StageActive               LifecycleStage = "ACTIVE"
	StageProfitsPending       LifecycleStage = "PROFITS_PENDING"
	StageProfitsDistributed   LifecycleStage = "PROFITS_DISTRIBUTED"
	StageCompletedWithProfits LifecycleStage = "COMPLETED_WITH_PROFITS"
	StageCompleted            LifecycleStage = "COMPLETED"
	// StageUnknown marks positions whose project status could not be interpreted
	StageUnknown LifecycleStage = "UNKNOWN"
)

// IsOpen reports whether capital is still deployed in the project
func (s LifecycleStage) IsOpen() bool {
	switch s {
	case StageActive, StageProfitsPending, StageProfitsDistributed:
		return true
	}
	return false
}

func (s LifecycleStage) String() string {
	return string(s)
}
