package constants

const (
	// Default progress weights applied when a goal carries no progress config.
	DefaultCriteriaWeight = 40
	DefaultTasksWeight    = 30
	DefaultMetricsWeight  = 20
	DefaultHabitsWeight   = 10

	// DormantAfterDays is the momentum threshold. A goal with no activity for more
	// than this many whole days is dormant. Not user configurable.
	DormantAfterDays = 7

	// NoTargetHealthyThreshold is the overall percentage a goal without a target
	// date needs to be considered healthy.
	NoTargetHealthyThreshold = 50

	// Quick filter windows
	DueSoonDays           = 7
	RecentlyCompletedDays = 7

	// Default policy values (overridable through the policy file)
	DefaultHabitWindowDays    = 30
	DefaultHealthyBand        = 10
	DefaultAtRiskBand         = 30
	DefaultNeedsAttentionDays = 7
	DefaultLoaderBatchSize    = 5
	DefaultCacheSize          = 1024
)
