package domain

const (
	DefaultStoreDriver                = "sqlite"
	DefaultStorePath                  = "skillcat.db"
	DefaultRetentionDays              = 30
	DefaultRetentionIntervalSeconds   = 3600
	DefaultRetentionWeekly            = true
	DefaultRecommendCacheTTLSeconds   = 300
	DefaultRecommendLimit             = 5
	DefaultRecommendThreshold         = 0.3
	DefaultRecommendKind              = string(RecordKindSkill)
	DefaultSearchLimit                = 20
	DefaultPopularLimit               = 10
	DefaultRelatedLimit               = 5
	DefaultObservabilityListenAddress = "127.0.0.1:9464"
	DefaultObservabilityMetrics       = true
	DefaultObservabilityHealthz       = true
	DefaultWatchCatalog               = true
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverBolt   = "bolt"
)
