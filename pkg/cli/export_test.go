package cli

var PrintHistory = printHistory

var (
	GetIndexConfig   = getIndexConfig
	LogMigrationPlan = logMigrationPlan
)
