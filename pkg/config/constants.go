package config

const EnvPrefix = "BITETRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BITETRACK_APP_ENV"
	EnvPort     = "BITETRACK_APP_PORT"
	EnvLogLevel = "BITETRACK_LOG_LEVEL"

	EnvDBDSN  = "BITETRACK_DB_DSN"
	EnvDBHost = "BITETRACK_DB_HOST"
	EnvDBUser = "BITETRACK_DB_USER"
	EnvDBName = "BITETRACK_DB_NAME"

	EnvDBTxMaxAttempts = "BITETRACK_DB_TX_MAX_ATTEMPTS"

	EnvRedisURL = "BITETRACK_REDIS_URL"

	EnvUseSQLite    = "BITETRACK_USE_SQLITE"
	EnvUndoWindow   = "BITETRACK_INVENTORY_UNDO_WINDOW"
	EnvGCPProjectID = "BITETRACK_GCP_PROJECT_ID"

	EnvPubSubInventoryTopic = "BITETRACK_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubSalesTopic     = "BITETRACK_PUBSUB_SALES_TOPIC"
)

const defaultSQLiteDSN = "file:bitetrack.db?_busy_timeout=5000&_journal_mode=WAL"

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
