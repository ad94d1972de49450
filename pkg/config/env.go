package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for variables without a tag.
const EnvPrefix = "CATALOG"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "CATALOG_APP_ENV"
	EnvPort     = "CATALOG_APP_PORT"
	EnvDBDSN    = "CATALOG_DB_DSN"
	EnvDBHost   = "CATALOG_DB_HOST"
	EnvDBUser   = "CATALOG_DB_USER"
	EnvDBName   = "CATALOG_DB_NAME"
	EnvRedisURL = "CATALOG_REDIS_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
