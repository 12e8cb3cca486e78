package config

// EnvPrefix scopes envconfig lookups; explicit tags below fall back to their
// unprefixed names.
const EnvPrefix = "IMS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "IMS_APP_ENV"
	EnvPort         = "IMS_APP_PORT"
	EnvLogLevel     = "IMS_LOG_LEVEL"
	EnvLogFormat    = "IMS_LOG_FORMAT"
	EnvLogWarnStack = "IMS_LOG_WARN_STACK"
	EnvFrontendURL  = "IMS_FRONTEND_URL"

	EnvDBDSN    = "IMS_DB_DSN"
	EnvDBDriver = "IMS_DB_DRIVER"
	EnvDBHost   = "IMS_DB_HOST"
	EnvDBPort   = "IMS_DB_PORT"
	EnvDBUser   = "IMS_DB_USER"
	EnvDBPass   = "IMS_DB_PASSWORD"
	EnvDBName   = "IMS_DB_NAME"
	EnvDBSSL    = "IMS_DB_SSLMODE"

	EnvRedisURL       = "IMS_REDIS_URL"
	EnvRedisAddr      = "IMS_REDIS_ADDR"
	EnvRedisKeyPrefix = "IMS_REDIS_KEY_PREFIX"

	EnvMaintenanceInterval  = "IMS_MAINTENANCE_INTERVAL"
	EnvMaintenanceRetention = "IMS_MAINTENANCE_RESET_TOKEN_RETENTION"
	EnvDBSlowQuery          = "IMS_DB_SLOW_QUERY_THRESHOLD"

	EnvJWTSecret               = "IMS_JWT_SECRET"
	EnvJWTIssuer               = "IMS_JWT_ISSUER"
	EnvJWTExpMins              = "IMS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "IMS_REFRESH_TOKEN_TTL_MINUTES"
	EnvPasswordResetTTL        = "IMS_PASSWORD_RESET_TTL"
	EnvUseSQLite               = "IMS_USE_SQLITE"
	EnvAutoMigrate             = "IMS_AUTO_MIGRATE"
	EnvCORSAllowedOrigins      = "IMS_CORS_ALLOWED_ORIGINS"
	EnvMailerWebhookURL        = "IMS_MAILER_WEBHOOK_URL"
	EnvMailerAPIKey            = "IMS_MAILER_API_KEY"
	EnvStorageDriver           = "IMS_STORAGE_DRIVER"
	EnvStorageLocalDir         = "IMS_STORAGE_LOCAL_DIR"
	EnvStoragePublicBaseURL    = "IMS_STORAGE_PUBLIC_BASE_URL"
	EnvStorageMaxUploadMB      = "IMS_STORAGE_MAX_UPLOAD_MB"
	EnvGCPCredentialsJSON      = "IMS_GCP_CREDENTIALS_JSON"
	EnvGoogleAppCredentials    = "IMS_GOOGLE_APPLICATION_CREDENTIALS"
	EnvGCSBucket               = "IMS_GCS_BUCKET_NAME"
	EnvAuthRateLimitLoginLimit = "IMS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
