package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Mailer        MailerConfig
	Storage       StorageConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	} else {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required for the local storage driver", EnvStorageLocalDir))
		}
	case StorageDriverGCS:
		if strings.TrimSpace(c.GCS.BucketName) == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required for the gcs storage driver", EnvGCSBucket))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Redis.URL) == "" && strings.TrimSpace(c.Redis.Address) == "" {
		err = multierr.Append(err, fmt.Errorf("%s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.Maintenance.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvMaintenanceInterval))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.PasswordReset.TTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvPasswordResetTTL))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"IMS_APP_ENV" required:"true"`
	Port         string `envconfig:"IMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"IMS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"IMS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"IMS_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"IMS_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"IMS_DB_DSN"`
	Driver string `envconfig:"IMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"IMS_DB_HOST"`
	LegacyPort     int    `envconfig:"IMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IMS_DB_USER"`
	LegacyPassword string `envconfig:"IMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"IMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"IMS_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"IMS_SQLITE_PATH" default:"ims.db"`

	MaxOpenConns    int           `envconfig:"IMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"IMS_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IMS_REDIS_URL"`
	Address      string        `envconfig:"IMS_REDIS_ADDR"`
	Password     string        `envconfig:"IMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IMS_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"IMS_REDIS_KEY_PREFIX" default:"ims"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"IMS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"IMS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"IMS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"IMS_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"IMS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"IMS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"IMS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"IMS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"IMS_ARGON_KEY_LEN" default:"32"`
}

type PasswordResetConfig struct {
	TTL time.Duration `envconfig:"IMS_PASSWORD_RESET_TTL" default:"24h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"IMS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"IMS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"IMS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"IMS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"IMS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"IMS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"IMS_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"IMS_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"IMS_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"IMS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"IMS_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"IMS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type MailerConfig struct {
	WebhookURL string        `envconfig:"IMS_MAILER_WEBHOOK_URL"`
	APIKey     string        `envconfig:"IMS_MAILER_API_KEY"`
	Timeout    time.Duration `envconfig:"IMS_MAILER_TIMEOUT" default:"10s"`
}

// Enabled reports whether outbound email is delivered rather than logged.
func (m MailerConfig) Enabled() bool {
	return strings.TrimSpace(m.WebhookURL) != ""
}

const (
	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
)

type StorageConfig struct {
	Driver        string `envconfig:"IMS_STORAGE_DRIVER" default:"local"`
	LocalDir      string `envconfig:"IMS_STORAGE_LOCAL_DIR" default:"media"`
	PublicBaseURL string `envconfig:"IMS_STORAGE_PUBLIC_BASE_URL" default:"/media"`
	MaxUploadMB   int    `envconfig:"IMS_STORAGE_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

type MaintenanceConfig struct {
	Interval            time.Duration `envconfig:"IMS_MAINTENANCE_INTERVAL" default:"1h"`
	ResetTokenRetention time.Duration `envconfig:"IMS_MAINTENANCE_RESET_TOKEN_RETENTION" default:"168h"`
}

type GCPConfig struct {
	CredentialsJSON        string `envconfig:"IMS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"IMS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"IMS_GCS_BUCKET_NAME"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
