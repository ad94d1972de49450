package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Matching     MatchingConfig
	Promotion    PromotionConfig
	Import       ImportConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATALOG_APP_ENV" required:"true"`
	Port         string `envconfig:"CATALOG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CATALOG_DB_DSN"`
	Driver string `envconfig:"CATALOG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CATALOG_DB_HOST"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	User     string `envconfig:"CATALOG_DB_USER"`
	Password string `envconfig:"CATALOG_DB_PASSWORD"`
	Name     string `envconfig:"CATALOG_DB_NAME"`
	SSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CATALOG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CATALOG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL" required:"true"`
	Password     string        `envconfig:"CATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CATALOG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CATALOG_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CATALOG_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MatchingConfig tunes the fuzzy matcher. The default threshold is deliberately
// strict: near-miss names ("Bashmati" vs "Basmati") must not merge.
type MatchingConfig struct {
	SimilarityThreshold float64 `envconfig:"CATALOG_MATCH_SIMILARITY_THRESHOLD" default:"0.85"`
	MaxCandidates       int     `envconfig:"CATALOG_MATCH_MAX_CANDIDATES" default:"500"`
	MaxSuggestions      int     `envconfig:"CATALOG_MATCH_MAX_SUGGESTIONS" default:"5"`
}

type PromotionConfig struct {
	MinQualityScore int `envconfig:"CATALOG_PROMOTION_MIN_QUALITY_SCORE" default:"60"`
}

type ImportConfig struct {
	Workers          int           `envconfig:"CATALOG_IMPORT_WORKERS" default:"4"`
	ChunkSize        int           `envconfig:"CATALOG_IMPORT_CHUNK_SIZE" default:"50"`
	ItemTimeout      time.Duration `envconfig:"CATALOG_IMPORT_ITEM_TIMEOUT" default:"10s"`
	PollInterval     time.Duration `envconfig:"CATALOG_IMPORT_POLL_INTERVAL" default:"2s"`
	PerItemEstimate  time.Duration `envconfig:"CATALOG_IMPORT_PER_ITEM_ESTIMATE" default:"150ms"`
	ResolveAttempts  int           `envconfig:"CATALOG_RESOLVE_ATTEMPTS" default:"3"`
	ResolveBackoff   time.Duration `envconfig:"CATALOG_RESOLVE_BACKOFF" default:"25ms"`
	JobProgressTTL   time.Duration `envconfig:"CATALOG_IMPORT_PROGRESS_TTL" default:"24h"`
	CommitIdempotTTL time.Duration `envconfig:"CATALOG_IMPORT_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CATALOG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
