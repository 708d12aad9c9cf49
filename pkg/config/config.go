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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Tracing      TracingConfig
	Cron         CronConfig
	Worker       WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BITETRACK_APP_ENV" required:"true"`
	Port         string   `envconfig:"BITETRACK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BITETRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BITETRACK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BITETRACK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BITETRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BITETRACK_DB_DSN"`
	Driver string `envconfig:"BITETRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BITETRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"BITETRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BITETRACK_DB_USER"`
	LegacyPassword string `envconfig:"BITETRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"BITETRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"BITETRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BITETRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BITETRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BITETRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BITETRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxMaxAttempts bounds how many times an atomic scope is replayed after
	// a transient conflict before the caller sees a retryable error.
	TxMaxAttempts    int           `envconfig:"BITETRACK_DB_TX_MAX_ATTEMPTS" default:"5"`
	TxRetryBaseDelay time.Duration `envconfig:"BITETRACK_DB_TX_RETRY_BASE_DELAY" default:"20ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BITETRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BITETRACK_REDIS_ADDR"`
	Password     string        `envconfig:"BITETRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BITETRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BITETRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BITETRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BITETRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BITETRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BITETRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BITETRACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BITETRACK_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	UndoWindow        time.Duration `envconfig:"BITETRACK_INVENTORY_UNDO_WINDOW" default:"8h"`
	LowStockThreshold int           `envconfig:"BITETRACK_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
}

// WorkerConfig drives the event worker that consumes published inventory
// and sales events.
type WorkerConfig struct {
	ProcessedTTL time.Duration `envconfig:"BITETRACK_WORKER_PROCESSED_TTL" default:"24h"`
	MetricsAddr  string        `envconfig:"BITETRACK_WORKER_METRICS_ADDR" default:":9093"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BITETRACK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BITETRACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BITETRACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventoryTopic        string `envconfig:"BITETRACK_PUBSUB_INVENTORY_TOPIC" default:"bt-inventory-events"`
	InventorySubscription string `envconfig:"BITETRACK_PUBSUB_INVENTORY_SUBSCRIPTION"`
	SalesTopic            string `envconfig:"BITETRACK_PUBSUB_SALES_TOPIC" default:"bt-sales-events"`
	SalesSubscription     string `envconfig:"BITETRACK_PUBSUB_SALES_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"BITETRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"BITETRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"BITETRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"BITETRACK_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsAddr    string `envconfig:"BITETRACK_OUTBOX_METRICS_ADDR" default:":9091"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"BITETRACK_CRON_INTERVAL" default:"1h"`
	WasteWindow time.Duration `envconfig:"BITETRACK_CRON_WASTE_WINDOW" default:"24h"`
	MetricsAddr string        `envconfig:"BITETRACK_CRON_METRICS_ADDR" default:":9092"`
}

type TracingConfig struct {
	Enabled     bool    `envconfig:"BITETRACK_TRACING_ENABLED" default:"false"`
	Endpoint    string  `envconfig:"BITETRACK_OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	Insecure    bool    `envconfig:"BITETRACK_OTEL_EXPORTER_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"BITETRACK_OTEL_SAMPLE_RATIO" default:"1"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		if useSQLite {
			db.Driver = "sqlite"
		}
		return nil
	}
	if useSQLite {
		db.Driver = "sqlite"
		db.DSN = defaultSQLiteDSN
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
