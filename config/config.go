package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"hexim-sync"`
	Version    string `env:"APP_VERSION" env-default:"dev"`
	Port       int    `env:"PORT" env-default:"3000"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"hexim"`
	// Database SSL mode
	DatabaseSSLMode         string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	DatabaseMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	// Migrations
	DatabaseMigrationFolderPath   string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int    `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int    `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool   `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaEventsTopic  string   `env:"KAFKA_EVENTS_TOPIC" env-default:"hexim-sync-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol    string `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	OTLPTimeoutSecs int    `env:"OTEL_EXPORTER_OTLP_TIMEOUT_SECONDS" env-default:"10"`

	// Target system
	ShopwareURL          string `env:"SHOPWARE_URL" env-default:"http://localhost:8000"`
	ShopwareClientID     string `env:"SHOPWARE_CLIENT_ID" env-default:""`
	ShopwareClientSecret string `env:"SHOPWARE_CLIENT_SECRET" env-default:""`

	// Source system, used by the diagnostic run
	PlentyURL      string `env:"PLENTY_URL" env-default:""`
	PlentyUsername string `env:"PLENTY_USERNAME" env-default:""`
	PlentyPassword string `env:"PLENTY_PASSWORD" env-default:""`

	// Sync
	SyncSettingsFile string        `env:"SYNC_SETTINGS_FILE" env-default:"settings.yaml"`
	SyncBatchSize    int           `env:"SYNC_BATCH_SIZE" env-default:"200"`
	SyncInterval     time.Duration `env:"SYNC_INTERVAL" env-default:"1m"`
	SyncLockTTL      time.Duration `env:"SYNC_LOCK_TTL" env-default:"10m"`
}

// Load reads an optional .env file and binds the environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}
