package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service     Service     `envconfig:"SERVICE"`
	SQS         SQS         `envconfig:"SQS"`
	ClickHouse  ClickHouse  `envconfig:"CLICKHOUSE"`
	Postgres    Postgres    `envconfig:"POSTGRES"`
	Valkey      Valkey      `envconfig:"VALKEY"`
	Kafka       Kafka       `envconfig:"KAFKA"`
	Consumer    Consumer    `envconfig:"CONSUMER"`
	Attribution Attribution `envconfig:"ATTRIBUTION"`
}

type Service struct {
	Environment string `envconfig:"ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"API_PORT" default:"8080"`
	Host        string `envconfig:"HOST" default:"localhost:8080"`
}

type SQS struct {
	Endpoint string `envconfig:"ENDPOINT"`
	QueueURL string `envconfig:"QUEUE_URL" required:"true"`
	Region   string `envconfig:"REGION" required:"true"`
}

type ClickHouse struct {
	Host            string `envconfig:"HOST" required:"true"`
	Port            string `envconfig:"PORT" required:"true"`
	Database        string `envconfig:"DB" required:"true"`
	User            string `envconfig:"USER" default:""`
	Password        string `envconfig:"PASSWORD" default:""`
	UseTLS          bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
	RetentionDays   int    `envconfig:"EVENT_RETENTION_DAYS" default:"395"`
}

type Postgres struct {
	DSN          string `envconfig:"DSN" required:"true"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
}

type Valkey struct {
	Enabled   bool   `envconfig:"ENABLED" default:"true"`
	Address   string `envconfig:"ADDRESS" default:"localhost:6379"`
	Password  string `envconfig:"PASSWORD" default:""`
	DB        int    `envconfig:"DB" default:"0"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"attribution:"`
}

type Kafka struct {
	Enabled bool     `envconfig:"ENABLED" default:"false"`
	Brokers []string `envconfig:"BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"TOPIC" default:"campaign-roi"`
}

type Consumer struct {
	BatchSizeMax       int    `envconfig:"BATCH_SIZE_MAX" default:"2000"`
	BatchTimeoutSec    int    `envconfig:"BATCH_TIMEOUT_SEC" default:"10"`
	ReceiveMaxMessages int32  `envconfig:"RECEIVE_MAX_MESSAGES" default:"10"`
	ReceiveWaitSec     int32  `envconfig:"RECEIVE_WAIT_SEC" default:"20"`
	HealthCheckPort    string `envconfig:"HEALTH_CHECK_PORT" default:"8081"`
}

type Attribution struct {
	Models         []string      `envconfig:"MODELS" default:"first_touch,last_touch,linear,time_decay,position_based,u_shaped,w_shaped"`
	LookbackWindow time.Duration `envconfig:"LOOKBACK_WINDOW" default:"720h"`
	HalfLife       time.Duration `envconfig:"HALF_LIFE" default:"168h"`

	IdentityWindow        time.Duration `envconfig:"IDENTITY_WINDOW" default:"30m"`
	IdentityMinConfidence float64       `envconfig:"IDENTITY_MIN_CONFIDENCE" default:"0.4"`
	IdentityIPWeight      float64       `envconfig:"IDENTITY_IP_WEIGHT" default:"0.5"`
	IdentityDeviceWeight  float64       `envconfig:"IDENTITY_DEVICE_WEIGHT" default:"0.3"`
	IdentityTimeWeight    float64       `envconfig:"IDENTITY_TIME_WEIGHT" default:"0.2"`
	IdentityTieTolerance  float64       `envconfig:"IDENTITY_TIE_TOLERANCE" default:"0.05"`

	MinSampleSize    int `envconfig:"MIN_SAMPLE_SIZE" default:"30"`
	MediumSampleSize int `envconfig:"MEDIUM_SAMPLE_SIZE" default:"100"`
	HighSampleSize   int `envconfig:"HIGH_SAMPLE_SIZE" default:"500"`

	DedupTTL     time.Duration `envconfig:"DEDUP_TTL" default:"720h"`
	ROIStaleness time.Duration `envconfig:"ROI_STALENESS" default:"15m"`
	Workers      int           `envconfig:"PIPELINE_WORKERS" default:"4"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// LoadSection processes a single section, such as &cfg.Postgres under
// "POSTGRES", for tools that do not need the full service configuration.
func LoadSection(prefix string, section interface{}) error {
	if err := envconfig.Process(prefix, section); err != nil {
		return fmt.Errorf("failed to process %s config: %w", prefix, err)
	}
	return nil
}
