package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Scheduler struct {
		Enabled                bool          `yaml:"enabled" default:"true"`
		Cadence                time.Duration `yaml:"cadence" default:"60s" validate:"gt=0"`
		MaxParallelEvaluations int           `yaml:"max_parallel_evaluations" default:"4" validate:"gte=1"`
		HistoryLookback        int           `yaml:"history_lookback" default:"200" validate:"gte=1"`
		Lock                   struct {
			Enabled bool          `yaml:"enabled"`
			Key     string        `yaml:"key" default:"cycle-lock"`
			TTL     time.Duration `yaml:"ttl" default:"5m"`
		} `yaml:"lock"`
	} `yaml:"scheduler"`
	Price struct {
		Source         string        `yaml:"source" default:"http" validate:"oneof=http clickhouse"`
		BaseURL        string        `yaml:"base_url"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"2s"`
		ReadTimeout    time.Duration `yaml:"read_timeout" default:"5s"`
		RateLimit      struct {
			RPS   float64 `yaml:"rps" default:"20"`
			Burst float64 `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
		Retries struct {
			Max       int           `yaml:"max" default:"3" validate:"gte=0"`
			BaseDelay time.Duration `yaml:"base_delay" default:"200ms"`
			MaxDelay  time.Duration `yaml:"max_delay" default:"2s"`
			Jitter    time.Duration `yaml:"jitter" default:"150ms"`
		} `yaml:"retries"`
		Auth struct {
			EnablePropagated     bool   `yaml:"enable_propagated" default:"true"`
			EnableServiceAccount bool   `yaml:"enable_service_account" default:"true"`
			Issuer               string `yaml:"issuer"`
			ClientID             string `yaml:"client_id"`
			ClientSecret         string `yaml:"client_secret"`
			Audience             string `yaml:"audience"`
			Scope                string `yaml:"scope" default:"read:historical write:watchlist manage:prefetch"`
		} `yaml:"auth"`
	} `yaml:"price"`
	Notification struct {
		Transport   string        `yaml:"transport" default:"http" validate:"oneof=http kafka none"`
		BaseURL     string        `yaml:"base_url"`
		AlertPath   string        `yaml:"alert_path" default:"/api/v1/notify/alert"`
		TemplateKey string        `yaml:"template_key" default:"alert-default"`
		Timeout     time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"notification"`
	Database struct {
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		AutoMigrate     bool          `yaml:"auto_migrate"`
	} `yaml:"database"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"market"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"8" validate:"gte=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"4" validate:"gte=0"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		AlertTopic       string   `yaml:"alert_topic" default:"alert-events"`
		RuleCreatedTopic string   `yaml:"rule_created_topic"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression      string   `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"alert-engine"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cache struct {
		MaxEntries    int           `yaml:"max_entries" default:"10000" validate:"gte=1"`
		SweepInterval time.Duration `yaml:"sweep_interval" default:"1m"`
	} `yaml:"cache"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"alertengine"`
		PoolSize int    `yaml:"pool_size" default:"10" validate:"gte=1"`
		MinIdle  int    `yaml:"min_idle" default:"2" validate:"gte=0"`
		// LocalTTL bounds how stale the in-process copy of a Redis value may get.
		LocalTTL time.Duration `yaml:"local_ttl" default:"30s"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Default returns a configuration populated only with defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ALERTS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALERTS_ENABLED: %w", err)
		}
		c.Scheduler.Enabled = b
	}
	if v := getenv("ALERTS_CADENCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ALERTS_CADENCE: %w", err)
		}
		c.Scheduler.Cadence = d
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("PRICE_BASE_URL"); v != "" {
		c.Price.BaseURL = v
	}
	if v := getenv("PRICE_CLIENT_SECRET"); v != "" {
		c.Price.Auth.ClientSecret = v
	}
	if v := getenv("NOTIFY_BASE_URL"); v != "" {
		c.Notification.BaseURL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Redis.Port = p
		}
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Price.Source == "http" && c.Price.BaseURL == "" {
		return fmt.Errorf("price.base_url is required when price.source is 'http'")
	}
	if c.Price.Source == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when price.source is 'clickhouse'")
	}
	if c.Price.Retries.MaxDelay < c.Price.Retries.BaseDelay {
		return fmt.Errorf("price.retries.max_delay must be >= base_delay")
	}
	switch c.Notification.Transport {
	case "http":
		if c.Notification.BaseURL == "" {
			return fmt.Errorf("notification.base_url is required when transport is 'http'")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when notification.transport is 'kafka'")
		}
	}
	if c.Kafka.RuleCreatedTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.rule_created_topic is set")
	}
	if c.Scheduler.Lock.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("scheduler.lock requires redis.enabled")
	}
	return nil
}
