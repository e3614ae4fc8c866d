package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Track    TrackConfig    `mapstructure:"track"`
	Archiver ArchiverConfig `mapstructure:"archiver"`
}

type AppConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	Env             string        `mapstructure:"env"` // e.g., "local", "prod"
	MetricsPort     string        `mapstructure:"metrics_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding    string `mapstructure:"encoding" validate:"oneof=json console"`
	Development bool   `mapstructure:"development"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required"`
	GroupID string   `mapstructure:"group_id"`
}

// TrackConfig drives the simulated vessel and the map page.
type TrackConfig struct {
	VesselName   string        `mapstructure:"vessel_name" validate:"required"`
	Backend      string        `mapstructure:"backend" validate:"oneof=memory redis"`
	MaxHistory   int           `mapstructure:"max_history" validate:"gte=0"` // 0 = unbounded
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	AutoAdvance  time.Duration `mapstructure:"auto_advance" validate:"gte=0"` // 0 = only on poll
	StepDegrees  float64       `mapstructure:"step_degrees" validate:"gt=0"`
	MinSpeed     float64       `mapstructure:"min_speed" validate:"gte=0"`
	MaxSpeed     float64       `mapstructure:"max_speed" validate:"gtefield=MinSpeed"`
	Zoom         int           `mapstructure:"zoom" validate:"min=1,max=22"`
}

type ArchiverConfig struct {
	NumWorkers int           `mapstructure:"num_workers" validate:"gte=1"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	MaxHistory int           `mapstructure:"max_history" validate:"gte=0"`
	LatestTTL  time.Duration `mapstructure:"latest_ttl" validate:"gte=0"`
}

// LoadConfig reads configuration from .env file, an optional config.yml, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults
	setDefaults(v)

	// 3. Optional config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// 4. Environment Variables ("track.vessel_name" -> "TRACK_VESSEL_NAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env", "app.metrics_port", "app.shutdown_timeout")
	bindEnv(v, "logger.level", "logger.encoding", "logger.development")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_id")
	bindEnv(v, "track.vessel_name", "track.backend", "track.max_history", "track.poll_interval",
		"track.auto_advance", "track.step_degrees", "track.min_speed", "track.max_speed", "track.zoom")
	bindEnv(v, "archiver.num_workers", "archiver.key_prefix", "archiver.max_history", "archiver.latest_ttl")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.metrics_port", ":9000")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.development", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "vessel_waypoints")
	v.SetDefault("kafka.group_id", "seamap-archiver")

	v.SetDefault("track.vessel_name", "MV Explorer")
	v.SetDefault("track.backend", "memory")
	v.SetDefault("track.max_history", 0)
	v.SetDefault("track.poll_interval", 3*time.Second)
	v.SetDefault("track.auto_advance", time.Duration(0))
	v.SetDefault("track.step_degrees", 0.001)
	v.SetDefault("track.min_speed", 4.8)
	v.SetDefault("track.max_speed", 5.6)
	v.SetDefault("track.zoom", 17)

	v.SetDefault("archiver.num_workers", 1)
	v.SetDefault("archiver.key_prefix", "archive:")
	v.SetDefault("archiver.max_history", 10000)
	v.SetDefault("archiver.latest_ttl", time.Hour)
}

// Validate checks struct tags plus the rules tags can't express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
