package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	JWT    JWTConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	URL     string
	Enabled bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type JWTConfig struct {
	Secret string
	Expire time.Duration
}

var (
	instance *Config
	once     sync.Once
)

// Load reads configuration from .env and the environment, with defaults for
// local development. Redis and Kafka are optional: leaving their addresses
// empty disables presence tracking and vote-event publishing.
func Load() (*Config, error) {
	once.Do(func() {
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
		viper.AddConfigPath(".")

		viper.SetDefault("WEPOLLIN_HOST", "")
		viper.SetDefault("WEPOLLIN_PORT", "8080")
		viper.SetDefault("WEPOLLIN_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("WEPOLLIN_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("WEPOLLIN_IDLE_TIMEOUT", 120*time.Second)
		viper.SetDefault("WEPOLLIN_JWT_SECRET", "secret")
		viper.SetDefault("WEPOLLIN_JWT_EXPIRE", "24h")
		viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
		viper.SetDefault("MONGO_DB", "wepollin")
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("KAFKA_BROKERS", "")
		viper.SetDefault("KAFKA_TOPIC", "wepollin.votes")
		viper.AutomaticEnv()

		// A missing .env file is fine; environment variables and defaults
		// cover it.
		_ = viper.ReadInConfig()

		brokers := splitList(viper.GetString("KAFKA_BROKERS"))
		redisURL := viper.GetString("REDIS_URL")

		instance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("WEPOLLIN_HOST"),
				Port:         viper.GetString("WEPOLLIN_PORT"),
				ReadTimeout:  viper.GetDuration("WEPOLLIN_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("WEPOLLIN_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("WEPOLLIN_IDLE_TIMEOUT"),
			},
			Mongo: MongoConfig{
				URI:      viper.GetString("MONGO_URI"),
				Database: viper.GetString("MONGO_DB"),
			},
			Redis: RedisConfig{
				URL:     redisURL,
				Enabled: redisURL != "",
			},
			Kafka: KafkaConfig{
				Brokers: brokers,
				Topic:   viper.GetString("KAFKA_TOPIC"),
				Enabled: len(brokers) > 0,
			},
			JWT: JWTConfig{
				Secret: viper.GetString("WEPOLLIN_JWT_SECRET"),
				Expire: viper.GetDuration("WEPOLLIN_JWT_EXPIRE"),
			},
		}
	})

	return instance, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
