package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Queue     QueueConfig
	Notifier  NotifierConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port     string
	Env      string
	Timezone string
	// StorageDriver selects "postgres" or the in-process "memory" store
	StorageDriver string
	CORSOrigins   []string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	Timezone     string
	MaxIdleConns int
	MaxOpenConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// RelayEnabled mirrors change events across instances over pub/sub
	RelayEnabled bool
	RelayChannel string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type QueueConfig struct {
	CollisionRetries int
}

type NotifierConfig struct {
	BufferSize int
	// PGListen forwards trigger NOTIFY messages into the notifier
	PGListen bool
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.Timezone,
	)
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Location resolves the clinic timezone used to compute queue dates
func (c AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("STORAGE_DRIVER", "postgres")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "clinic")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_RELAY_ENABLED", false)
	viper.SetDefault("REDIS_RELAY_CHANNEL", "clinic:changes")

	viper.SetDefault("JWT_ISSUER", "clinic-auth")

	viper.SetDefault("QUEUE_COLLISION_RETRIES", 3)
	viper.SetDefault("NOTIFIER_BUFFER", 256)
	viper.SetDefault("NOTIFIER_PG_LISTEN", false)

	viper.SetDefault("OTEL_SERVICE_NAME", "clinic-queue")
}

func LoadConfig() (*Config, error) {
	setDefaults()
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// a missing .env is fine, the environment alone can configure the service
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	timezone := viper.GetString("APP_TIMEZONE")

	config := &Config{
		App: AppConfig{
			Port:          viper.GetString("APP_PORT"),
			Env:           viper.GetString("APP_ENV"),
			Timezone:      timezone,
			StorageDriver: viper.GetString("STORAGE_DRIVER"),
			CORSOrigins:   strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ","),
		},
		DB: DBConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Name:         viper.GetString("DB_NAME"),
			SSLMode:      viper.GetString("DB_SSLMODE"),
			Timezone:     timezone,
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetString("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			RelayEnabled: viper.GetBool("REDIS_RELAY_ENABLED"),
			RelayChannel: viper.GetString("REDIS_RELAY_CHANNEL"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Issuer: viper.GetString("JWT_ISSUER"),
		},
		Queue: QueueConfig{
			CollisionRetries: viper.GetInt("QUEUE_COLLISION_RETRIES"),
		},
		Notifier: NotifierConfig{
			BufferSize: viper.GetInt("NOTIFIER_BUFFER"),
			PGListen:   viper.GetBool("NOTIFIER_PG_LISTEN"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  viper.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}
