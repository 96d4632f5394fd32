package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of the dashboard and of the reference backend.
type Config struct {
	Dashboard DashboardConfig
	Backend   BackendConfig
	Server    ServerConfig
	RabbitMQ  RabbitMQConfig
	Logger    LoggerConfig
}

// DashboardConfig configures the dashboard and its API client.
type DashboardConfig struct {
	Port           string
	BackendURL     string
	MediaURL       string
	BackendTimeout time.Duration
	FeedSize       int
}

// BackendConfig is shared by both sides of the backend connection.
type BackendConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// ServerConfig configures the reference catalog backend.
type ServerConfig struct {
	Port           string
	DatabaseDriver string
	DatabaseDSN    string
	MediaDir       string
}

// RabbitMQConfig configures product change events. An empty URL disables them.
type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads the configuration from the environment. A local .env file is
// loaded first when present; real environment variables take precedence.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BACKEND_URL", "http://localhost:3000")
	v.SetDefault("MEDIA_URL", "http://localhost:3000/media/")
	v.SetDefault("BACKEND_TIMEOUT", "0s")
	v.SetDefault("NOTIFICATION_FEED_SIZE", 50)
	v.SetDefault("SERVICE_TOKEN_SECRET", "")
	v.SetDefault("SERVICE_TOKEN_TTL", "5m")
	v.SetDefault("BACKEND_PORT", ":3000")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "productdash.db")
	v.SetDefault("MEDIA_DIR", "./media")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "products")
	v.SetDefault("RABBITMQ_QUEUE", "productdash_refresh")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Dashboard: DashboardConfig{
			Port:           v.GetString("APP_PORT"),
			BackendURL:     v.GetString("BACKEND_URL"),
			MediaURL:       v.GetString("MEDIA_URL"),
			BackendTimeout: v.GetDuration("BACKEND_TIMEOUT"),
			FeedSize:       v.GetInt("NOTIFICATION_FEED_SIZE"),
		},
		Backend: BackendConfig{
			TokenSecret: v.GetString("SERVICE_TOKEN_SECRET"),
			TokenTTL:    v.GetDuration("SERVICE_TOKEN_TTL"),
		},
		Server: ServerConfig{
			Port:           v.GetString("BACKEND_PORT"),
			DatabaseDriver: v.GetString("DATABASE_DRIVER"),
			DatabaseDSN:    v.GetString("DATABASE_DSN"),
			MediaDir:       v.GetString("MEDIA_DIR"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
			Queue:    v.GetString("RABBITMQ_QUEUE"),
		},
		Logger: LoggerConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
	}
}

// Validate checks that the dashboard has the URLs it needs. The values are not
// otherwise interpreted.
func (c *Config) Validate() error {
	var errs []error
	if c.Dashboard.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if c.Dashboard.MediaURL == "" {
		errs = append(errs, errors.New("MEDIA_URL is required"))
	}
	return errors.Join(errs...)
}
