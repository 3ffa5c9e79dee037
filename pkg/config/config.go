package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv    string `mapstructure:"app_env" yaml:"app_env"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	GRPCPort int `mapstructure:"grpc_port" yaml:"grpc_port"`
	HTTPPort int `mapstructure:"http_port" yaml:"http_port"`

	BackendURL   string `mapstructure:"backend_url" yaml:"backend_url"`
	BackendToken string `mapstructure:"backend_token" yaml:"backend_token"`

	WSURL            string        `mapstructure:"ws_url" yaml:"ws_url"`
	WSReconnectDelay time.Duration `mapstructure:"ws_reconnect_delay" yaml:"ws_reconnect_delay"`

	CartDBPath      string `mapstructure:"cart_db_path" yaml:"cart_db_path"`
	DefaultCurrency string `mapstructure:"default_currency" yaml:"default_currency"`
	WaiterFallback  string `mapstructure:"waiter_fallback" yaml:"waiter_fallback"`
	Locale          string `mapstructure:"locale" yaml:"locale"`

	Relay Relay `mapstructure:"relay" yaml:"relay"`
}

// Relay holds settings for the webhook-to-websocket relay.
type Relay struct {
	Port          int    `mapstructure:"port" yaml:"port"`
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	Token         string `mapstructure:"token" yaml:"token"`
	AMQPURL       string `mapstructure:"amqp_url" yaml:"amqp_url"`
	DatabaseURL   string `mapstructure:"database_url" yaml:"database_url"`
}

func Load() Config {
	return Config{
		AppEnv:           getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		GRPCPort:         getEnvInt("GRPC_PORT", 8081),
		BackendURL:       getEnv("BACKEND_URL", "http://localhost:9154"),
		BackendToken:     os.Getenv("BACKEND_TOKEN"),
		WSURL:            os.Getenv("WS_URL"),
		WSReconnectDelay: getEnvDuration("WS_RECONNECT_DELAY", 3*time.Second),
		CartDBPath:       getEnv("CART_DB_PATH", defaultCartPath()),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "usd"),
		WaiterFallback:   getEnv("WAITER_FALLBACK", "Vendedor"),
		Locale:           getEnv("LOCALE", "en"),
		Relay: Relay{
			Port:          getEnvInt("RELAY_PORT", 9154),
			WebhookSecret: os.Getenv("PHOENIX_WEBHOOK_SECRET"),
			Token:         os.Getenv("RELAY_TOKEN"),
			AMQPURL:       os.Getenv("AMQP_URL"),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
		},
	}
}

// LoadFile overlays the YAML file at path on top of the environment
// defaults. An empty path returns the defaults unchanged.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// PushURL resolves the payment push channel address. WS_URL wins; otherwise
// it is derived from the backend URL.
func (c Config) PushURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	base := strings.TrimRight(c.BackendURL, "/")
	if base == "" {
		return "ws://localhost:9154/ws/payments"
	}
	if strings.HasPrefix(strings.ToLower(base), "http") {
		base = "ws" + base[len("http"):]
	}
	return base + "/ws/payments"
}

// YAML renders the configuration with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	redacted := c
	redacted.BackendToken = redact(c.BackendToken)
	redacted.Relay.WebhookSecret = redact(c.Relay.WebhookSecret)
	redacted.Relay.Token = redact(c.Relay.Token)
	redacted.Relay.AMQPURL = redact(c.Relay.AMQPURL)
	redacted.Relay.DatabaseURL = redact(c.Relay.DatabaseURL)
	return yaml.Marshal(redacted)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func defaultCartPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pos/cart.db"
	}
	return filepath.Join(home, ".pos", "cart.db")
}
