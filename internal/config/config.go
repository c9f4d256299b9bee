package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config хранит все параметры приложения
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Settings      SettingsConfig      `yaml:"settings"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Menu          MenuConfig          `yaml:"menu"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	MaxConcurrent int    `yaml:"maxConcurrent"`
	StaticDir     string `yaml:"staticDir"`
	Currency      string `yaml:"currency"`
	SessionTTLMin int    `yaml:"sessionTTLMin"`
}

// StorageConfig selects the key/value backend: postgres | sqlite | memory.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlitePath"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"useTLS"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SettingsConfig configures the admin settings channel. Broker is memory | rabbitmq | kafka.
type SettingsConfig struct {
	Broker         string `yaml:"broker"`
	AdminPassword  string `yaml:"adminPassword"`
	DefaultMessage string `yaml:"defaultMessage"`
}

type TelegramConfig struct {
	APIURL     string `yaml:"apiURL"`
	BotToken   string `yaml:"botToken"`
	ChatID     string `yaml:"chatID"`
	TimeoutSec int    `yaml:"timeoutSec"` // 0 means the http client default
}

type NotificationsConfig struct {
	Icon     string `yaml:"icon"`
	Badge    string `yaml:"badge"`
	Timezone string `yaml:"timezone"`
}

type MenuConfig struct {
	Path string `yaml:"path"` // empty uses the built-in catalog
}

type LoggingConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
	File  string `yaml:"file"`  // empty logs to stdout
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	BrokerMemory   = "memory"
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
)

func Default() Config {
	var cfg Config
	cfg.Server.Port = 3000
	cfg.Server.MaxConcurrent = 50
	cfg.Server.StaticDir = "web"
	cfg.Server.Currency = "€"
	cfg.Server.SessionTTLMin = 12 * 60
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.SQLitePath = "cafeteria.db"
	cfg.Database.Port = 5432
	cfg.Database.SSLMode = "disable"
	cfg.RabbitMQ.Port = 5672
	cfg.RabbitMQ.VHost = "/"
	cfg.Kafka.Topic = "cafeteria.admin-settings"
	cfg.Settings.Broker = BrokerMemory
	cfg.Settings.DefaultMessage = "Welcome to the University Cafeteria!"
	cfg.Telegram.APIURL = "https://api.telegram.org"
	cfg.Notifications.Icon = "/icons/cafeteria-192.png"
	cfg.Notifications.Badge = "/favicon.ico"
	cfg.Notifications.Timezone = "Local"
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides for secrets and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("couldn't open the configuration file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Settings.AdminPassword, "ADMIN_PASSWORD")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("server.maxConcurrent must be > 0"))
	}
	if c.Server.SessionTTLMin <= 0 {
		errs = append(errs, errors.New("server.sessionTTLMin must be > 0"))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database config incomplete"))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlitePath is required for sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Settings.Broker) {
	case BrokerMemory:
	case BrokerRabbitMQ:
		if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
			errs = append(errs, errors.New("rabbitmq config incomplete"))
		}
	case BrokerKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka config incomplete"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown settings.broker %q", c.Settings.Broker))
	}

	if c.Telegram.APIURL == "" {
		errs = append(errs, errors.New("telegram.apiURL is required"))
	}
	if c.Telegram.TimeoutSec < 0 {
		errs = append(errs, errors.New("telegram.timeoutSec must be >= 0"))
	}
	return errors.Join(errs...)
}
