// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TODO"

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageInMemory = "inmemory"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type StorageConfig struct {
	Type         string        `mapstructure:"type" yaml:"type"` // "sqlite", "postgres" или "inmemory"
	Path         string        `mapstructure:"path" yaml:"path"`
	Key          string        `mapstructure:"key" yaml:"key"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	MinConnections int           `mapstructure:"min_connections" yaml:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

type NotificationsConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Title         string        `mapstructure:"title" yaml:"title"`
	StorageKey    string        `mapstructure:"storage_key" yaml:"storage_key"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("storage.type", StorageSQLite)
	v.SetDefault("storage.path", "data/todo.db")
	v.SetDefault("storage.key", "tasks")
	v.SetDefault("storage.write_timeout", 5*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("logging.development", false)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.title", "Напоминание о задаче")
	v.SetDefault("notifications.storage_key", "reminders")
	v.SetDefault("notifications.check_interval", 30*time.Second)
	v.SetDefault("notifications.batch_size", 100)
}

// Load reads the configuration. With an empty path config.yml in the working
// directory is used if present; an explicit path must exist. TODO_* environment
// variables override file values (TODO_STORAGE_TYPE for storage.type).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path обязателен для sqlite")
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для postgres")
		}
	case StorageInMemory:
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", c.Storage.Type)
	}

	if c.Server.Port == "" {
		return errors.New("server.port не может быть пустым")
	}
	if c.Notifications.BatchSize <= 0 {
		return errors.New("notifications.batch_size должен быть положительным")
	}
	if c.Notifications.CheckInterval <= 0 {
		return errors.New("notifications.check_interval должен быть положительным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("сериализация конфигурации: %w", err)
	}
	return string(out), nil
}
