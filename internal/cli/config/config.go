package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/conduit-lang/breeze/internal/logging"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// EnvPrefix prefixes every environment override, e.g. BREEZE_DATABASE_HOST
const EnvPrefix = "BREEZE"

// Config represents the breeze configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Dialect  string `mapstructure:"dialect"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// MetadataConfig locates the metadata document
type MetadataConfig struct {
	Path             string `mapstructure:"path"`
	NamingConvention string `mapstructure:"naming_convention"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Connection returns the connection parameters for the configured dialect
func (d DatabaseConfig) Connection() dialect.Config {
	host := d.Host
	if d.Port > 0 && host != "" {
		host = net.JoinHostPort(host, strconv.Itoa(d.Port))
	}
	return dialect.Config{
		Host:     host,
		User:     d.User,
		Password: d.Password,
		DBName:   d.Name,
	}
}

// Load reads breeze.yaml (or the file at path), a .env file in the working
// directory and BREEZE_ environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("database.dialect", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("metadata.path", "metadata.json")
	v.SetDefault("metadata.naming_convention", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("breeze")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadDotEnv sets variables from a .env file without overriding the environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := dialect.Get(cfg.Database.Dialect); err != nil {
		return fmt.Errorf("database.dialect: %w (expected one of %s)", err, strings.Join(dialect.Names(), ", "))
	}
	if cfg.Database.Port < 0 || cfg.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 0 and 65535, got: %d", cfg.Database.Port)
	}
	if _, err := schema.ParseNamingConvention(cfg.Metadata.NamingConvention); err != nil {
		return fmt.Errorf("metadata.naming_convention: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
