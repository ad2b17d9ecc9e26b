package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"     validate:"required"`
	Port     int    `mapstructure:"port"     validate:"required,numeric,min=1,max=65535"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"  validate:"required"`
}

type AppConfig struct {
	Port                int    `mapstructure:"port"                  validate:"required,numeric,min=1,max=65535"`
	LogLevel            string `mapstructure:"log_level"             validate:"required"`
	HumanReadableOutput bool   `mapstructure:"human_readable_output"`

	// RequestDir is where raw submission requests are archived.
	RequestDir string `mapstructure:"request_dir" validate:"required"`

	// ProtocolVersion is the single supported submission protocol.
	ProtocolVersion int `mapstructure:"protocol_version" validate:"required,min=1"`

	Database DatabaseConfig `mapstructure:"database"`
}

// Load reads configuration from defaults, an optional gentoostats.yaml,
// and GENTOOSTATS_* environment variables, in increasing precedence.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("human_readable_output", false)
	v.SetDefault("request_dir", "requests")
	v.SetDefault("protocol_version", 2)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "gentoostats")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "gentoostats")
	v.SetDefault("database.sslmode", "disable")

	v.SetConfigName("gentoostats")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gentoostats")

	v.SetEnvPrefix("GENTOOSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
