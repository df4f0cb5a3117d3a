package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. APPCFG_PORT.
const EnvPrefix = "APPCFG_"

// Config holds the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Document DocumentConfig `yaml:"document"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host" validate:"required"`
	Port        int      `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds database connection settings. An empty URL keeps
// revisions in memory.
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// DocumentConfig points at the edited config file.
type DocumentConfig struct {
	Path        string `yaml:"path" validate:"required"`
	SchemaCheck bool   `yaml:"schema_check"`
}

// AutosaveConfig schedules draft snapshots. An empty schedule disables them.
type AutosaveConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 1m"
}

// AuthConfig enables bearer token auth on mutating routes when Secret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Document: DocumentConfig{
			Path:        "bitrise.yml",
			SchemaCheck: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file at path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return finish(cfg)
}

// LoadDefault loads ".env" when present, then tries "config.yaml" from the
// current directory. If the file does not exist, defaults are used.
// Any other error (e.g. permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return finish(defaults())
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in file into the process environment
// without overwriting variables that are already set. A missing file is not
// an error.
func LoadDotEnv(file string) error {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("loading %s: %w", file, err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from APPCFG_* variables.
func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"HOST":         &cfg.Server.Host,
		"DATABASE_URL": &cfg.Database.URL,
		"DOCUMENT":     &cfg.Document.Path,
		"AUTOSAVE":     &cfg.Autosave.Schedule,
		"JWT_SECRET":   &cfg.Auth.JWTSecret,
		"LOG_LEVEL":    &cfg.Log.Level,
	}
	for name, field := range str {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SCHEMA_CHECK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSCHEMA_CHECK: %w", EnvPrefix, err)
		}
		cfg.Document.SchemaCheck = b
	}
	return nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
