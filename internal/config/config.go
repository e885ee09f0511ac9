package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Library  LibraryConfig  `yaml:"library" json:"library"`
	Scanner  ScannerConfig  `yaml:"scanner" json:"scanner"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Monitor  MonitorConfig  `yaml:"monitor" json:"monitor"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"ECHOSUB_HOST"`
	Port         int           `yaml:"port" json:"port" env:"ECHOSUB_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"ECHOSUB_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"ECHOSUB_WRITE_TIMEOUT"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"ECHOSUB_ENABLE_CORS"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type" env:"DATABASE_TYPE"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"ECHOSUB_DATABASE_PATH"`
	Host         string `yaml:"host" json:"host" env:"POSTGRES_HOST"`
	Port         int    `yaml:"port" json:"port" env:"POSTGRES_PORT"`
	Username     string `yaml:"username" json:"username" env:"POSTGRES_USER"`
	Password     string `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database     string `yaml:"database" json:"database" env:"POSTGRES_DB"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES"`
}

// LibraryConfig holds the media library configuration
type LibraryConfig struct {
	Root       string   `yaml:"root" json:"root" env:"ECHOSUB_LIBRARY_ROOT"`
	Recursive  bool     `yaml:"recursive" json:"recursive" env:"ECHOSUB_LIBRARY_RECURSIVE"`
	Extensions []string `yaml:"extensions" json:"extensions" env:"ECHOSUB_LIBRARY_EXTENSIONS"`
	AssetDir   string   `yaml:"asset_dir" json:"asset_dir" env:"ECHOSUB_ASSET_DIR"`
}

// ScannerConfig holds scan worker configuration
type ScannerConfig struct {
	ProgressEveryFiles int           `yaml:"progress_every_files" json:"progress_every_files" env:"ECHOSUB_PROGRESS_EVERY_FILES"`
	ProgressInterval   time.Duration `yaml:"progress_interval" json:"progress_interval" env:"ECHOSUB_PROGRESS_INTERVAL"`
	ExtractTimeout     time.Duration `yaml:"extract_timeout" json:"extract_timeout" env:"ECHOSUB_EXTRACT_TIMEOUT"`
	MissingRetention   time.Duration `yaml:"missing_retention" json:"missing_retention" env:"ECHOSUB_MISSING_RETENTION"`
	HistoryRetention   time.Duration `yaml:"history_retention" json:"history_retention" env:"ECHOSUB_HISTORY_RETENTION"`
	ExtractCovers      bool          `yaml:"extract_covers" json:"extract_covers" env:"ECHOSUB_EXTRACT_COVERS"`
	EncodeCoversWebP   bool          `yaml:"encode_covers_webp" json:"encode_covers_webp" env:"ECHOSUB_COVERS_WEBP"`
}

// AuthConfig holds real-time channel authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" json:"-" env:"ECHOSUB_JWT_SECRET"`
}

// MonitorConfig holds file monitoring configuration
type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" env:"ECHOSUB_MONITOR_ENABLED"`
	Debounce time.Duration `yaml:"debounce" json:"debounce" env:"ECHOSUB_MONITOR_DEBOUNCE"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:         "sqlite",
			DatabasePath: "./data/echosub.db",
			Host:         "localhost",
			Port:         5432,
			Username:     "echosub",
			Database:     "echosub",
		},
		Library: LibraryConfig{
			Root:       "./data/music",
			Recursive:  true,
			Extensions: []string{".mp3", ".flac", ".m4a", ".aac", ".ogg", ".wav", ".wma"},
			AssetDir:   "./data/assets",
		},
		Scanner: ScannerConfig{
			ProgressEveryFiles: 10,
			ProgressInterval:   time.Second,
			ExtractTimeout:     30 * time.Second,
			MissingRetention:   7 * 24 * time.Hour,
			HistoryRetention:   30 * 24 * time.Hour,
			ExtractCovers:      true,
			EncodeCoversWebP:   true,
		},
		Auth: AuthConfig{},
		Monitor: MonitorConfig{
			Enabled:  false,
			Debounce: 30 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and applies
// environment variable overrides on top of the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// Get returns the last loaded configuration, or the defaults when Load
// has not been called.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if globalConfig == nil {
		return DefaultConfig()
	}
	return globalConfig
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Scanner.ProgressEveryFiles <= 0 {
		c.Scanner.ProgressEveryFiles = 10
	}
	if c.Scanner.ProgressInterval <= 0 {
		c.Scanner.ProgressInterval = time.Second
	}
	return nil
}

// loadStructFromEnv walks a struct and applies values from the env vars
// declared in `env` field tags. Nested structs are walked recursively.
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envName := t.Field(i).Tag.Get("env")
		if envName == "" {
			continue
		}
		value, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", envName, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
