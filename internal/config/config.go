package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN renders the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type CacheConfig struct {
	IngestionPointsTTL time.Duration `mapstructure:"ingestion_points_ttl"`
	ImportJobsTTL      time.Duration `mapstructure:"import_jobs_ttl"`
	PageSize           int           `mapstructure:"page_size"`
}

type ArchiveConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	FixtureDir string        `mapstructure:"fixture_dir"` // when set, upstream reads come from JSONL fixtures
}

type StorageConfig struct {
	ClientTTL     time.Duration `mapstructure:"client_ttl"`
	MaxClients    int           `mapstructure:"max_clients"`
	DefaultRegion string        `mapstructure:"default_region"`
	ListLimit     int           `mapstructure:"list_limit"`
}

type SecretsConfig struct {
	AgeIdentity string `mapstructure:"age_identity"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("archive.base_url", "ARCHIVE_BASE_URL")
	v.BindEnv("secrets.age_identity", "AGE_IDENTITY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ingestdesk.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ingestdesk")
	v.SetDefault("database.name", "ingestdesk")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("cache.ingestion_points_ttl", 30*time.Minute)
	v.SetDefault("cache.import_jobs_ttl", 15*time.Minute)
	v.SetDefault("cache.page_size", 100)
	v.SetDefault("archive.base_url", "http://localhost:9090/api")
	v.SetDefault("archive.timeout", 30*time.Second)
	v.SetDefault("archive.retry_count", 2)
	v.SetDefault("storage.client_ttl", 10*time.Minute)
	v.SetDefault("storage.max_clients", 64)
	v.SetDefault("storage.default_region", "us-east-1")
	v.SetDefault("storage.list_limit", 200)
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database: path is required for sqlite")
	}
	if c.Cache.IngestionPointsTTL <= 0 || c.Cache.ImportJobsTTL <= 0 {
		return fmt.Errorf("cache: ttl values must be positive")
	}
	if c.Cache.PageSize <= 0 {
		return fmt.Errorf("cache: page_size must be positive")
	}
	if c.Archive.BaseURL == "" && c.Archive.FixtureDir == "" {
		return fmt.Errorf("archive: base_url or fixture_dir is required")
	}
	if c.Storage.MaxClients <= 0 {
		return fmt.Errorf("storage: max_clients must be positive")
	}
	return nil
}
