package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	insecureSecret = "change-me"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string            `yaml:"app_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	JWT         JWTConfig         `yaml:"jwt"`
	Journal     JournalConfig     `yaml:"journal"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Context     ContextConfig     `yaml:"context"`
	Logger      LoggerConfig      `yaml:"logger"`
	Migrations  MigrationsConfig  `yaml:"migrations"`
	Admin       AdminConfig       `yaml:"admin"`
}

type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxConn      int           `yaml:"max_conn"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	SSLMode         string        `yaml:"sslmode"`
	SQLitePath      string        `yaml:"sqlite_path"`
}

// RedisConfig: an empty URL disables the lead cache and sessions.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// JournalConfig: an empty path disables the activity journal.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// MaintenanceConfig uses six-field cron specs (with seconds).
type MaintenanceConfig struct {
	RetentionSpec   string        `yaml:"retention_spec"`
	CompactionSpec  string        `yaml:"compaction_spec"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
}

type ContextConfig struct {
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// MigrationsConfig: an empty Path runs the migrations embedded in the binary.
type MigrationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		AppName:     "leadboard",
		Environment: "development",
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Host:            "localhost",
			Port:            "5432",
			Name:            "leadboard",
			User:            "leadboard",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			MaxConnLifetime: time.Hour,
			SSLMode:         "disable",
			SQLitePath:      "./data/leadboard.db",
		},
		Redis: RedisConfig{
			CacheTTL: time.Minute,
		},
		JWT: JWTConfig{
			Secret: insecureSecret,
			Issuer: "leadboard",
			TTL:    12 * time.Hour,
		},
		Journal: JournalConfig{
			Path:      "./data/journal.db",
			Retention: 30 * 24 * time.Hour,
		},
		Maintenance: MaintenanceConfig{
			RetentionSpec:   "0 30 3 * * *",
			CompactionSpec:  "0 */15 * * * *",
			MonitorInterval: 10 * time.Second,
		},
		Context: ContextConfig{
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "json",
		},
		Migrations: MigrationsConfig{
			Enabled: true,
		},
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@leadboard.local",
		},
	}
}

// Load layers defaults, an optional YAML file and the environment (optionally
// .env), in that order. An empty path falls back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.AppName = getString("APP_NAME", cfg.AppName)
	cfg.Environment = getString("APP_ENV", cfg.Environment)

	cfg.HTTP.Host = getString("SERVER_HOST", cfg.HTTP.Host)
	cfg.HTTP.Port = getString("SERVER_PORT", cfg.HTTP.Port)
	cfg.HTTP.ReadTimeout = getDuration("SERVER_READ_TIMEOUT", cfg.HTTP.ReadTimeout)
	cfg.HTTP.WriteTimeout = getDuration("SERVER_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout)
	cfg.HTTP.IdleTimeout = getDuration("SERVER_IDLE_TIMEOUT", cfg.HTTP.IdleTimeout)
	cfg.HTTP.MaxConn = getInt("SERVER_MAX_CONN", cfg.HTTP.MaxConn)

	cfg.Database.Driver = strings.ToLower(getString("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.URL = getString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getString("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getString("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getString("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getString("DB_USER", cfg.Database.User)
	cfg.Database.Password = getString("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.MaxOpenConns = getInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxConnLifetime = getDuration("DB_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.SSLMode = getString("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.SQLitePath = getString("SQLITE_PATH", cfg.Database.SQLitePath)

	cfg.Redis.URL = getString("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CacheTTL = getDuration("REDIS_CACHE_TTL", cfg.Redis.CacheTTL)

	cfg.JWT.Secret = getString("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Issuer = getString("JWT_ISSUER", cfg.JWT.Issuer)
	cfg.JWT.TTL = getDuration("JWT_TTL", cfg.JWT.TTL)

	cfg.Journal.Path = getString("JOURNAL_PATH", cfg.Journal.Path)
	cfg.Journal.Retention = getDuration("JOURNAL_RETENTION", cfg.Journal.Retention)

	cfg.Maintenance.RetentionSpec = getString("MAINTENANCE_RETENTION_SPEC", cfg.Maintenance.RetentionSpec)
	cfg.Maintenance.CompactionSpec = getString("MAINTENANCE_COMPACTION_SPEC", cfg.Maintenance.CompactionSpec)
	cfg.Maintenance.MonitorInterval = getDuration("MONITOR_INTERVAL", cfg.Maintenance.MonitorInterval)

	cfg.Context.RequestTimeout = getDuration("REQUEST_TIMEOUT_SECONDS", cfg.Context.RequestTimeout)
	cfg.Context.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT_SECONDS", cfg.Context.ShutdownTimeout)

	cfg.Logger.Level = getString("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getString("LOG_ENCODING", cfg.Logger.Encoding)

	cfg.Migrations.Enabled = getBool("RUN_MIGRATIONS", cfg.Migrations.Enabled)
	cfg.Migrations.Path = getString("MIGRATIONS_PATH", cfg.Migrations.Path)

	cfg.Admin.Username = getString("ADMIN_USERNAME", cfg.Admin.Username)
	cfg.Admin.Email = getString("ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.Password = getString("ADMIN_PASSWORD", cfg.Admin.Password)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.JWT.Secret == insecureSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PostgresURL returns DATABASE_URL or one assembled from the parts.
func (c DatabaseConfig) PostgresURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
