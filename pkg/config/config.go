package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/observability"
)

// Config holds all application configuration. It is loaded once at startup
// and shared read-only by pointer.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Permissions   Permissions         `yaml:"permissions"`
	Messages      Messages            `yaml:"messages"`
	Observability ObservabilityConfig `yaml:"observability"`
	Jobs          JobsConfig          `yaml:"jobs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// DatabaseConfig holds relational database settings
type DatabaseConfig struct {
	Driver      string        `yaml:"driver"`
	URL         string        `yaml:"url"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
	AutoMigrate bool          `yaml:"auto_migrate"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis.
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

// AuthConfig holds session and sign-in settings
type AuthConfig struct {
	CookieName         string          `yaml:"cookie_name"`
	CookieSecure       bool            `yaml:"cookie_secure"`
	BcryptCost         int             `yaml:"bcrypt_cost"`
	SessionIdleTimeout time.Duration   `yaml:"session_idle_timeout"`
	SignInLimit        RateLimitConfig `yaml:"sign_in_limit"`
	Bootstrap          BootstrapConfig `yaml:"bootstrap"`
}

// RateLimitConfig bounds sign-in attempts per client and principal.
// Backend is "memory" or "redis".
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Backend           string        `yaml:"backend"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
	Burst             int           `yaml:"burst"`
}

// BootstrapConfig describes the administrator created on an empty database.
type BootstrapConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Group      string `yaml:"group"`
	User       string `yaml:"user"`
	Credential string `yaml:"credential"`
}

// Permissions names the capability required by each guarded action.
type Permissions struct {
	UserManage     auth.Capability `yaml:"user_manage"`
	UserAdd        auth.Capability `yaml:"user_add"`
	UserDelete     auth.Capability `yaml:"user_delete"`
	UserPassword   auth.Capability `yaml:"user_password"`
	UserGroup      auth.Capability `yaml:"user_group"`
	UserAllowMulti auth.Capability `yaml:"user_allow_multi"`
	UserDisable    auth.Capability `yaml:"user_disable"`

	GroupManage     auth.Capability `yaml:"group_manage"`
	GroupAdd        auth.Capability `yaml:"group_add"`
	GroupDelete     auth.Capability `yaml:"group_delete"`
	GroupNote       auth.Capability `yaml:"group_note"`
	GroupPermission auth.Capability `yaml:"group_permission"`
	GroupDisable    auth.Capability `yaml:"group_disable"`

	ItemManage  auth.Capability `yaml:"item_manage"`
	ItemAdd     auth.Capability `yaml:"item_add"`
	ItemEdit    auth.Capability `yaml:"item_edit"`
	ItemDisable auth.Capability `yaml:"item_disable"`
	ItemDelete  auth.Capability `yaml:"item_delete"`

	AuditRead auth.Capability `yaml:"audit_read"`
}

// Messages is the human readable text sent with each error tag.
type Messages struct {
	NotFound        string `yaml:"not_found"`
	Conflict        string `yaml:"conflict"`
	Forbidden       string `yaml:"forbidden"`
	NoSession       string `yaml:"no_session"`
	BadFormat       string `yaml:"bad_format"`
	TooManyRequests string `yaml:"too_many_requests"`
	Internal        string `yaml:"internal"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level.
func (o ObservabilityConfig) Level() observability.LogLevel {
	return parseLogLevel(o.LogLevel)
}

// JobsConfig holds cron schedules. An empty schedule disables the job.
type JobsConfig struct {
	StatsSchedule      string `yaml:"stats_schedule"`
	TokenSweepSchedule string `yaml:"token_sweep_schedule"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			URL:         "postgres://localhost/labstock?sslmode=disable",
			MaxConns:    20,
			MinConns:    5,
			Timeout:     5 * time.Second,
			MaxLifetime: 30 * time.Minute,
			MaxIdleTime: 5 * time.Minute,
			AutoMigrate: true,
		},
		Auth: AuthConfig{
			CookieName: "access_token",
			BcryptCost: 10,
			SignInLimit: RateLimitConfig{
				Enabled:           true,
				Backend:           "memory",
				RequestsPerWindow: 10,
				Window:            time.Minute,
				Burst:             5,
			},
			Bootstrap: BootstrapConfig{
				Group: "admin",
				User:  "admin",
			},
		},
		Permissions: DefaultPermissions(),
		Messages: Messages{
			NotFound:        "the requested entity does not exist",
			Conflict:        "an entity with this name already exists",
			Forbidden:       "the operation is not permitted",
			NoSession:       "a valid access token is required",
			BadFormat:       "the request is malformed",
			TooManyRequests: "too many attempts, try again later",
			Internal:        "internal server error",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "labstock",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Jobs: JobsConfig{
			StatsSchedule:      "@every 1m",
			TokenSweepSchedule: "@every 1h",
		},
	}
}

// DefaultPermissions returns the stock capability names.
func DefaultPermissions() Permissions {
	return Permissions{
		UserManage:     "user.manage",
		UserAdd:        "user.add",
		UserDelete:     "user.delete",
		UserPassword:   "user.password",
		UserGroup:      "user.group",
		UserAllowMulti: "user.allowMulti",
		UserDisable:    "user.disable",

		GroupManage:     "group.manage",
		GroupAdd:        "group.add",
		GroupDelete:     "group.delete",
		GroupNote:       "group.note",
		GroupPermission: "group.permission",
		GroupDisable:    "group.disable",

		ItemManage:  "item.manage",
		ItemAdd:     "item.add",
		ItemEdit:    "item.edit",
		ItemDisable: "item.disable",
		ItemDelete:  "item.delete",

		AuditRead: "audit.read",
	}
}

// LoadConfig loads configuration in layers: built-in defaults, the YAML file
// named by LABSTOCK_CONFIG, a .env file in the working directory, and finally
// LABSTOCK_* environment variables.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("LABSTOCK_CONFIG"))
}

// Load is LoadConfig with an explicit YAML path. An empty path skips the file
// layer.
func Load(path string) (*Config, error) {
	// A missing .env file is fine. Existing variables are never overridden.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("LABSTOCK_HOST", s.Host)
	s.Port = getEnv("LABSTOCK_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("LABSTOCK_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("LABSTOCK_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("LABSTOCK_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("LABSTOCK_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RequestTimeout = getEnvDuration("LABSTOCK_REQUEST_TIMEOUT", s.RequestTimeout)
	s.MaxBodyBytes = getEnvInt64("LABSTOCK_MAX_BODY_BYTES", s.MaxBodyBytes)
	if origins := getEnv("LABSTOCK_CORS_ORIGINS", ""); origins != "" {
		s.CORSOrigins = splitList(origins)
	}

	d := &c.Database
	d.Driver = getEnv("LABSTOCK_DB_DRIVER", d.Driver)
	d.URL = getEnv("LABSTOCK_DB_URL", d.URL)
	d.MaxConns = getEnvInt("LABSTOCK_DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvInt("LABSTOCK_DB_MIN_CONNS", d.MinConns)
	d.Timeout = getEnvDuration("LABSTOCK_DB_TIMEOUT", d.Timeout)
	d.MaxLifetime = getEnvDuration("LABSTOCK_DB_MAX_LIFETIME", d.MaxLifetime)
	d.MaxIdleTime = getEnvDuration("LABSTOCK_DB_MAX_IDLE_TIME", d.MaxIdleTime)
	d.AutoMigrate = getEnvBool("LABSTOCK_DB_AUTO_MIGRATE", d.AutoMigrate)

	r := &c.Redis
	r.URL = getEnv("LABSTOCK_REDIS_URL", r.URL)
	r.Password = getEnv("LABSTOCK_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("LABSTOCK_REDIS_DB", r.DB)
	r.MaxRetries = getEnvInt("LABSTOCK_REDIS_MAX_RETRIES", r.MaxRetries)
	r.PoolSize = getEnvInt("LABSTOCK_REDIS_POOL_SIZE", r.PoolSize)

	a := &c.Auth
	a.CookieName = getEnv("LABSTOCK_COOKIE_NAME", a.CookieName)
	a.CookieSecure = getEnvBool("LABSTOCK_COOKIE_SECURE", a.CookieSecure)
	a.BcryptCost = getEnvInt("LABSTOCK_BCRYPT_COST", a.BcryptCost)
	a.SessionIdleTimeout = getEnvDuration("LABSTOCK_SESSION_IDLE_TIMEOUT", a.SessionIdleTimeout)
	a.SignInLimit.Enabled = getEnvBool("LABSTOCK_SIGNIN_LIMIT_ENABLED", a.SignInLimit.Enabled)
	a.SignInLimit.Backend = getEnv("LABSTOCK_SIGNIN_LIMIT_BACKEND", a.SignInLimit.Backend)
	a.SignInLimit.RequestsPerWindow = getEnvInt("LABSTOCK_SIGNIN_LIMIT_REQUESTS", a.SignInLimit.RequestsPerWindow)
	a.SignInLimit.Window = getEnvDuration("LABSTOCK_SIGNIN_LIMIT_WINDOW", a.SignInLimit.Window)
	a.SignInLimit.Burst = getEnvInt("LABSTOCK_SIGNIN_LIMIT_BURST", a.SignInLimit.Burst)
	a.Bootstrap.Enabled = getEnvBool("LABSTOCK_BOOTSTRAP_ENABLED", a.Bootstrap.Enabled)
	a.Bootstrap.Group = getEnv("LABSTOCK_BOOTSTRAP_GROUP", a.Bootstrap.Group)
	a.Bootstrap.User = getEnv("LABSTOCK_BOOTSTRAP_USER", a.Bootstrap.User)
	a.Bootstrap.Credential = getEnv("LABSTOCK_BOOTSTRAP_CREDENTIAL", a.Bootstrap.Credential)

	o := &c.Observability
	o.LogLevel = getEnv("LABSTOCK_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("LABSTOCK_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("LABSTOCK_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("LABSTOCK_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("LABSTOCK_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("LABSTOCK_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("LABSTOCK_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("LABSTOCK_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	j := &c.Jobs
	j.StatsSchedule = getEnv("LABSTOCK_JOBS_STATS_SCHEDULE", j.StatsSchedule)
	j.TokenSweepSchedule = getEnv("LABSTOCK_JOBS_TOKEN_SWEEP_SCHEDULE", j.TokenSweepSchedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Auth.CookieName == "" {
		return fmt.Errorf("cookie name is required")
	}
	if l := c.Auth.SignInLimit; l.Enabled {
		if l.RequestsPerWindow <= 0 || l.Window <= 0 {
			return fmt.Errorf("sign-in limit needs a positive request count and window")
		}
		switch l.Backend {
		case "memory":
		case "redis":
			if c.Redis.URL == "" {
				return fmt.Errorf("redis URL is required for the redis sign-in limit backend")
			}
		default:
			return fmt.Errorf("invalid sign-in limit backend: %s (must be memory or redis)", l.Backend)
		}
	}
	if b := c.Auth.Bootstrap; b.Enabled {
		if err := auth.ValidateName(b.Group); err != nil {
			return fmt.Errorf("bootstrap group: %w", err)
		}
		if err := auth.ValidateName(b.User); err != nil {
			return fmt.Errorf("bootstrap user: %w", err)
		}
		if err := auth.ValidateCredential(b.Credential); err != nil {
			return fmt.Errorf("bootstrap credential: %w", err)
		}
	}

	if err := c.Permissions.validate(); err != nil {
		return err
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1, got %g", r)
		}
	}

	return nil
}

// Guarded actions must never become public by an empty capability name.
func (p Permissions) validate() error {
	for name, c := range map[string]auth.Capability{
		"user_manage": p.UserManage, "user_add": p.UserAdd, "user_delete": p.UserDelete,
		"user_password": p.UserPassword, "user_group": p.UserGroup,
		"user_allow_multi": p.UserAllowMulti, "user_disable": p.UserDisable,
		"group_manage": p.GroupManage, "group_add": p.GroupAdd, "group_delete": p.GroupDelete,
		"group_note": p.GroupNote, "group_permission": p.GroupPermission, "group_disable": p.GroupDisable,
		"item_manage": p.ItemManage, "item_add": p.ItemAdd, "item_edit": p.ItemEdit,
		"item_disable": p.ItemDisable, "item_delete": p.ItemDelete,
		"audit_read": p.AuditRead,
	} {
		if strings.TrimSpace(string(c)) == "" {
			return fmt.Errorf("permission %s must not be empty", name)
		}
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
