package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for pmdesk.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Organisation OrganisationConfig `yaml:"organisation"`
	Database     DatabaseConfig     `yaml:"database"`
	API          APIConfig          `yaml:"api"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	Security     SecurityConfig     `yaml:"security"`
	Exports      ExportConfig       `yaml:"exports"`
}

// OrganisationConfig identifies the deployment.
type OrganisationConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
	Currency string `yaml:"currency"`
	// WeekStart is the first day of the reporting week ("monday" or "sunday").
	WeekStart string `yaml:"week_start"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Cookies  CookieConfig     `yaml:"cookies"`
	// UIDir serves the admin UI from disk instead of the embedded build when set.
	UIDir string `yaml:"ui_dir"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// CookieConfig controls the session cookies set on login.
type CookieConfig struct {
	// Secure marks cookies Secure. Must be true behind HTTPS.
	Secure bool   `yaml:"secure"`
	Domain string `yaml:"domain"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// Domain events are published to the broker when Enabled is true.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains authentication and request-protection settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Password  PasswordConfig  `yaml:"password"`
	Lockout   LockoutConfig   `yaml:"lockout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CSRF      CSRFConfig      `yaml:"csrf"`
}

// JWTConfig contains JWT token settings. TTLs are in minutes.
type JWTConfig struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	AccessTokenTTL  int    `yaml:"access_token_ttl"`
	RefreshTokenTTL int    `yaml:"refresh_token_ttl"`
}

// PasswordConfig controls hashing and password policy.
type PasswordConfig struct {
	// Algorithm is the hash used for new passwords: "argon2id" or "bcrypt".
	// Hashes in any other format are upgraded on the next successful login.
	Algorithm  string `yaml:"algorithm"`
	BcryptCost int    `yaml:"bcrypt_cost"`
	MinLength  int    `yaml:"min_length"`
}

// LockoutConfig controls account lockout after repeated login failures.
type LockoutConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	DurationMinutes int `yaml:"duration_minutes"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
	LoginPerMinute    int  `yaml:"login_per_minute"`
	LoginBurst        int  `yaml:"login_burst"`
}

// CSRFConfig controls double-submit CSRF protection for cookie sessions.
type CSRFConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ExportConfig controls spreadsheet exports.
type ExportConfig struct {
	// MaxRows caps the number of data rows written to a single sheet.
	MaxRows int `yaml:"max_rows"`
}

// envOverrides lists the environment variables that may override file values.
// Unset variables leave the pointer nil and the file value untouched.
type envOverrides struct {
	DatabasePath   *string `env:"PMDESK_DATABASE_PATH"`
	APIHost        *string `env:"PMDESK_API_HOST"`
	APIPort        *int    `env:"PMDESK_API_PORT"`
	CookieSecure   *bool   `env:"PMDESK_COOKIE_SECURE"`
	JWTSecret      *string `env:"PMDESK_JWT_SECRET"`
	MQTTEnabled    *bool   `env:"PMDESK_MQTT_ENABLED"`
	MQTTHost       *string `env:"PMDESK_MQTT_HOST"`
	MQTTUsername   *string `env:"PMDESK_MQTT_USERNAME"`
	MQTTPassword   *string `env:"PMDESK_MQTT_PASSWORD"`
	InfluxEnabled  *bool   `env:"PMDESK_INFLUXDB_ENABLED"`
	InfluxURL      *string `env:"PMDESK_INFLUXDB_URL"`
	InfluxToken    *string `env:"PMDESK_INFLUXDB_TOKEN"`
	LogLevel       *string `env:"PMDESK_LOG_LEVEL"`
	LogFormat      *string `env:"PMDESK_LOG_FORMAT"`
	PasswordAlgo   *string `env:"PMDESK_PASSWORD_ALGORITHM"`
	RateLimitOnOff *bool   `env:"PMDESK_RATE_LIMIT_ENABLED"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern PMDESK_SECTION_KEY,
// for example PMDESK_DATABASE_PATH or PMDESK_JWT_SECRET.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Organisation: OrganisationConfig{
			Name:      "pmdesk",
			Timezone:  "UTC",
			Currency:  "USD",
			WeekStart: "monday",
		},
		Database: DatabaseConfig{
			Path:        "./data/pmdesk.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pmdesk-core",
			},
			QoS:         1,
			TopicPrefix: "pmdesk",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "pmdesk",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer:          "pmdesk",
				AccessTokenTTL:  15,
				RefreshTokenTTL: 10080,
			},
			Password: PasswordConfig{
				Algorithm:  "argon2id",
				BcryptCost: 12,
				MinLength:  8,
			},
			Lockout: LockoutConfig{
				MaxAttempts:     5,
				DurationMinutes: 15,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
				Burst:             60,
				LoginPerMinute:    10,
				LoginBurst:        5,
			},
			CSRF: CSRFConfig{
				Enabled: true,
			},
		},
		Exports: ExportConfig{
			MaxRows: 50000,
		},
	}
}

// applyEnvOverrides applies PMDESK_* environment variables on top of cfg.
func applyEnvOverrides(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}

	setString(&cfg.Database.Path, o.DatabasePath)
	setString(&cfg.API.Host, o.APIHost)
	if o.APIPort != nil {
		cfg.API.Port = *o.APIPort
	}
	if o.CookieSecure != nil {
		cfg.API.Cookies.Secure = *o.CookieSecure
	}

	// JWT secret (IMPORTANT: always set via environment in production)
	setString(&cfg.Security.JWT.Secret, o.JWTSecret)
	setString(&cfg.Security.Password.Algorithm, o.PasswordAlgo)
	if o.RateLimitOnOff != nil {
		cfg.Security.RateLimit.Enabled = *o.RateLimitOnOff
	}

	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	setString(&cfg.MQTT.Broker.Host, o.MQTTHost)
	setString(&cfg.MQTT.Auth.Username, o.MQTTUsername)
	setString(&cfg.MQTT.Auth.Password, o.MQTTPassword)

	if o.InfluxEnabled != nil {
		cfg.InfluxDB.Enabled = *o.InfluxEnabled
	}
	setString(&cfg.InfluxDB.URL, o.InfluxURL)
	setString(&cfg.InfluxDB.Token, o.InfluxToken)

	setString(&cfg.Logging.Level, o.LogLevel)
	setString(&cfg.Logging.Format, o.LogFormat)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when InfluxDB is enabled")
	}

	// Empty or weak secrets allow anyone to forge access tokens and CSRF tokens.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set PMDESK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.AccessTokenTTL <= 0 || c.Security.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, "security.jwt token TTLs must be positive")
	}
	if c.Security.JWT.RefreshTokenTTL < c.Security.JWT.AccessTokenTTL {
		errs = append(errs, "security.jwt.refresh_token_ttl must not be shorter than access_token_ttl")
	}

	switch strings.ToLower(c.Security.Password.Algorithm) {
	case "argon2id", "bcrypt":
	default:
		errs = append(errs, "security.password.algorithm must be argon2id or bcrypt")
	}
	if c.Security.Password.MinLength < 8 { //nolint:mnd // NIST SP 800-63B minimum
		errs = append(errs, "security.password.min_length must be at least 8")
	}

	if c.Security.Lockout.MaxAttempts < 0 || c.Security.Lockout.DurationMinutes < 0 {
		errs = append(errs, "security.lockout values must not be negative")
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RequestsPerMinute <= 0 || c.Security.RateLimit.LoginPerMinute <= 0 {
			errs = append(errs, "security.rate_limit per-minute values must be positive when enabled")
		}
	}

	if _, err := time.LoadLocation(c.Organisation.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("organisation.timezone %q is not a valid IANA zone", c.Organisation.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// AccessTokenTTL returns the access token lifetime.
func (s SecurityConfig) AccessTokenTTL() time.Duration {
	return time.Duration(s.JWT.AccessTokenTTL) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (s SecurityConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(s.JWT.RefreshTokenTTL) * time.Minute
}

// LockoutDuration returns how long an account stays locked.
func (s SecurityConfig) LockoutDuration() time.Duration {
	return time.Duration(s.Lockout.DurationMinutes) * time.Minute
}
