package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validJWTSecret meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
organisation:
  name: "Acme Delivery"
  timezone: "Europe/London"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
  cookies:
    secure: true
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
  password:
    algorithm: bcrypt
  lockout:
    max_attempts: 3
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Organisation.Name != "Acme Delivery" {
		t.Errorf("Organisation.Name = %q, want %q", cfg.Organisation.Name, "Acme Delivery")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	if !cfg.API.Cookies.Secure {
		t.Error("API.Cookies.Secure = false, want true")
	}
	if cfg.Security.Password.Algorithm != "bcrypt" {
		t.Errorf("Security.Password.Algorithm = %q, want bcrypt", cfg.Security.Password.Algorithm)
	}
	if cfg.Security.Lockout.MaxAttempts != 3 {
		t.Errorf("Security.Lockout.MaxAttempts = %d, want 3", cfg.Security.Lockout.MaxAttempts)
	}
	// Unset values keep their defaults.
	if cfg.Security.Lockout.DurationMinutes != 15 {
		t.Errorf("Security.Lockout.DurationMinutes = %d, want 15", cfg.Security.Lockout.DurationMinutes)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for missing jwt secret, got nil")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("Load() error = %v, want mention of security.jwt.secret", err)
	}
}

func TestLoad_EnvSecret(t *testing.T) {
	t.Setenv("PMDESK_JWT_SECRET", validJWTSecret)

	cfg, err := Load(writeConfig(t, "database:\n  path: /tmp/env.db\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWT.Secret != validJWTSecret {
		t.Errorf("Security.JWT.Secret = %q, want env value", cfg.Security.JWT.Secret)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid QoS ignored when MQTT disabled", mutate: func(c *Config) { c.MQTT.QoS = 3 }},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "tls without cert", mutate: func(c *Config) { c.API.TLS.Enabled = true }, wantErr: true},
		{name: "missing JWT secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: true},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.Security.JWT.RefreshTokenTTL = 5 }, wantErr: true},
		{name: "unknown password algorithm", mutate: func(c *Config) { c.Security.Password.Algorithm = "md5" }, wantErr: true},
		{name: "min length below 8", mutate: func(c *Config) { c.Security.Password.MinLength = 6 }, wantErr: true},
		{name: "influx enabled without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Organisation.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "rate limit disabled with zero values", mutate: func(c *Config) {
			c.Security.RateLimit = RateLimitConfig{Enabled: false}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestSecurityConfig_Durations(t *testing.T) {
	s := defaultConfig().Security
	if got := s.AccessTokenTTL().Minutes(); got != 15 {
		t.Errorf("AccessTokenTTL() = %v minutes, want 15", got)
	}
	if got := s.RefreshTokenTTL().Hours(); got != 168 {
		t.Errorf("RefreshTokenTTL() = %v hours, want 168", got)
	}
	if got := s.LockoutDuration().Minutes(); got != 15 {
		t.Errorf("LockoutDuration() = %v minutes, want 15", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PMDESK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PMDESK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PMDESK_MQTT_USERNAME", "testuser")
	t.Setenv("PMDESK_MQTT_PASSWORD", "testpass")
	t.Setenv("PMDESK_API_HOST", "192.168.1.1")
	t.Setenv("PMDESK_API_PORT", "9090")
	t.Setenv("PMDESK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PMDESK_JWT_SECRET", "jwt-secret")
	t.Setenv("PMDESK_COOKIE_SECURE", "true")
	t.Setenv("PMDESK_RATE_LIMIT_ENABLED", "false")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if !cfg.API.Cookies.Secure {
		t.Error("API.Cookies.Secure = false, want true")
	}
	if cfg.Security.RateLimit.Enabled {
		t.Error("Security.RateLimit.Enabled = true, want false")
	}
}

func TestApplyEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("PMDESK_API_PORT", "not-a-number")
	if err := applyEnvOverrides(defaultConfig()); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric port, got nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Organisation.Name == "" {
		t.Error("defaultConfig should have non-empty Organisation.Name")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Security.Password.Algorithm != "argon2id" {
		t.Errorf("defaultConfig Password.Algorithm = %q, want argon2id", cfg.Security.Password.Algorithm)
	}
	if !cfg.Security.CSRF.Enabled {
		t.Error("defaultConfig should enable CSRF protection")
	}
}
