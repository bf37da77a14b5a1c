// ABOUTME: Configuration loading and parsing for socialcore
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete socialcore configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	SSO      SSOConfig      `yaml:"sso"`
	Founder  FounderConfig  `yaml:"founder"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	Passcode PasscodeConfig `yaml:"passcode"`
	Mail     MailConfig     `yaml:"mail"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"` // sqlite (pure Go) or sqlite3 (cgo)
}

// SSOConfig holds the shared key for upstream single sign-on tokens.
// An empty key disables the token operations.
type SSOConfig struct {
	TokenKey string `yaml:"token_key"`
}

// FounderConfig identifies the graph founder
type FounderConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SessionConfig selects how a caller's session is carried
type SessionConfig struct {
	Mode   string   `yaml:"mode"` // cookie, token, both
	Keys   []string `yaml:"keys"`
	MaxAge int      `yaml:"max_age"`
	Secure bool     `yaml:"secure"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// AdminConfig selects the moderation gate
type AdminConfig struct {
	Mode string `yaml:"mode"` // hash, role, either
}

// PasscodeConfig holds reset passcode storage and timing
type PasscodeConfig struct {
	Backend    string        `yaml:"backend"` // memory, file, redis
	Dir        string        `yaml:"dir"`
	RedisURL   string        `yaml:"redis_url"`
	MaxEntries int           `yaml:"max_entries"`
	SingleUse  bool          `yaml:"single_use"`
	Validity   time.Duration `yaml:"-"`
	Retention  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ValidityRaw  string `yaml:"validity"`
	RetentionRaw string `yaml:"retention"`
}

// MailConfig holds SMTP delivery settings. An empty host logs instead of sending.
type MailConfig struct {
	Host        string `yaml:"host"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	FromAddress string `yaml:"from_address"`
	SkipVerify  bool   `yaml:"skip_verify"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Session.Mode == "" {
		c.Session.Mode = "cookie"
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = 30 * 24 * 60 * 60
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Admin.Mode == "" {
		c.Admin.Mode = "hash"
	}
	if c.Passcode.Backend == "" {
		c.Passcode.Backend = "memory"
	}
	if c.Passcode.Validity == 0 {
		c.Passcode.Validity = 7 * time.Minute
	}
	if c.Passcode.Retention == 0 {
		c.Passcode.Retention = max(24*time.Hour, c.Passcode.Validity)
	}
	if c.Passcode.MaxEntries == 0 {
		c.Passcode.MaxEntries = 10000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}

	switch c.Session.Mode {
	case "cookie":
	case "token", "both":
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret of at least 32 bytes is required for session.mode %q", c.Session.Mode)
		}
	default:
		return fmt.Errorf("session.mode must be cookie, token or both, got %q", c.Session.Mode)
	}

	switch c.Admin.Mode {
	case "hash", "either":
		if c.Founder.Email == "" || c.Founder.Password == "" {
			return fmt.Errorf("founder.email and founder.password are required for admin.mode %q", c.Admin.Mode)
		}
	case "role":
	default:
		return fmt.Errorf("admin.mode must be hash, role or either, got %q", c.Admin.Mode)
	}

	switch c.Passcode.Backend {
	case "memory":
	case "file":
		if c.Passcode.Dir == "" {
			return fmt.Errorf("passcode.dir is required for the file backend")
		}
	case "redis":
		if c.Passcode.RedisURL == "" {
			return fmt.Errorf("passcode.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("passcode.backend must be memory, file or redis, got %q", c.Passcode.Backend)
	}
	if c.Passcode.Retention < c.Passcode.Validity {
		return fmt.Errorf("passcode.retention (%s) must not be shorter than passcode.validity (%s)", c.Passcode.Retention, c.Passcode.Validity)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Passcode.ValidityRaw != "" {
		cfg.Passcode.Validity, err = time.ParseDuration(cfg.Passcode.ValidityRaw)
		if err != nil {
			return fmt.Errorf("parsing validity %q: %w", cfg.Passcode.ValidityRaw, err)
		}
	}

	if cfg.Passcode.RetentionRaw != "" {
		cfg.Passcode.Retention, err = time.ParseDuration(cfg.Passcode.RetentionRaw)
		if err != nil {
			return fmt.Errorf("parsing retention %q: %w", cfg.Passcode.RetentionRaw, err)
		}
	}

	return nil
}
