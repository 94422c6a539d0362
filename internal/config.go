package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Textgen  TextgenConfig     `yaml:"textgen"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
	Rollup   RollupConfig      `yaml:"rollup"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Textgen.Validate(); err != nil {
		return err
	}
	if err := c.Rollup.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the vault blob-store settings. Bucket is the logical
// container name carried on pipeline events.
type VaultConfig struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Watch  bool   `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
	)
}

// SQLiteConfig holds the index database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TextgenConfig holds the text-generation collaborator settings.
type TextgenConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the text-generation configuration.
func (c *TextgenConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
	)
}

// PipelineConfig selects which optional stages run for watcher-driven
// events. HTTP-triggered stages are always available.
type PipelineConfig struct {
	Classify bool `yaml:"classify"`
	Entities bool `yaml:"entities"`
}

// RollupConfig holds the rollup scheduler settings. Hours are UTC.
type RollupConfig struct {
	DailyEnabled  bool `yaml:"daily_enabled"`
	WeeklyEnabled bool `yaml:"weekly_enabled"`
	DailyHour     int  `yaml:"daily_hour"`
	WeeklyHour    int  `yaml:"weekly_hour"`
}

// Validate validates the rollup configuration.
func (c *RollupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DailyHour, validation.Min(0), validation.Max(23)),
		validation.Field(&c.WeeklyHour, validation.Min(0), validation.Max(23)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:   "./vault",
			Bucket: "vault",
			Watch:  true,
		},
		SQLite: SQLiteConfig{
			Path: "./vellum.db",
		},
		Textgen: TextgenConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1",
			Timeout: 2 * time.Minute,
		},
		Pipeline: PipelineConfig{
			Classify: false,
			Entities: false,
		},
		Rollup: RollupConfig{
			DailyEnabled:  false,
			WeeklyEnabled: false,
			DailyHour:     6,
			WeeklyHour:    7,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
