package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Duration wraps time.Duration so YAML configs can use strings like
// "250ms" or "2s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Assets AssetsConfig      `yaml:"assets"`
	Auth   AuthConfig        `yaml:"auth"`
	Board  BoardConfig       `yaml:"board"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Assets.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Board.Validate()
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

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AssetsConfig holds the path to the uploaded-asset directory.
type AssetsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the assets configuration.
func (c *AssetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// BoardConfig holds realtime and thumbnail tuning.
type BoardConfig struct {
	PresenceInterval  Duration `yaml:"presence_interval"`
	ThumbnailDebounce Duration `yaml:"thumbnail_debounce"`
	ThumbnailWidth    int      `yaml:"thumbnail_width"`
	ThumbnailHeight   int      `yaml:"thumbnail_height"`
}

// Validate validates the board configuration.
func (c *BoardConfig) Validate() error {
	if c.PresenceInterval.Std() <= 0 {
		return fmt.Errorf("board: presence_interval must be positive")
	}
	if c.ThumbnailDebounce.Std() <= 0 {
		return fmt.Errorf("board: thumbnail_debounce must be positive")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ThumbnailWidth, validation.Required, validation.Min(16), validation.Max(4096)),
		validation.Field(&c.ThumbnailHeight, validation.Required, validation.Min(16), validation.Max(4096)),
	)
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
		SQLite: SQLiteConfig{
			Path: "./dagaz.db",
		},
		Assets: AssetsConfig{
			Path: "./assets",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Board: BoardConfig{
			PresenceInterval:  Duration(100 * time.Millisecond),
			ThumbnailDebounce: Duration(time.Second),
			ThumbnailWidth:    320,
			ThumbnailHeight:   200,
		},
	}
}
