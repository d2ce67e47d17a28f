package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/didact/internal/registry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App           ApplicationConfig   `yaml:"app"`
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Settings      SettingsConfig      `yaml:"settings"`
	Tutorials     TutorialsConfig     `yaml:"tutorials"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Probe         ProbeConfig         `yaml:"probe"`
	Terminal      TerminalConfig      `yaml:"terminal"`
	Extensions    ExtensionsConfig    `yaml:"extensions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Validate(); err != nil {
		return err
	}
	if err := c.Probe.Validate(); err != nil {
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

// WorkspaceConfig points at the folder scaffolds write into. An empty root
// means no workspace; scaffold capabilities then fail.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// SettingsConfig holds the SQLite settings database and the key the
// tutorial registry is stored under.
type SettingsConfig struct {
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	if c.Key == "" {
		c.Key = registry.DefaultKey
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TutorialsConfig is the local tutorial library. An empty dir disables it.
type TutorialsConfig struct {
	Dir             string `yaml:"dir"`
	DefaultCategory string `yaml:"default_category"`
}

// FetchConfig bounds remote document fetches.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the fetch configuration.
func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// ProbeConfig configures requirement probes.
type ProbeConfig struct {
	Shell   string        `yaml:"shell"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the probe configuration.
func (c *ProbeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// TerminalConfig configures named terminals.
type TerminalConfig struct {
	Shell string `yaml:"shell"`
}

// ExtensionsConfig lists the extension ids extensionRequirementCheck
// reports as installed.
type ExtensionsConfig struct {
	Installed []string `yaml:"installed"`
}

// NotificationsConfig mirrors the didact.disableNotifications setting.
type NotificationsConfig struct {
	Disabled bool `yaml:"disabled"`
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
		Settings: SettingsConfig{
			Path: "./didact.db",
			Key:  registry.DefaultKey,
		},
		Tutorials: TutorialsConfig{
			Dir:             "./tutorials",
			DefaultCategory: "Tutorials",
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
		},
		Probe: ProbeConfig{
			Shell:   "/bin/sh",
			Timeout: 30 * time.Second,
		},
		Terminal: TerminalConfig{
			Shell: "/bin/sh",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
