package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/didact/internal/registry"
	pkgconfig "github.com/starford/didact/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestFullConfig_Validation(t *testing.T) {
	cases := map[string]func(*Config){
		"auth":          func(c *Config) { c.Auth.Mode = "token" },
		"port":          func(c *Config) { c.App.HTTP.Port = 70000 },
		"settings path": func(c *Config) { c.Settings.Path = "" },
		"fetch timeout": func(c *Config) { c.Fetch.Timeout = 0 },
		"probe timeout": func(c *Config) { c.Probe.Timeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("DIDACT_TEST_WS", "/tmp/ws")
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	content := `app:
  log_level: debug
  http:
    port: 9090
workspace:
  root: ${DIDACT_TEST_WS}
settings:
  path: ./test.db
tutorials:
  dir: ./lib
  default_category: Samples
fetch:
  timeout: 5s
probe:
  timeout: 2s
extensions:
  installed: [redhat.vscode-yaml]
notifications:
  disabled: true
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace.Root != "/tmp/ws" {
		t.Errorf("workspace = %q", cfg.Workspace.Root)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Fetch.Timeout != 5*time.Second || cfg.Probe.Timeout != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Probe.Shell != "/bin/sh" {
		t.Errorf("default probe shell lost: %q", cfg.Probe.Shell)
	}
	if cfg.Settings.Key != registry.DefaultKey {
		t.Errorf("settings key = %q", cfg.Settings.Key)
	}
	if !cfg.Notifications.Disabled || len(cfg.Extensions.Installed) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}
