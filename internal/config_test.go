package internal

import (
	"strings"
	"testing"

	pkgconfig "github.com/starford/studycards/pkg/config"
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

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
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
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestStoreConfig_DefaultsToFileDriver(t *testing.T) {
	cfg := StoreConfig{Path: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to file: %v", err)
	}
	if cfg.Driver != "file" {
		t.Errorf("driver = %q, want file", cfg.Driver)
	}
}

func TestStoreConfig_Invalid(t *testing.T) {
	tests := map[string]StoreConfig{
		"unknown driver":  {Driver: "postgres", Path: "x"},
		"missing path":    {Driver: "file"},
		"watch on sqlite": {Driver: "sqlite", Path: "cards.db", Watch: true},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStoreConfig_SQLiteWithoutWatch(t *testing.T) {
	cfg := StoreConfig{Driver: "sqlite", Path: "cards.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite without watch should pass: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestShippedConfigFileLoads(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "HTTP_PORT", "STORE_DRIVER", "STORE_WATCH", "AUTH_MODE", "AUTH_TOKEN"} {
		t.Setenv(key, "")
	}
	t.Setenv("STORE_PATH", "/tmp/studycards-test")
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTP.Port != 8080 || cfg.Store.Driver != "file" || cfg.Store.Path != "/tmp/studycards-test" || !cfg.Store.Watch {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("auth should be disabled by default")
	}
}
