package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Watch bool   `yaml:"watch"`
}

func (c *testConfig) Validate() error {
	if c.Port < 0 {
		return errors.New("port must not be negative")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_KeepsDefaultsForOmittedKeys(t *testing.T) {
	cfg := testConfig{Name: "default", Port: 8080, Watch: true}
	if err := Load(writeConfig(t, "port: 9090\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" || cfg.Port != 9090 || !cfg.Watch {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("STUDYCARDS_TEST_NAME", "from-env")
	t.Setenv("STUDYCARDS_TEST_EMPTY", "")

	var cfg testConfig
	content := "name: ${STUDYCARDS_TEST_NAME}\nport: ${STUDYCARDS_TEST_EMPTY:-7000}\n"
	if err := Load(writeConfig(t, content), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-env" || cfg.Port != 7000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	var cfg testConfig
	err := Load(writeConfig(t, "nmae: typo\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "nmae") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_RunsValidation(t *testing.T) {
	var cfg testConfig
	err := Load(writeConfig(t, "port: -1\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_EmptyFileIsValid(t *testing.T) {
	cfg := testConfig{Port: 1}
	if err := Load(writeConfig(t, ""), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 1 {
		t.Errorf("port = %d", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg testConfig
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := testConfig{Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err != nil || found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}

	bad := testConfig{Port: -1}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}

	found, err = LoadOptional(writeConfig(t, "port: 9\n"), &cfg)
	if err != nil || !found || cfg.Port != 9 {
		t.Errorf("found = %v, err = %v, cfg = %+v", found, err, cfg)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("STUDYCARDS_TEST_SET", "x")
	tests := map[string]string{
		"$STUDYCARDS_TEST_SET":              "x",
		"${STUDYCARDS_TEST_SET:-y}":         "x",
		"${STUDYCARDS_TEST_UNSET:-y}":       "y",
		"${STUDYCARDS_TEST_UNSET}":          "",
		"a-${STUDYCARDS_TEST_UNSET:-./d}-b": "a-./d-b",
	}
	for in, want := range tests {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
