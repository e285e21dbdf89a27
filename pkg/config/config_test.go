package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want missing file tolerated", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}

	if cfg.Executor.Timeout != 60*time.Second {
		t.Errorf("Executor.Timeout = %v, want 60s", cfg.Executor.Timeout)
	}

	if cfg.PluginsDir != "plugins" {
		t.Errorf("PluginsDir = %q, want plugins", cfg.PluginsDir)
	}

	if cfg.Observability.MetricsPort != 9090 {
		t.Errorf("Observability.MetricsPort = %d, want 9090", cfg.Observability.MetricsPort)
	}
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("TEST_GOOGLE_SECRET", "s3cret")

	path := writeConfig(t, `
providers:
  google:
    client_id: my-client
    client_secret: ${TEST_GOOGLE_SECRET}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Providers["google"].ClientSecret; got != "s3cret" {
		t.Errorf("client_secret = %q, want substituted value", got)
	}
}

func TestLoadMissingEnvVar(t *testing.T) {
	path := writeConfig(t, "server:\n  base_url: ${DEFINITELY_NOT_SET_12345}\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() = nil, want error for missing env var")
	}
}

func TestLoadSkipsCommentedEnvVars(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n# base_url: ${DEFINITELY_NOT_SET_12345}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want commented env var ignored", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestValidateRejectsExcessiveTimeout(t *testing.T) {
	cfg := &Config{Executor: ExecutorConfig{Timeout: 10 * time.Minute}}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for timeout past the cap")
	}
}

func TestAPIKeyResolution(t *testing.T) {
	cfg := &Config{APIKeys: map[string]string{"github": "from-config"}}

	if got := cfg.APIKey("github"); got != "from-config" {
		t.Errorf("APIKey() = %q, want config value", got)
	}

	t.Setenv("GITHUB_API_KEY", "from-key-env")

	if got := cfg.APIKey("github"); got != "from-key-env" {
		t.Errorf("APIKey() = %q, want _API_KEY override", got)
	}

	t.Setenv("GITHUB_API_TOKEN", "from-token-env")

	if got := cfg.APIKey("github"); got != "from-token-env" {
		t.Errorf("APIKey() = %q, want _API_TOKEN to win", got)
	}
}

func TestProviderCredentials(t *testing.T) {
	cfg := &Config{Providers: map[string]Provider{
		"google": {ClientID: "cfg-id", ClientSecret: "cfg-secret"},
	}}

	cred, ok := cfg.ProviderCredentials("google")
	if !ok {
		t.Fatal("ProviderCredentials() ok = false, want true")
	}

	if cred.ClientID != "cfg-id" || cred.ClientSecret != "cfg-secret" {
		t.Errorf("credentials = %+v, want config values", cred)
	}

	t.Setenv("GOOGLE_CLIENT_ID", "env-id")

	cred, _ = cfg.ProviderCredentials("google")
	if cred.ClientID != "env-id" {
		t.Errorf("ClientID = %q, want env override", cred.ClientID)
	}

	if _, ok := cfg.ProviderCredentials("todoist"); ok {
		t.Error("ProviderCredentials(todoist) ok = true, want false when unconfigured")
	}
}
