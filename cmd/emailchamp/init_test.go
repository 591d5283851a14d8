package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/emailchamp/internal/config"
)

func TestGenerateRandomString(t *testing.T) {
	lengths := []int{8, 16, 32, 64}

	for _, length := range lengths {
		result := generateRandomString(length)
		if len(result) != length {
			t.Errorf("generateRandomString(%d) returned string of length %d", length, len(result))
		}
	}

	s1 := generateRandomString(32)
	s2 := generateRandomString(32)
	if s1 == s2 {
		t.Error("generateRandomString should generate unique strings")
	}
}

func TestGenerateConfig(t *testing.T) {
	initDataDir = "/var/lib/emailchamp"
	initListenAddr = ":8081"
	initAPIKey = "testapikey"
	initLLMKey = "sk-or-test"
	initPublicURL = "https://mail.example.com"
	initQuota = false

	cfg := generateConfig()

	checks := []string{
		`listen_addr: ":8081"`,
		`api_key: "testapikey"`,
		`api_key: "sk-or-test"`,
		`public_url: "https://mail.example.com"`,
		`path: "/var/lib/emailchamp/emailchamp.db"`,
	}
	for _, check := range checks {
		if !strings.Contains(cfg, check) {
			t.Errorf("Generated config missing: %s", check)
		}
	}
}

func TestGenerateConfigLoads(t *testing.T) {
	t.Setenv(config.EnvLLMAPIKey, "")

	dir := t.TempDir()
	initDataDir = dir
	initListenAddr = ":8080"
	initAPIKey = "key"
	initLLMKey = ""
	initPublicURL = ""
	initQuota = true

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(generateConfig()), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	if cfg.HasLLM() {
		t.Error("empty llm key should leave generation disabled")
	}
	if !cfg.Quota.Enabled || cfg.Quota.Global == nil || cfg.Quota.Global.PerHour != 60 {
		t.Errorf("quota section not applied: %+v", cfg.Quota)
	}
	if cfg.Quota.PerClient == nil || cfg.Quota.PerClient.PerDay != 100 {
		t.Errorf("per-client quota not applied: %+v", cfg.Quota.PerClient)
	}
	if cfg.LLM.Timeout != 2*time.Minute {
		t.Errorf("llm.timeout = %v, want 2m", cfg.LLM.Timeout)
	}
	if cfg.Editor.AutosaveDelay != 2*time.Second {
		t.Errorf("editor.autosave_delay = %v, want 2s", cfg.Editor.AutosaveDelay)
	}
	if cfg.Storage.Path != filepath.Join(dir, "emailchamp.db") {
		t.Errorf("storage.path = %s", cfg.Storage.Path)
	}
}
