package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	tmp := t.TempDir()

	// 1. Write default config
	cfgPath := filepath.Join(tmp, "offtube", "config.toml")
	if err := WriteDefault(cfgPath); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	// 2. Set required env vars (t.Setenv auto-restores on cleanup)
	t.Setenv("OFFTUBE_API_KEY", "test-api-key")

	// 3. Load the written config
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// 4. Verify env substitution worked
	if cfg.Server.APIKey != "test-api-key" {
		t.Errorf("expected api key substituted, got %q", cfg.Server.APIKey)
	}

	// 5. Verify defaults survived the round trip
	if cfg.Server.URL != "http://127.0.0.1:8000" {
		t.Errorf("expected default url, got %s", cfg.Server.URL)
	}

	// 6. The written sample must pass validation except the snapshot
	// warning (the referenced playlist file does not exist here).
	for _, msg := range cfg.Validate() {
		if !strings.Contains(msg, "warning:") {
			t.Errorf("unexpected validation error: %s", msg)
		}
	}
}
