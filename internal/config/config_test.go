package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadClient(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Client{DefaultProfile: "work", ServerURL: "http://crm.local:8080"}
	if err := SaveClient(path, cfg); err != nil {
		t.Fatalf("SaveClient() error = %v", err)
	}

	loaded, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.ServerURL != "http://crm.local:8080" {
		t.Errorf("ServerURL = %q, want %q", loaded.ServerURL, "http://crm.local:8080")
	}
}

func TestLoadClientMissing(t *testing.T) {
	_, err := LoadClient("/nonexistent/config.toml")
	if err == nil {
		t.Error("LoadClient() expected error for missing file")
	}
}

func TestSaveClientPermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := SaveClient(path, &Client{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("VOXCRM_LISTEN_ADDR", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadServer("")
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "uploads" {
		t.Errorf("UploadsDir = %q, want uploads", cfg.UploadsDir)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
}

func TestLoadServerEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "server.toml")
	if err := os.WriteFile(path, []byte("listen_addr = \":9000\"\njwt_secret = \"from-file\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000 (from file)", cfg.ListenAddr)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want from-env (env wins)", cfg.JWTSecret)
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins("http://a.example, http://b.example ,")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Errorf("splitOrigins = %v", got)
	}
}
