package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	content := `metadata_url: http://localhost:8083
namespace: prod
request_timeout: 10s
cache_db: /var/lib/flowtail/cache.db
`
	if err := os.WriteFile(filepath.Join(dir, "flowtail.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, filename, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if filename != "flowtail.yaml" {
		t.Errorf("expected flowtail.yaml, got %s", filename)
	}
	if cfg.MetadataURL != "http://localhost:8083" {
		t.Errorf("metadata_url = %q", cfg.MetadataURL)
	}
	if cfg.Namespace != "prod" {
		t.Errorf("namespace = %q", cfg.Namespace)
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("request_timeout = %v", cfg.RequestTimeout.Duration())
	}
	if cfg.Addr != ":8084" {
		t.Errorf("default addr = %q", cfg.Addr)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	content := `metadata_url = "http://localhost:8083"
request_timeout = "5s"

[s3]
bucket = "workflow-logs"
region = "us-east-1"
`
	if err := os.WriteFile(filepath.Join(dir, "flowtail.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, filename, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if filename != "flowtail.toml" {
		t.Errorf("expected flowtail.toml, got %s", filename)
	}
	if cfg.RequestTimeout.Duration() != 5*time.Second {
		t.Errorf("request_timeout = %v", cfg.RequestTimeout.Duration())
	}
	if !cfg.S3.Enabled() || cfg.S3.Bucket != "workflow-logs" {
		t.Errorf("s3 = %+v", cfg.S3)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	content := `{"metadata_url": "http://localhost:8083", "cache_entries": 128}`
	if err := os.WriteFile(filepath.Join(dir, "flowtail.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheEntries != 128 {
		t.Errorf("cache_entries = %d", cfg.CacheEntries)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, _, err := Load(t.TempDir()); !errors.Is(err, ErrNoConfig) {
		t.Errorf("error = %v, want ErrNoConfig", err)
	}
}

func TestValidateRequiresMetadataURL(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "flowtail.yaml"), []byte("addr: :9999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(dir); err == nil {
		t.Error("expected validation error for missing metadata_url")
	}
}

func TestUnknownYAMLFieldRejected(t *testing.T) {
	dir := t.TempDir()
	content := "metadata_url: http://localhost:8083\nmetdata_url_typo: x\n"
	if err := os.WriteFile(filepath.Join(dir, "flowtail.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(dir); err == nil {
		t.Error("expected error for unknown field")
	}
}
