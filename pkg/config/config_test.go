package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// writeConfigFixture marshals the given document into config.yaml inside dir
// and chdirs there so Load() picks it up.
func writeConfigFixture(t *testing.T, doc map[string]any) {
	t.Helper()

	tmpDir := t.TempDir()
	content, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), content, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func baseFixture() map[string]any {
	return map[string]any{
		"port": "3443",
		"env":  "test",
		"database": map[string]any{
			"host": "localhost",
		},
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	doc := baseFixture()
	doc["database"] = map[string]any{
		"host":     "db.example.com",
		"port":     5432,
		"user":     "testuser",
		"database": "testdb",
	}
	writeConfigFixture(t, doc)

	// Clear env vars that might interfere with test
	os.Unsetenv("PGHOST")
	os.Unsetenv("BASE_URL")

	// Set env vars to override YAML values
	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify env vars override YAML
	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}

	// Verify version was set
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}

	// Verify BaseURL was auto-derived from PORT
	if cfg.BaseURL != "http://localhost:4443" {
		t.Errorf("expected BaseURL=http://localhost:4443 (auto-derived from PORT), got %s", cfg.BaseURL)
	}

	// Verify YAML value used for database host (proves YAML was read)
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
}

func TestLoad_BaseURLAutoDerive(t *testing.T) {
	doc := baseFixture()
	doc["port"] = "5678"
	writeConfigFixture(t, doc)

	// Clear BASE_URL to test auto-derivation
	os.Unsetenv("BASE_URL")
	os.Unsetenv("PORT")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify BaseURL was auto-derived from port in YAML
	if cfg.BaseURL != "http://localhost:5678" {
		t.Errorf("expected BaseURL=http://localhost:5678 (auto-derived), got %s", cfg.BaseURL)
	}
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	doc := baseFixture()
	doc["base_url"] = "http://my-server.internal:8080"
	writeConfigFixture(t, doc)

	// Clear env vars
	os.Unsetenv("BASE_URL")
	os.Unsetenv("PORT")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify explicit BaseURL is used (not auto-derived)
	if cfg.BaseURL != "http://my-server.internal:8080" {
		t.Errorf("expected BaseURL=http://my-server.internal:8080 (explicit), got %s", cfg.BaseURL)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	_, err = Load("test-version")
	if err == nil {
		t.Error("expected error when config.yaml is missing")
	}
}

func TestLoad_DatabaseDefaults(t *testing.T) {
	writeConfigFixture(t, baseFixture())

	// Clear any env vars that might interfere
	os.Unsetenv("PGPORT")
	os.Unsetenv("PGUSER")
	os.Unsetenv("PGDATABASE")
	os.Unsetenv("PGMAX_CONNECTIONS")
	os.Unsetenv("PGSSLMODE")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("expected Database.Port=5432 (default), got %d", cfg.Database.Port)
	}
	if cfg.Database.User != "declaro" {
		t.Errorf("expected Database.User=declaro (default), got %s", cfg.Database.User)
	}
	if cfg.Database.Database != "declaro_engine" {
		t.Errorf("expected Database.Database=declaro_engine (default), got %s", cfg.Database.Database)
	}
	if cfg.Database.MaxConnections != 25 {
		t.Errorf("expected Database.MaxConnections=25 (default), got %d", cfg.Database.MaxConnections)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("expected Database.SSLMode=disable (default), got %s", cfg.Database.SSLMode)
	}
}

func TestLoad_RedisDisabledByDefault(t *testing.T) {
	writeConfigFixture(t, baseFixture())

	os.Unsetenv("REDIS_HOST")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Empty host means the aggregate stats cache is off
	if cfg.Redis.Host != "" {
		t.Errorf("expected empty Redis.Host (cache disabled), got %s", cfg.Redis.Host)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("expected Redis.Port=6379 (default), got %d", cfg.Redis.Port)
	}
}

func TestLoad_UploadConfig(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		writeConfigFixture(t, baseFixture())
		os.Unsetenv("UPLOAD_MAX_MEMORY_BYTES")

		cfg, err := Load("test-version")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Uploads.MaxMemoryBytes != 33554432 {
			t.Errorf("expected Uploads.MaxMemoryBytes=33554432 (default), got %d", cfg.Uploads.MaxMemoryBytes)
		}
	})

	t.Run("from yaml", func(t *testing.T) {
		doc := baseFixture()
		doc["uploads"] = map[string]any{"max_memory_bytes": 1048576}
		writeConfigFixture(t, doc)
		os.Unsetenv("UPLOAD_MAX_MEMORY_BYTES")

		cfg, err := Load("test-version")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Uploads.MaxMemoryBytes != 1048576 {
			t.Errorf("expected Uploads.MaxMemoryBytes=1048576 (from yaml), got %d", cfg.Uploads.MaxMemoryBytes)
		}
	})

	t.Run("env overrides yaml", func(t *testing.T) {
		doc := baseFixture()
		doc["uploads"] = map[string]any{"max_memory_bytes": 1048576}
		writeConfigFixture(t, doc)
		t.Setenv("UPLOAD_MAX_MEMORY_BYTES", "2097152")

		cfg, err := Load("test-version")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Uploads.MaxMemoryBytes != 2097152 {
			t.Errorf("expected Uploads.MaxMemoryBytes=2097152 (from env), got %d", cfg.Uploads.MaxMemoryBytes)
		}
	})
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	dbConfig := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "declaro",
		Password: "secret",
		Database: "declaro_engine",
		SSLMode:  "require",
	}

	got := dbConfig.ConnectionString()
	want := "host=db.example.com port=5433 user=declaro password=secret dbname=declaro_engine sslmode=require"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

// TLS Configuration Tests

func TestLoad_NoTLS(t *testing.T) {
	writeConfigFixture(t, baseFixture())

	// Clear TLS env vars
	os.Unsetenv("TLS_CERT_PATH")
	os.Unsetenv("TLS_KEY_PATH")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify TLS fields are empty
	if cfg.TLSCertPath != "" {
		t.Errorf("expected empty TLSCertPath, got %s", cfg.TLSCertPath)
	}
	if cfg.TLSKeyPath != "" {
		t.Errorf("expected empty TLSKeyPath, got %s", cfg.TLSKeyPath)
	}
}

// writeTLSFiles creates dummy cert/key files in their own directory so they
// survive the fixture chdir.
func writeTLSFiles(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	tlsDir := t.TempDir()
	certPath = filepath.Join(tlsDir, "test-cert.pem")
	keyPath = filepath.Join(tlsDir, "test-key.pem")
	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}
	if err := os.WriteFile(keyPath, []byte("fake-key-content"), 0644); err != nil {
		t.Fatalf("failed to write test key: %v", err)
	}
	return certPath, keyPath
}

func TestValidateTLS_BothProvided(t *testing.T) {
	certPath, keyPath := writeTLSFiles(t)

	doc := baseFixture()
	doc["tls_cert_path"] = certPath
	doc["tls_key_path"] = keyPath
	writeConfigFixture(t, doc)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TLSCertPath != certPath {
		t.Errorf("expected TLSCertPath=%s, got %s", certPath, cfg.TLSCertPath)
	}
	if cfg.TLSKeyPath != keyPath {
		t.Errorf("expected TLSKeyPath=%s, got %s", keyPath, cfg.TLSKeyPath)
	}

	// HTTPS scheme when TLS is configured
	if !strings.HasPrefix(cfg.BaseURL, "https://") {
		t.Errorf("expected https BaseURL with TLS configured, got %s", cfg.BaseURL)
	}
}

func TestValidateTLS_OnlyCertProvided(t *testing.T) {
	certPath, _ := writeTLSFiles(t)

	doc := baseFixture()
	doc["tls_cert_path"] = certPath
	writeConfigFixture(t, doc)

	os.Unsetenv("TLS_KEY_PATH")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when only cert provided, got nil")
	}
	if !strings.Contains(err.Error(), "both") {
		t.Errorf("expected error to mention 'both', got: %v", err)
	}
}

func TestValidateTLS_OnlyKeyProvided(t *testing.T) {
	_, keyPath := writeTLSFiles(t)

	doc := baseFixture()
	doc["tls_key_path"] = keyPath
	writeConfigFixture(t, doc)

	os.Unsetenv("TLS_CERT_PATH")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when only key provided, got nil")
	}
	if !strings.Contains(err.Error(), "both") {
		t.Errorf("expected error to mention 'both', got: %v", err)
	}
}

func TestValidateTLS_CertFileNotFound(t *testing.T) {
	_, keyPath := writeTLSFiles(t)

	doc := baseFixture()
	doc["tls_cert_path"] = filepath.Join(filepath.Dir(keyPath), "nonexistent-cert.pem")
	doc["tls_key_path"] = keyPath
	writeConfigFixture(t, doc)

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when cert file not found, got nil")
	}
	if !strings.Contains(err.Error(), "cert") {
		t.Errorf("expected error to mention 'cert', got: %v", err)
	}
}

func TestValidateTLS_KeyFileNotFound(t *testing.T) {
	certPath, _ := writeTLSFiles(t)

	doc := baseFixture()
	doc["tls_cert_path"] = certPath
	doc["tls_key_path"] = filepath.Join(filepath.Dir(certPath), "nonexistent-key.pem")
	writeConfigFixture(t, doc)

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when key file not found, got nil")
	}
	if !strings.Contains(err.Error(), "key") {
		t.Errorf("expected error to mention 'key', got: %v", err)
	}
}

// Note: We don't test unreadable files (e.g., files with 0000 permissions) because:
// 1. os.Stat() succeeds even on unreadable files (it only checks metadata)
// 2. Actual readability errors will be caught by tls.LoadX509KeyPair() at server startup
// The file existence checks (tested above) are sufficient for config validation.

func TestValidateTLS_TLSFromEnv(t *testing.T) {
	certPath, keyPath := writeTLSFiles(t)

	writeConfigFixture(t, baseFixture())

	// Set TLS paths via environment variables
	t.Setenv("TLS_CERT_PATH", certPath)
	t.Setenv("TLS_KEY_PATH", keyPath)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TLSCertPath != certPath {
		t.Errorf("expected TLSCertPath=%s (from env), got %s", certPath, cfg.TLSCertPath)
	}
	if cfg.TLSKeyPath != keyPath {
		t.Errorf("expected TLSKeyPath=%s (from env), got %s", keyPath, cfg.TLSKeyPath)
	}
}
