package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"piprobe/pkg/errors"
	"piprobe/pkg/puller"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piprobe.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Installer != puller.DefaultInstaller {
		t.Errorf("Installer = %q, want %q", cfg.Installer, puller.DefaultInstaller)
	}
	if cfg.TargetDir != puller.DefaultTarget {
		t.Errorf("TargetDir = %q, want %q", cfg.TargetDir, puller.DefaultTarget)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q, want :8080", cfg.Serve.Addr)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeConfig(t, `
installer = "pip3.11"
target_dir = "/srv/pkgs"

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl_hours = 2

[serve]
addr = ":9090"
isolate_invocations = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Installer != "pip3.11" {
		t.Errorf("Installer = %q", cfg.Installer)
	}
	if cfg.TargetDir != "/srv/pkgs" {
		t.Errorf("TargetDir = %q", cfg.TargetDir)
	}
	// Unset fields keep their defaults.
	if cfg.PipCacheDir != puller.DefaultCacheDir {
		t.Errorf("PipCacheDir = %q, want default", cfg.PipCacheDir)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.ResultTTL() != 2*time.Hour {
		t.Errorf("ResultTTL = %v, want 2h", cfg.ResultTTL())
	}
	if cfg.Serve.Addr != ":9090" || !cfg.Serve.IsolateInvocations {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, `installer = [not toml`)
	if _, err := Load(path); errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestLoadUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "memcached"
`)
	if _, err := Load(path); errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestMarkerEnvironmentOverrides(t *testing.T) {
	cfg := Default()
	cfg.Environment = map[string]string{
		"sys_platform":        "win32",
		"python_full_version": "3.9.18",
	}

	env, err := cfg.MarkerEnvironment()
	if err != nil {
		t.Fatalf("MarkerEnvironment failed: %v", err)
	}
	if env.SysPlatform != "win32" {
		t.Errorf("SysPlatform = %q, want win32", env.SysPlatform)
	}
	if env.PythonFullVersion != "3.9.18" {
		t.Errorf("PythonFullVersion = %q, want 3.9.18", env.PythonFullVersion)
	}
	// python_version follows python_full_version unless set explicitly.
	if env.PythonVersion != "3.9" {
		t.Errorf("PythonVersion = %q, want 3.9", env.PythonVersion)
	}
}

func TestMarkerEnvironmentExplicitPythonVersion(t *testing.T) {
	cfg := Default()
	cfg.Environment = map[string]string{
		"python_version":      "3.10",
		"python_full_version": "3.9.18",
	}

	env, err := cfg.MarkerEnvironment()
	if err != nil {
		t.Fatalf("MarkerEnvironment failed: %v", err)
	}
	if env.PythonVersion != "3.10" {
		t.Errorf("PythonVersion = %q, want 3.10", env.PythonVersion)
	}
}

func TestMarkerEnvironmentUnknownVariable(t *testing.T) {
	cfg := Default()
	cfg.Environment = map[string]string{"platform_flavor": "spicy"}

	if _, err := cfg.MarkerEnvironment(); errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}
