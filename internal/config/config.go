// Package config loads the piprobe configuration file.
//
// Configuration is TOML (piprobe.toml); every field has a default, so a
// missing file is not an error. Command-line flags override file values.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"piprobe/pkg/errors"
	"piprobe/pkg/pep508"
	"piprobe/pkg/puller"
)

// Config is the full application configuration.
type Config struct {
	// Installer is the external package installer binary.
	Installer string `toml:"installer"`

	// TargetDir is where packages are installed and scanned.
	TargetDir string `toml:"target_dir"`

	// PipCacheDir is the installer's download cache directory.
	PipCacheDir string `toml:"pip_cache_dir"`

	Cache Cache `toml:"cache"`
	Serve Serve `toml:"serve"`

	// Environment overrides individual PEP 508 marker variables, keyed
	// by their marker names (e.g. python_version = "3.9").
	Environment map[string]string `toml:"environment"`
}

// Cache configures the resolve-result cache.
type Cache struct {
	Backend   string `toml:"backend"` // file, redis, or none
	Dir       string `toml:"dir"`     // file backend directory (default XDG cache)
	RedisAddr string `toml:"redis_addr"`
	TTLHours  int    `toml:"ttl_hours"`
}

// Serve configures the HTTP surface.
type Serve struct {
	Addr string `toml:"addr"`

	// IsolateInvocations gives each HTTP invocation its own target
	// subdirectory so concurrent installs cannot race on shared files.
	IsolateInvocations bool `toml:"isolate_invocations"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Installer:   puller.DefaultInstaller,
		TargetDir:   puller.DefaultTarget,
		PipCacheDir: puller.DefaultCacheDir,
		Cache: Cache{
			Backend:   "file",
			RedisAddr: "localhost:6379",
			TTLHours:  24,
		},
		Serve: Serve{
			Addr: ":8080",
		},
	}
}

// Load reads the configuration file at path, overlaying it on the
// defaults. A missing file yields the defaults; a malformed file is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}

	switch cfg.Cache.Backend {
	case "file", "redis", "none":
	default:
		return cfg, errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (want file, redis, or none)", cfg.Cache.Backend)
	}

	return cfg, nil
}

// ResultTTL returns the configured cache TTL as a duration.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// MarkerEnvironment builds the marker environment snapshot: host defaults
// with the configured overrides applied on top.
func (c *Config) MarkerEnvironment() (pep508.Environment, error) {
	env := pep508.DefaultEnvironment()
	if err := applyOverrides(&env, c.Environment); err != nil {
		return env, err
	}
	return env, nil
}

func applyOverrides(env *pep508.Environment, overrides map[string]string) error {
	for name, value := range overrides {
		switch name {
		case "os_name":
			env.OSName = value
		case "sys_platform":
			env.SysPlatform = value
		case "platform_machine":
			env.PlatformMachine = value
		case "platform_python_implementation":
			env.PlatformPythonImplementation = value
		case "platform_release":
			env.PlatformRelease = value
		case "platform_system":
			env.PlatformSystem = value
		case "platform_version":
			env.PlatformVersion = value
		case "python_version":
			env.PythonVersion = value
		case "python_full_version":
			env.PythonFullVersion = value
			if overrides["python_version"] == "" {
				env.PythonVersion = pep508.MajorMinor(value)
			}
		case "implementation_name":
			env.ImplementationName = value
		case "implementation_version":
			env.ImplementationVersion = value
		default:
			return errors.New(errors.ErrCodeInvalidConfig, "unknown marker variable %q in [environment]", name)
		}
	}
	return nil
}
