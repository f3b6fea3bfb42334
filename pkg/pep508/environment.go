// Package pep508 implements the dependency specification format used by
// Python packaging metadata: requirement strings with optional version
// constraints and environment markers, as described by PEP 508.
//
// The package covers the three concerns piprobe needs:
//   - parsing Requires-Dist requirement lines into name, extras,
//     version constraints, and a marker expression
//   - evaluating marker expressions against an explicit [Environment]
//     snapshot (never against ambient global state)
//   - PEP 440-style version ordering for marker comparisons such as
//     python_version >= "3.8"
//
// Extras are parsed but never activated: the "extra" marker variable
// always evaluates to the empty string.
package pep508

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Environment is a snapshot of the marker variables defined by PEP 508.
// It is constructed once and passed into marker evaluation; evaluation
// never reads process-wide state.
type Environment struct {
	OSName                       string `json:"os_name"`
	SysPlatform                  string `json:"sys_platform"`
	PlatformMachine              string `json:"platform_machine"`
	PlatformPythonImplementation string `json:"platform_python_implementation"`
	PlatformRelease              string `json:"platform_release"`
	PlatformSystem               string `json:"platform_system"`
	PlatformVersion              string `json:"platform_version"`
	PythonVersion                string `json:"python_version"`
	PythonFullVersion            string `json:"python_full_version"`
	ImplementationName           string `json:"implementation_name"`
	ImplementationVersion        string `json:"implementation_version"`

	// Extra is the active extra name. piprobe never activates extras,
	// so this stays empty and markers like `extra == "test"` are false.
	Extra string `json:"extra"`
}

// Lookup returns the value of a marker variable by its PEP 508 name.
// The second return value is false for names the grammar does not define.
func (e *Environment) Lookup(name string) (string, bool) {
	switch name {
	case "os_name":
		return e.OSName, true
	case "sys_platform":
		return e.SysPlatform, true
	case "platform_machine":
		return e.PlatformMachine, true
	case "platform_python_implementation":
		return e.PlatformPythonImplementation, true
	case "platform_release":
		return e.PlatformRelease, true
	case "platform_system":
		return e.PlatformSystem, true
	case "platform_version":
		return e.PlatformVersion, true
	case "python_version":
		return e.PythonVersion, true
	case "python_full_version":
		return e.PythonFullVersion, true
	case "implementation_name":
		return e.ImplementationName, true
	case "implementation_version":
		return e.ImplementationVersion, true
	case "extra":
		return e.Extra, true
	}
	return "", false
}

// defaultPythonVersion is assumed when no interpreter is probed and no
// override is configured.
const defaultPythonVersion = "3.11.0"

// DefaultEnvironment builds an environment snapshot from host facts and
// CPython defaults. Values that a Go process cannot observe (interpreter
// identity and version) default to CPython 3.11 and can be overridden via
// configuration or replaced entirely by [ProbeEnvironment].
func DefaultEnvironment() Environment {
	env := Environment{
		OSName:                       "posix",
		SysPlatform:                  sysPlatform(runtime.GOOS),
		PlatformMachine:              platformMachine(runtime.GOARCH),
		PlatformPythonImplementation: "CPython",
		PlatformSystem:               platformSystem(runtime.GOOS),
		PythonFullVersion:            defaultPythonVersion,
		PythonVersion:                MajorMinor(defaultPythonVersion),
		ImplementationName:           "cpython",
		ImplementationVersion:        defaultPythonVersion,
	}
	if runtime.GOOS == "windows" {
		env.OSName = "nt"
	}
	return env
}

// ProbeEnvironment asks a real Python interpreter for its marker values.
// The interpreter prints the full PEP 508 variable set as a JSON object,
// which decodes directly into Environment via its json tags.
func ProbeEnvironment(ctx context.Context, python string) (Environment, error) {
	cmd := exec.CommandContext(ctx, python, "-c", probeScript)
	out, err := cmd.Output()
	if err != nil {
		return Environment{}, fmt.Errorf("probe %s: %w", python, err)
	}

	var env Environment
	if err := json.Unmarshal(out, &env); err != nil {
		return Environment{}, fmt.Errorf("decode marker environment: %w", err)
	}
	if env.PythonVersion == "" {
		env.PythonVersion = MajorMinor(env.PythonFullVersion)
	}
	return env, nil
}

// probeScript mirrors the variable definitions in PEP 508.
const probeScript = `import json, os, sys, platform
def full_version(info):
    v = "%d.%d.%d" % (info.major, info.minor, info.micro)
    if info.releaselevel != "final":
        v += info.releaselevel[0] + str(info.serial)
    return v
print(json.dumps({
    "os_name": os.name,
    "sys_platform": sys.platform,
    "platform_machine": platform.machine(),
    "platform_python_implementation": platform.python_implementation(),
    "platform_release": platform.release(),
    "platform_system": platform.system(),
    "platform_version": platform.version(),
    "python_version": ".".join(platform.python_version_tuple()[:2]),
    "python_full_version": platform.python_version(),
    "implementation_name": sys.implementation.name,
    "implementation_version": full_version(sys.implementation.version),
    "extra": "",
}))`

// MajorMinor reduces a full version string to its major.minor prefix
// (e.g. "3.10.4" -> "3.10"). Unlike a fixed-width slice, this is correct
// for double-digit minor versions.
func MajorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}

func sysPlatform(goos string) string {
	switch goos {
	case "darwin":
		return "darwin"
	case "windows":
		return "win32"
	default:
		return "linux"
	}
}

func platformSystem(goos string) string {
	switch goos {
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	default:
		return "Linux"
	}
}

func platformMachine(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return goarch
	}
}
