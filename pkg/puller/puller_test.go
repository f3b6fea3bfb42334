package puller

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"piprobe/pkg/cache"
	"piprobe/pkg/errors"
	"piprobe/pkg/pep508"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testEnv() pep508.Environment {
	return pep508.Environment{
		OSName:                       "posix",
		SysPlatform:                  "linux",
		PlatformMachine:              "x86_64",
		PlatformPythonImplementation: "CPython",
		PlatformRelease:              "6.1.0",
		PlatformSystem:               "Linux",
		PlatformVersion:              "#1 SMP",
		PythonVersion:                "3.11",
		PythonFullVersion:            "3.11.4",
		ImplementationName:           "cpython",
		ImplementationVersion:        "3.11.4",
	}
}

// writeStubInstaller creates a shell script that records each invocation's
// arguments, one line per call, then runs the given body.
func writeStubInstaller(t *testing.T, dir, argsFile, body string) string {
	t.Helper()
	path := filepath.Join(dir, "stub-pip")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\n%s\n", argsFile, body)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeMetadata(t *testing.T, target, infoName, metadata, topLevel string) {
	t.Helper()
	dir := filepath.Join(target, infoName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if metadata != "" {
		if err := os.WriteFile(filepath.Join(dir, "METADATA"), []byte(metadata), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if topLevel != "" {
		if err := os.WriteFile(filepath.Join(dir, "top_level.txt"), []byte(topLevel), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func invocations(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestResolveEmptyTarget(t *testing.T) {
	p := New(Options{Target: t.TempDir(), Env: testEnv(), Logger: testLogger()})

	res, err := p.Resolve(context.Background(), Event{Pkg: "anything", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Deps) != 0 || len(res.TopLevel) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Deps == nil || res.TopLevel == nil {
		t.Error("Deps and TopLevel must be non-nil so they encode as [] not null")
	}
}

func TestResolveFilterAndTopLevel(t *testing.T) {
	target := t.TempDir()
	metadata := strings.Join([]string{
		"Metadata-Version: 2.1",
		"Name: example",
		"Requires-Dist: foo",
		`Requires-Dist: winonly ; sys_platform == "win32"`,
		`Requires-Dist: testonly ; extra == "test"`,
		`Requires-Dist: mystery ; some_future_var == "1"`,
		`Requires-Dist: linuxdep ; sys_platform == "linux"`,
		"",
	}, "\n")
	writeMetadata(t, target, "example-1.0.dist-info", metadata, "example\n_example_impl\n")

	p := New(Options{Target: target, Env: testEnv(), Logger: testLogger()})
	res, err := p.Resolve(context.Background(), Event{Pkg: "example", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	wantDeps := []string{"foo", "linuxdep"}
	if len(res.Deps) != len(wantDeps) {
		t.Fatalf("Deps = %v, want %v", res.Deps, wantDeps)
	}
	for i := range wantDeps {
		if res.Deps[i] != wantDeps[i] {
			t.Errorf("Deps[%d] = %q, want %q", i, res.Deps[i], wantDeps[i])
		}
	}

	wantTop := []string{"example", "_example_impl"}
	if len(res.TopLevel) != len(wantTop) || res.TopLevel[0] != wantTop[0] || res.TopLevel[1] != wantTop[1] {
		t.Errorf("TopLevel = %v, want %v", res.TopLevel, wantTop)
	}

	reasons := map[string]SkipReason{}
	for _, s := range res.Skipped {
		reasons[s.Name] = s.Reason
	}
	if reasons["winonly"] != SkipMarkerFalse {
		t.Errorf("winonly skip = %q, want %q", reasons["winonly"], SkipMarkerFalse)
	}
	if reasons["testonly"] != SkipMarkerFalse {
		t.Errorf("testonly skip = %q, want %q", reasons["testonly"], SkipMarkerFalse)
	}
	if reasons["mystery"] != SkipUndefinedVariable {
		t.Errorf("mystery skip = %q, want %q", reasons["mystery"], SkipUndefinedVariable)
	}
}

func TestResolveNormalizesAndDedupes(t *testing.T) {
	target := t.TempDir()
	metadata := "Requires-Dist: Foo_Bar\nRequires-Dist: foo.bar (>=1.0)\nRequires-Dist: zlib2\nRequires-Dist: Abc\n"
	writeMetadata(t, target, "example-1.0.dist-info", metadata, "")

	p := New(Options{Target: target, Env: testEnv(), Logger: testLogger()})
	res, err := p.Resolve(context.Background(), Event{Pkg: "example", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"abc", "foo-bar", "zlib2"}
	if len(res.Deps) != len(want) {
		t.Fatalf("Deps = %v, want %v", res.Deps, want)
	}
	for i := range want {
		if res.Deps[i] != want[i] {
			t.Errorf("Deps[%d] = %q, want %q", i, res.Deps[i], want[i])
		}
	}
}

func TestResolveLastMetadataFolderWins(t *testing.T) {
	target := t.TempDir()
	writeMetadata(t, target, "aaa-1.0.dist-info", "Requires-Dist: older\n", "")
	writeMetadata(t, target, "zzz-2.0.dist-info", "Requires-Dist: newer\n", "")

	p := New(Options{Target: target, Env: testEnv(), Logger: testLogger()})
	res, err := p.Resolve(context.Background(), Event{Pkg: "zzz", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Deps) != 1 || res.Deps[0] != "newer" {
		t.Errorf("Deps = %v, want [newer]", res.Deps)
	}
}

func TestInstallArguments(t *testing.T) {
	bin := t.TempDir()
	target := t.TempDir()
	cacheDir := t.TempDir()
	argsFile := filepath.Join(bin, "args.txt")
	stub := writeStubInstaller(t, bin, argsFile, "exit 0")

	p := New(Options{
		Installer: stub,
		Target:    target,
		CacheDir:  cacheDir,
		Env:       testEnv(),
		Logger:    testLogger(),
	})

	if _, err := p.Resolve(context.Background(), Event{Pkg: "parso==0.8.3"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	calls := invocations(t, argsFile)
	if len(calls) != 1 {
		t.Fatalf("installer invoked %d times, want 1: %v", len(calls), calls)
	}
	want := fmt.Sprintf("install --no-deps parso==0.8.3 --cache-dir %s -t %s", cacheDir, target)
	if calls[0] != want {
		t.Errorf("installer args = %q, want %q", calls[0], want)
	}
}

func TestInstallSkippedWhenAlreadyInstalled(t *testing.T) {
	bin := t.TempDir()
	argsFile := filepath.Join(bin, "args.txt")
	stub := writeStubInstaller(t, bin, argsFile, "exit 0")

	p := New(Options{Installer: stub, Target: t.TempDir(), Env: testEnv(), Logger: testLogger()})
	if _, err := p.Resolve(context.Background(), Event{Pkg: "parso", AlreadyInstalled: true}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if calls := invocations(t, argsFile); len(calls) != 0 {
		t.Errorf("installer invoked %d times, want 0: %v", len(calls), calls)
	}
}

func TestInstallFailure(t *testing.T) {
	bin := t.TempDir()
	argsFile := filepath.Join(bin, "args.txt")
	stub := writeStubInstaller(t, bin, argsFile, "echo 'no matching distribution' >&2\nexit 1")

	p := New(Options{Installer: stub, Target: t.TempDir(), Env: testEnv(), Logger: testLogger()})
	res, err := p.Resolve(context.Background(), Event{Pkg: "no-such-package"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if res != nil {
		t.Errorf("expected nil result on install failure, got %+v", res)
	}
	if code := errors.GetCode(err); code != errors.ErrCodeInstallFailed {
		t.Errorf("error code = %q, want %q", code, errors.ErrCodeInstallFailed)
	}
	if !strings.Contains(err.Error(), "no matching distribution") {
		t.Errorf("error should carry installer stderr, got %q", err)
	}
}

func TestInstallerMissing(t *testing.T) {
	p := New(Options{
		Installer: filepath.Join(t.TempDir(), "does-not-exist"),
		Target:    t.TempDir(),
		Env:       testEnv(),
		Logger:    testLogger(),
	})

	_, err := p.Resolve(context.Background(), Event{Pkg: "parso"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := errors.GetCode(err); code != errors.ErrCodeInstallStart {
		t.Errorf("error code = %q, want %q", code, errors.ErrCodeInstallStart)
	}
}

func TestResolveInvalidSpecifier(t *testing.T) {
	p := New(Options{Target: t.TempDir(), Env: testEnv(), Logger: testLogger()})

	for _, pkg := range []string{"", "-rm -rf", "../escape", "a/b", strings.Repeat("x", 300)} {
		_, err := p.Resolve(context.Background(), Event{Pkg: pkg, AlreadyInstalled: true})
		if code := errors.GetCode(err); code != errors.ErrCodeInvalidSpecifier {
			t.Errorf("Resolve(%q) code = %q, want %q", pkg, code, errors.ErrCodeInvalidSpecifier)
		}
	}
}

func TestResolveCachedResult(t *testing.T) {
	target := t.TempDir()
	writeMetadata(t, target, "example-1.0.dist-info", "Requires-Dist: foo\n", "example\n")

	results, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := New(Options{Target: target, Env: testEnv(), Results: results, Logger: testLogger()})

	ctx := context.Background()
	first, err := p.Resolve(ctx, Event{Pkg: "example", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}

	// Wipe the target. The cached result must still answer for the
	// already-installed case even though the metadata is gone.
	if err := os.RemoveAll(filepath.Join(target, "example-1.0.dist-info")); err != nil {
		t.Fatal(err)
	}

	second, err := p.Resolve(ctx, Event{Pkg: "example", AlreadyInstalled: true})
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if len(second.Deps) != len(first.Deps) || second.Deps[0] != "foo" {
		t.Errorf("cached Deps = %v, want %v", second.Deps, first.Deps)
	}
	if len(second.TopLevel) != 1 || second.TopLevel[0] != "example" {
		t.Errorf("cached TopLevel = %v", second.TopLevel)
	}
}

func TestWithTarget(t *testing.T) {
	p := New(Options{Target: "/a", Env: testEnv(), Logger: testLogger()})
	q := p.WithTarget("/b")
	if p.Target() != "/a" {
		t.Errorf("original target changed to %q", p.Target())
	}
	if q.Target() != "/b" {
		t.Errorf("derived target = %q, want /b", q.Target())
	}
}
