package pep508

import (
	"errors"
	"testing"
)

func testEnv() Environment {
	return Environment{
		OSName:                       "posix",
		SysPlatform:                  "linux",
		PlatformMachine:              "x86_64",
		PlatformPythonImplementation: "CPython",
		PlatformSystem:               "Linux",
		PythonVersion:                "3.11",
		PythonFullVersion:            "3.11.4",
		ImplementationName:           "cpython",
		ImplementationVersion:        "3.11.4",
	}
}

func TestMarkerEval(t *testing.T) {
	env := testEnv()

	tests := []struct {
		marker string
		want   bool
	}{
		{`python_version >= "3.8"`, true},
		{`python_version < "3.8"`, false},
		{`python_version >= "3.9.0"`, true},
		{`python_full_version < "3.11.5"`, true},
		{`sys_platform == "linux"`, true},
		{`sys_platform == "win32"`, false},
		{`sys_platform != "win32"`, true},
		{`os_name == "posix" and python_version >= "3.6"`, true},
		{`os_name == "nt" and python_version >= "3.6"`, false},
		{`os_name == "nt" or python_version >= "3.6"`, true},
		{`os_name == "nt" or sys_platform == "win32"`, false},
		{`(os_name == "nt" or sys_platform == "linux") and python_version >= "3.8"`, true},
		{`extra == "test"`, false},
		{`extra == ""`, true},
		{`"linux" in sys_platform`, true},
		{`"bsd" not in sys_platform`, true},
		{`platform_python_implementation == "CPython"`, true},
		{`implementation_name === "cpython"`, true},
		{`python_version ~= "3.8"`, true},
		{`python_full_version ~= "3.11.0"`, true},
		{`python_full_version ~= "3.10.0"`, false},
		// Deprecated dotted spellings still resolve.
		{`os.name == "posix"`, true},
		{`sys.platform == "linux"`, true},
		{`python_implementation == "CPython"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			m, err := ParseMarker(tt.marker)
			if err != nil {
				t.Fatalf("ParseMarker(%q) failed: %v", tt.marker, err)
			}
			got, err := m.Eval(&env)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tt.marker, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.marker, got, tt.want)
			}
		})
	}
}

func TestMarkerEvalUndefinedVariable(t *testing.T) {
	env := testEnv()

	m, err := ParseMarker(`some_unknown_var == "1"`)
	if err != nil {
		t.Fatalf("ParseMarker failed: %v", err)
	}

	_, err = m.Eval(&env)
	if err == nil {
		t.Fatal("expected error for undefined variable")
	}

	var undef *UndefinedError
	if !errors.As(err, &undef) {
		t.Fatalf("expected UndefinedError, got %T: %v", err, err)
	}
	if undef.Name != "some_unknown_var" {
		t.Errorf("UndefinedError.Name = %q, want %q", undef.Name, "some_unknown_var")
	}
}

func TestMarkerShortCircuit(t *testing.T) {
	env := testEnv()

	// The right side references an undefined variable, but the left side
	// decides the expression first.
	m, err := ParseMarker(`sys_platform == "linux" or bogus_var == "1"`)
	if err != nil {
		t.Fatalf("ParseMarker failed: %v", err)
	}
	got, err := m.Eval(&env)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if !got {
		t.Error("expected short-circuit or to be true")
	}

	m, err = ParseMarker(`sys_platform == "win32" and bogus_var == "1"`)
	if err != nil {
		t.Fatalf("ParseMarker failed: %v", err)
	}
	got, err = m.Eval(&env)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got {
		t.Error("expected short-circuit and to be false")
	}
}

func TestParseMarkerErrors(t *testing.T) {
	tests := []string{
		``,
		`python_version >=`,
		`python_version >= "3.8" and`,
		`(python_version >= "3.8"`,
		`python_version >== "3.8"`,
		`python_version >= "3.8`,
		`python_version >= "3.8" garbage`,
	}

	for _, marker := range tests {
		t.Run(marker, func(t *testing.T) {
			if _, err := ParseMarker(marker); err == nil {
				t.Errorf("ParseMarker(%q) should have failed", marker)
			}
		})
	}
}

func TestMarkerString(t *testing.T) {
	raw := `python_version >= "3.8" and sys_platform != "win32"`
	m, err := ParseMarker(raw)
	if err != nil {
		t.Fatalf("ParseMarker failed: %v", err)
	}
	if m.String() != raw {
		t.Errorf("String() = %q, want %q", m.String(), raw)
	}
}
