package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSpecifier validates a package specifier for safety and correctness.
// It rejects specifiers that could be used for path traversal or argument
// injection when handed to the external installer.
//
// The validation rules are intentionally conservative:
//   - No empty specifiers
//   - No control characters or null bytes
//   - No leading dash (would be parsed as an installer flag)
//   - No path traversal sequences
//   - Maximum length of 256 characters
func ValidateSpecifier(spec string) error {
	if spec == "" {
		return New(ErrCodeInvalidSpecifier, "package specifier cannot be empty")
	}

	if len(spec) > 256 {
		return New(ErrCodeInvalidSpecifier, "package specifier too long (max 256 characters)")
	}

	for _, r := range spec {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSpecifier, "package specifier contains invalid control characters")
		}
	}

	if strings.HasPrefix(spec, "-") {
		return New(ErrCodeInvalidSpecifier, "package specifier cannot start with a dash")
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(spec, pattern) {
			return New(ErrCodeInvalidSpecifier, "package specifier contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// pythonPackageNameRegex matches valid Python package names (PEP 508).
var pythonPackageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePackageName validates the name portion of a specifier per PEP 508.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidSpecifier, "package name cannot be empty")
	}

	if !pythonPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidSpecifier, "invalid Python package name: %q", name)
	}

	return nil
}
