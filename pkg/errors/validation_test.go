package errors

import (
	"strings"
	"testing"
)

func TestValidateSpecifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "requests", false},
		{"valid pinned", "parso==0.8.3", false},
		{"valid range", "urllib3>=1.26,<2", false},
		{"valid extras", "requests[socks]", false},
		{"valid underscore", "typing_extensions", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"leading dash", "-rm", true},
		{"double dash flag", "--index-url=evil", true},
		{"path traversal", "foo/../bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpecifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpecifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && GetCode(err) != ErrCodeInvalidSpecifier {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidSpecifier)
			}
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "requests", false},
		{"valid dash", "typing-extensions", false},
		{"valid dot", "zope.interface", false},
		{"valid single char", "q", false},

		{"empty", "", true},
		{"leading dot", ".hidden", true},
		{"trailing dash", "foo-", true},
		{"spaces", "foo bar", true},
		{"specifier included", "requests==2.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
