package pep508

import "testing"

func TestCompareVersionStrings(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.8", "3.8", 0},
		{"3.8", "3.8.0", 0},
		{"3.8.0", "3.8", 0},
		{"3.9", "3.10", -1},
		{"3.10", "3.9", 1},
		{"2.7.18", "3.0", -1},
		{"1!1.0", "2.0", 1},
		{"0!1.0", "1.0", 0},
		{"3.10.0a1", "3.10.0", -1},
		{"3.10.0a1", "3.10.0b1", -1},
		{"3.10.0b2", "3.10.0rc1", -1},
		{"3.10.0rc1", "3.10.0rc2", -1},
		{"3.10.0c1", "3.10.0rc1", 0},
		{"1.0+local.1", "1.0", 0},
		{"v1.2", "1.2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, ok := compareVersionStrings(tt.a, tt.b)
			if !ok {
				t.Fatalf("compareVersionStrings(%q, %q) did not parse", tt.a, tt.b)
			}
			if got != tt.want {
				t.Errorf("compareVersionStrings(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareVersionStringsUnparseable(t *testing.T) {
	tests := [][2]string{
		{"linux", "3.8"},
		{"3.8", "darwin"},
		{"", "1.0"},
		{"1..0", "1.0"},
	}

	for _, tt := range tests {
		if _, ok := compareVersionStrings(tt[0], tt[1]); ok {
			t.Errorf("compareVersionStrings(%q, %q) should not parse", tt[0], tt[1])
		}
	}
}

func TestCompatibleRelease(t *testing.T) {
	tests := []struct {
		val, spec string
		want      bool
	}{
		{"3.11", "3.8", true},   // ~= 3.8 means >= 3.8, == 3.*
		{"3.7", "3.8", false},   // below the floor
		{"4.0", "3.8", false},   // outside the prefix
		{"3.11.4", "3.11.0", true},
		{"3.12.0", "3.11.0", false},
		{"2.8.1", "2.8.0", true},
	}

	for _, tt := range tests {
		got, ok := compatibleRelease(tt.val, tt.spec)
		if !ok {
			t.Fatalf("compatibleRelease(%q, %q) did not parse", tt.val, tt.spec)
		}
		if got != tt.want {
			t.Errorf("compatibleRelease(%q, %q) = %v, want %v", tt.val, tt.spec, got, tt.want)
		}
	}
}

func TestCompatibleReleaseSingleSegment(t *testing.T) {
	// ~= requires at least two release segments on the right-hand side.
	if _, ok := compatibleRelease("3.8", "3"); ok {
		t.Error("compatibleRelease should reject a single-segment specifier")
	}
}

func TestMajorMinor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.11.4", "3.11"},
		{"3.9.18", "3.9"},
		{"3.10", "3.10"},
		{"3", "3"},
		{"3.10.0rc1", "3.10"},
	}

	for _, tt := range tests {
		if got := MajorMinor(tt.in); got != tt.want {
			t.Errorf("MajorMinor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
