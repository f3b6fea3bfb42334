package pep508

import (
	"strconv"
	"strings"
)

// version is a parsed PEP 440 version, reduced to the parts that matter
// for marker evaluation: an optional epoch, the numeric release segments,
// and an optional pre-release tag.
//
// Post- and dev-releases, local version labels, and the full normalization
// rules of PEP 440 are not modeled; marker comparisons in real metadata
// overwhelmingly compare plain release versions ("3.8", "2.7.18", "3.10.0a1").
type version struct {
	epoch   int
	release []int
	pre     preRelease
}

// preRelease models the a/b/rc suffix. phase is "" for final releases.
type preRelease struct {
	phase  string // "a", "b", or "rc"
	number int
}

// parseVersion parses a version string. The boolean result is false when
// the string does not look like a version at all, in which case callers
// fall back to plain string comparison (matching the permissive behavior
// of marker evaluation in Python packaging).
func parseVersion(s string) (version, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return version{}, false
	}

	var v version

	if i := strings.IndexByte(s, '!'); i >= 0 {
		epoch, err := strconv.Atoi(s[:i])
		if err != nil {
			return version{}, false
		}
		v.epoch = epoch
		s = s[i+1:]
	}

	// Strip local version label; it never participates in ordering here.
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return version{}, false
		}
		num, rest := splitNumericPrefix(seg)
		if num == "" {
			return version{}, false
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return version{}, false
		}
		v.release = append(v.release, n)

		if rest != "" {
			pre, ok := parsePreRelease(rest)
			if !ok {
				return version{}, false
			}
			v.pre = pre
			break // pre-release terminates the release segments
		}
	}

	return v, len(v.release) > 0
}

func splitNumericPrefix(s string) (num, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func parsePreRelease(s string) (preRelease, bool) {
	for _, phase := range []string{"rc", "a", "b", "c"} {
		if strings.HasPrefix(s, phase) {
			numStr := s[len(phase):]
			n := 0
			if numStr != "" {
				var err error
				if n, err = strconv.Atoi(numStr); err != nil {
					return preRelease{}, false
				}
			}
			if phase == "c" {
				phase = "rc"
			}
			return preRelease{phase: phase, number: n}, true
		}
	}
	return preRelease{}, false
}

// compare returns -1, 0, or 1 ordering v against other per PEP 440.
// Missing release segments compare as zero, so "3.8" == "3.8.0".
func (v version) compare(other version) int {
	if v.epoch != other.epoch {
		return sign(v.epoch - other.epoch)
	}

	n := len(v.release)
	if len(other.release) > n {
		n = len(other.release)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.release) {
			a = v.release[i]
		}
		if i < len(other.release) {
			b = other.release[i]
		}
		if a != b {
			return sign(a - b)
		}
	}

	return v.pre.compare(other.pre)
}

func (p preRelease) compare(other preRelease) int {
	// Final releases sort after any pre-release of the same version.
	if p.phase == "" && other.phase == "" {
		return 0
	}
	if p.phase == "" {
		return 1
	}
	if other.phase == "" {
		return -1
	}
	if p.phase != other.phase {
		if phaseRank(p.phase) < phaseRank(other.phase) {
			return -1
		}
		return 1
	}
	return sign(p.number - other.number)
}

func phaseRank(phase string) int {
	switch phase {
	case "a":
		return 0
	case "b":
		return 1
	default: // rc
		return 2
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// compareVersionStrings orders two version strings. The boolean result is
// false when either side fails to parse as a version.
func compareVersionStrings(a, b string) (int, bool) {
	va, ok := parseVersion(a)
	if !ok {
		return 0, false
	}
	vb, ok := parseVersion(b)
	if !ok {
		return 0, false
	}
	return va.compare(vb), true
}

// compatibleRelease implements the ~= operator: ~= X.Y.Z means
// >= X.Y.Z and == X.Y.*.
func compatibleRelease(val, spec string) (bool, bool) {
	vv, ok := parseVersion(val)
	if !ok {
		return false, false
	}
	sv, ok := parseVersion(spec)
	if !ok || len(sv.release) < 2 {
		return false, false
	}

	if vv.compare(sv) < 0 {
		return false, true
	}

	// Equal on all but the last specified segment.
	prefix := sv.release[:len(sv.release)-1]
	for i, seg := range prefix {
		got := 0
		if i < len(vv.release) {
			got = vv.release[i]
		}
		if got != seg {
			return false, true
		}
	}
	return true, true
}
