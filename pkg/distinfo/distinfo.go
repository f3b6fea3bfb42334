// Package distinfo reads installed-distribution metadata folders, the
// `*-info` directories an installer leaves next to a package's files
// (both the modern `.dist-info` and the legacy `.egg-info` layouts end in
// the same suffix).
//
// All reads are fresh from disk; nothing is cached between calls. Missing
// metadata is reported as empty results, not as an error: a package with
// no `*-info` folder simply has nothing to declare.
package distinfo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"piprobe/pkg/pep508"
)

const (
	// Suffix marks a distribution metadata folder.
	Suffix = "-info"

	// metadataFile holds the distribution's core metadata headers.
	metadataFile = "METADATA"

	// topLevelFile lists the distribution's importable top-level names.
	topLevelFile = "top_level.txt"

	// requiresDistPrefix marks a dependency declaration header line.
	requiresDistPrefix = "Requires-Dist: "
)

// Find returns the metadata folders directly under dir, sorted
// lexicographically. Directory listing order is never relied on, so the
// result is deterministic across runs and platforms.
func Find(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), Suffix) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// Requirements reads the METADATA file inside the metadata folder and
// parses its Requires-Dist declarations. A missing METADATA file yields
// no requirements; an unreadable or malformed one is an error.
func Requirements(infoDir string) ([]pep508.Requirement, error) {
	data, err := os.ReadFile(filepath.Join(infoDir, metadataFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if rest, ok := strings.CutPrefix(line, requiresDistPrefix); ok {
			lines = append(lines, rest)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	return pep508.ParseAll(strings.Join(lines, "\n"))
}

// TopLevel reads the top_level.txt file inside the metadata folder and
// returns its entries in file order, with trailing blank entries
// stripped. A missing file yields an empty list.
func TopLevel(infoDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(infoDir, topLevelFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for len(names) > 0 && strings.TrimSpace(names[len(names)-1]) == "" {
		names = names[:len(names)-1]
	}
	return names, nil
}
