package pep508

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is one parsed dependency declaration from a Requires-Dist
// line, e.g. `requests[socks] (>=2.0) ; python_version >= "3.8"`.
type Requirement struct {
	Name      string   // declared project name, as written
	Extras    []string // requested extras, if any
	Specifier string   // version constraints, without surrounding parens
	URL       string   // direct reference target for `name @ url` forms
	Marker    *Marker  // nil when the declaration is unconditional
}

// ProjectName returns the PEP 503 normalized project name.
func (r *Requirement) ProjectName() string {
	return Normalize(r.Name)
}

// Normalize converts a project name to its canonical form: lowercase with
// runs of hyphens, underscores, and dots collapsed to a single hyphen,
// following the PEP 503 rules used by PyPI.
func Normalize(name string) string {
	return nameSeparatorRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

var (
	nameSeparatorRE = regexp.MustCompile(`[-_.]+`)
	nameRE          = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)
	extrasRE        = regexp.MustCompile(`^\[([^\]]*)\]`)
)

// ParseRequirement parses a single requirement line.
func ParseRequirement(line string) (*Requirement, error) {
	orig := strings.TrimSpace(line)
	if orig == "" {
		return nil, fmt.Errorf("empty requirement")
	}

	rest := orig
	var req Requirement

	m := nameRE.FindString(rest)
	if m == "" {
		return nil, fmt.Errorf("invalid requirement %q: expected package name", orig)
	}
	req.Name = m
	rest = strings.TrimSpace(rest[len(m):])

	if em := extrasRE.FindStringSubmatch(rest); em != nil {
		for _, extra := range strings.Split(em[1], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
		rest = strings.TrimSpace(rest[len(em[0]):])
	}

	// Marker is everything after the first top-level semicolon.
	if body, marker, found := cutMarker(rest); found {
		m, err := ParseMarker(marker)
		if err != nil {
			return nil, fmt.Errorf("invalid requirement %q: %w", orig, err)
		}
		req.Marker = m
		rest = strings.TrimSpace(body)
	}

	if url, ok := strings.CutPrefix(rest, "@"); ok {
		req.URL = strings.TrimSpace(url)
		return &req, nil
	}

	// Older metadata wraps the specifier in parentheses.
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")"))
	req.Specifier = rest
	return &req, nil
}

// cutMarker splits a requirement body from its marker at the first
// semicolon outside of quotes.
func cutMarker(s string) (body, marker string, found bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// ParseAll parses a newline-separated block of requirement lines, such as
// the one assembled from a METADATA file's Requires-Dist headers. Blank
// lines are ignored; a malformed line fails the whole parse.
func ParseAll(block string) ([]Requirement, error) {
	var reqs []Requirement
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := ParseRequirement(line)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}
