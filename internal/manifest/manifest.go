// Package manifest reads dependency manifests in pip requirements format.
//
// Only distribution names are extracted. Version constraints, markers and
// pip options stay owned by the packaging tool.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var ErrInvalidRequirement = errors.New("manifest: invalid requirement")

// Requirement is one package specifier line from a manifest.
type Requirement struct {
	Name string
	Raw  string
	Line int
}

var (
	namePattern   = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	separatorRuns = regexp.MustCompile(`[-_.]+`)
	// Any scheme prefix, with or without "//": https://, git+ssh://, file:.
	urlPrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

var archiveSuffixes = []string{".whl", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".zip"}

// Read parses the manifest at path.
func Read(path string) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reqs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// Parse reads newline-delimited package specifiers from r.
func Parse(r io.Reader) ([]Requirement, error) {
	var out []Requirement
	scanner := bufio.NewScanner(r)
	lineNo := 0
	pending := ""
	add := func(line string) error {
		spec := stripComment(line)
		if spec == "" || skipLine(spec) {
			return nil
		}
		name, err := parseName(spec)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, Requirement{Name: name, Raw: spec, Line: lineNo})
		return nil
	}
	for scanner.Scan() {
		lineNo++
		line := pending + scanner.Text()
		pending = ""
		if strings.HasSuffix(line, `\`) {
			pending = strings.TrimSuffix(line, `\`)
			continue
		}
		if err := add(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// A continuation at EOF still ends the requirement.
	if pending != "" {
		if err := add(pending); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Normalize returns the PEP 503 normalized form of a distribution name.
func Normalize(name string) string {
	return strings.ToLower(separatorRuns.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Names returns the normalized names of reqs in manifest order.
func Names(reqs []Requirement) []string {
	names := make([]string, 0, len(reqs))
	for _, req := range reqs {
		names = append(names, req.Name)
	}
	return names
}

func stripComment(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return ""
	}
	// pip only treats '#' as a comment when preceded by whitespace.
	if idx := strings.Index(trimmed, " #"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.Index(trimmed, "\t#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// skipLine reports option, URL, archive and local path lines that carry no
// plain name.
func skipLine(spec string) bool {
	switch {
	case strings.HasPrefix(spec, "-"):
		return true
	case strings.HasPrefix(spec, "."), strings.HasPrefix(spec, "/"), strings.HasPrefix(spec, "~"):
		return true
	case urlPrefix.MatchString(spec):
		return true
	}
	return isArchive(spec)
}

func isArchive(spec string) bool {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return false
	}
	target := strings.ToLower(fields[0])
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(target, suffix) {
			return true
		}
	}
	return false
}

func parseName(spec string) (string, error) {
	m := namePattern.FindStringSubmatch(spec)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRequirement, spec)
	}
	return Normalize(m[1]), nil
}
