// Package exclude evaluates gitignore-style exclusion patterns against
// root-relative paths. Rules are evaluated in file order and the last
// matching rule wins; a leading ! re-includes.
//
// Callers prune excluded directories before descending, so a negated rule
// whose target lies beneath an excluded directory never fires. That is
// documented behavior, not a defect to work around here.
package exclude

import "strings"

// Matcher holds an ordered list of compiled exclusion rules.
// A nil Matcher excludes nothing.
type Matcher struct {
	rules []*rule
}

// Compile builds a Matcher from raw pattern lines, preserving their order.
// Blank lines and # comments are skipped; line numbers in errors are
// 1-based indexes into lines.
func Compile(lines []string) (*Matcher, error) {
	m := &Matcher{}
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := compileRule(line)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Pattern: line, Err: err}
		}
		m.rules = append(m.rules, r)
	}
	return m, nil
}

// Len returns the number of active rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Excluded reports whether the root-relative path rel is excluded.
// isDir must be true when rel names a directory; directory-only rules
// never match files.
func (m *Matcher) Excluded(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	excluded := false
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			excluded = !r.negate
		}
	}
	return excluded
}
