package exclude

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports a malformed pattern line. Line is 1-based within the
// source the pattern came from.
type ParseError struct {
	Line    int
	Pattern string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pattern %q (line %d): %v", e.Pattern, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// rule is a single compiled pattern line.
type rule struct {
	re       *regexp.Regexp
	pattern  string // original line text
	negate   bool   // leading ! re-includes
	anchored bool   // contains a / outside the trailing position
	dirOnly  bool   // trailing / restricts to directories
}

// compileRule converts one gitignore-style pattern line into a rule.
func compileRule(pattern string) (*rule, error) {
	r := &rule{pattern: pattern}

	body := pattern
	if strings.HasPrefix(body, "!") {
		r.negate = true
		body = body[1:]
	}

	// Trailing / means directory-only.
	if strings.HasSuffix(body, "/") {
		r.dirOnly = true
		body = strings.TrimSuffix(body, "/")
	}

	// A separator anywhere in the body roots the pattern at the scan root;
	// without one it matches the basename at any depth.
	if strings.HasPrefix(body, "/") {
		r.anchored = true
		body = strings.TrimPrefix(body, "/")
	} else if strings.Contains(body, "/") {
		r.anchored = true
	}

	if body == "" {
		return nil, errors.New("empty pattern")
	}

	reStr, err := globToRegex(body)
	if err != nil {
		return nil, err
	}
	if r.anchored {
		reStr = "^" + reStr + "$"
	} else {
		reStr = "(^|/)" + reStr + "$"
	}

	re, err := regexp.Compile(reStr)
	if err != nil {
		return nil, err
	}
	r.re = re
	return r, nil
}

// matches tests one root-relative path against this rule.
func (r *rule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	return r.re.MatchString(rel)
}

// globToRegex converts a glob pattern body to a regex string.
//
//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func globToRegex(pattern string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** matches anything including /
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				// * matches anything except /
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			// Character class — pass through to regex.
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				return "", errors.New("unterminated character class")
			}
			cls := pattern[i+1 : j]
			// Convert ! to ^ for negation.
			if strings.HasPrefix(cls, "!") {
				cls = "^" + cls[1:]
			}
			b.WriteString("[" + cls + "]")
			i = j + 1
		case '\\':
			if i+1 >= len(pattern) {
				return "", errors.New("trailing backslash")
			}
			b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
			i += 2
		case '.', '(', ')', '+', '{', '}', '^', '$', '|':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
