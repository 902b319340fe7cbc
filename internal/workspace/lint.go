package workspace

import (
	"fmt"
	"regexp"
)

// Required attributes a workspace descriptor must define. The platform
// ignores files missing them, which surfaces as a silently dead
// workspace, so validation flags each one.
var requiredAttrs = []struct {
	name string
	re   *regexp.Regexp
}{
	{"channel", regexp.MustCompile(`(?m)^\s*channel\s*=`)},
	{"packages", regexp.MustCompile(`(?m)^\s*packages\s*=`)},
	{"idx", regexp.MustCompile(`(?m)^\s*idx\s*=`)},
	{"idx.workspace.onCreate", regexp.MustCompile(`(?m)^\s*onCreate\s*=`)},
	{"idx.workspace.onStart", regexp.MustCompile(`(?m)^\s*onStart\s*=`)},
}

var emptyChannelRe = regexp.MustCompile(`(?m)^\s*channel\s*=\s*""`)

// Lint runs structural checks over a descriptor and returns one
// message per problem. It checks shape, not Nix semantics: balanced
// delimiters and the attributes the platform requires.
func Lint(src []byte) []string {
	var problems []string

	for _, attr := range requiredAttrs {
		if !attr.re.Match(src) {
			problems = append(problems, fmt.Sprintf("missing required attribute %s", attr.name))
		}
	}
	if emptyChannelRe.Match(src) {
		problems = append(problems, "channel is empty")
	}

	problems = append(problems, checkDelimiters(src)...)
	return problems
}

// checkDelimiters scans for unbalanced braces and brackets, skipping
// string literals and line comments.
func checkDelimiters(src []byte) []string {
	var problems []string
	var braces, brackets, parens int
	inString := false
	inComment := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if inComment {
			if c == '\n' {
				inComment = false
			}
			continue
		}
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '#':
			inComment = true
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		case '(':
			parens++
		case ')':
			parens--
		}
	}

	if inString {
		problems = append(problems, "unterminated string literal")
	}
	if braces != 0 {
		problems = append(problems, fmt.Sprintf("unbalanced braces (%+d)", braces))
	}
	if brackets != 0 {
		problems = append(problems, fmt.Sprintf("unbalanced brackets (%+d)", brackets))
	}
	if parens != 0 {
		problems = append(problems, fmt.Sprintf("unbalanced parentheses (%+d)", parens))
	}
	return problems
}
