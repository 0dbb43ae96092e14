package application

import (
	"regexp"
	"strings"
)

// commentRe matches /* block */ and // line comments, remembering whether the
// comment starts or ends a line.
var commentRe = regexp.MustCompile(`(?sm)(^)?[^\S\n]*/(?:\*(.*?)\*/[^\S\n]*|/[^\n]*)($)?`)

// StripComments removes block, // and -- comments from a statement and joins the
// remaining lines with single spaces.
func StripComments(query string) string {
	return stripLineComments(stripBlockComments(query))
}

func stripBlockComments(query string) string {
	var b strings.Builder
	last := 0
	for _, m := range commentRe.FindAllStringSubmatchIndex(query, -1) {
		b.WriteString(query[last:m[0]])
		b.WriteString(blockReplacement(query, m))
		last = m[1]
	}
	b.WriteString(query[last:])
	return b.String()
}

// blockReplacement decides what a matched comment is replaced with.
// m holds the submatch indexes for (start)(body)(end).
func blockReplacement(query string, m []int) string {
	startMatched := m[2] >= 0
	bodyMatched := m[4] >= 0
	endMatched := m[6] >= 0

	switch {
	case !bodyMatched:
		// "//" comment
		return ""
	case startMatched || endMatched:
		// block comment at the start or end of a line
		return ""
	case strings.Contains(query[m[4]:m[5]], "\n"):
		return "\n"
	default:
		return " "
	}
}

func stripLineComments(query string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRightFunc(query, isSpace), "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
