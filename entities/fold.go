package entities

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s used for case-insensitive
// matching. A new Caser is created per call since Casers are not safe for
// concurrent use.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// likeEscaper escapes LIKE wildcards, backslash being the escape character
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching any folded value containing q.
// It must be used with ESCAPE '\'.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(Fold(q)) + "%"
}
