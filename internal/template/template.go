// Package template implements the command substitution language used to
// build the literal shell command for a command check: tokens of the
// form :::dotted.path::: or :::dotted.path|default::: are replaced with
// values looked up in the client attribute tree.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`:::([^:|]+)(?:\|([^:]*))?:::`)

// Lookup resolves a dotted path against a settings tree. It returns the
// leaf value and whether it was found and non-nil — the same contract
// agent.Settings.Lookup exposes, so callers can pass that method directly.
type Lookup func(dottedPath string) (any, bool)

// Substitute replaces every token in command using lookup, falling back
// to a token's literal default when the path doesn't resolve. It returns
// the substituted command and the list of tokens (by dotted path) that
// had neither a resolved value nor a default, in order of appearance.
//
// A command with no tokens is returned unchanged with a nil/empty
// unmatched list.
func Substitute(command string, lookup Lookup) (string, []string) {
	var unmatched []string

	result := tokenPattern.ReplaceAllStringFunc(command, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		path, hasDefault, def := m[1], strings.Contains(token, "|"), m[2]

		if value, ok := lookup(path); ok {
			return stringify(value)
		}
		if hasDefault {
			return def
		}
		unmatched = append(unmatched, path)
		return token
	})

	return result, unmatched
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
