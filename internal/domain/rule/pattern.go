package rule

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// RegexPrefix marks a pattern string as a regular expression. Anything
// without the prefix is matched as a case-insensitive literal substring.
const RegexPrefix = "regexp::"

// Guards against catastrophic backtracking in operator-authored regexes.
const matchTimeout = 250 * time.Millisecond

// Pattern is a match predicate resolved once at rule-load time: either a
// compiled regex or a lowercased literal needle. A regex that fails to
// compile degrades to a literal match on its source text so a malformed
// pattern can never take down a scrape cycle.
type Pattern struct {
	raw      string
	literal  string
	re       *regexp2.Regexp
	fallback bool
}

// Compile resolves a raw pattern string into a Pattern. It never fails.
func Compile(raw string) Pattern {
	if rest, ok := strings.CutPrefix(raw, RegexPrefix); ok {
		re, err := regexp2.Compile(rest, regexp2.IgnoreCase)
		if err != nil {
			return Pattern{raw: raw, literal: strings.ToLower(rest), fallback: true}
		}
		re.MatchTimeout = matchTimeout
		return Pattern{raw: raw, re: re}
	}
	return Pattern{raw: raw, literal: strings.ToLower(raw)}
}

// Matches evaluates the pattern against text, case-insensitively.
func (p Pattern) Matches(text string) bool {
	if p.re != nil {
		ok, err := p.re.MatchString(text)
		if err != nil {
			// Match timeout; treat as no match rather than failing the cycle.
			return false
		}
		return ok
	}
	return strings.Contains(strings.ToLower(text), p.literal)
}

// IsRegex reports whether the pattern compiled as a regular expression
func (p Pattern) IsRegex() bool {
	return p.re != nil
}

// IsFallback reports whether a regex pattern failed to compile and was
// demoted to a literal substring match.
func (p Pattern) IsFallback() bool {
	return p.fallback
}

// String returns the original pattern source
func (p Pattern) String() string {
	return p.raw
}

// Patterns is a list of patterns checked as a unit.
type Patterns []Pattern

// CompileAll resolves a list of raw pattern strings
func CompileAll(raw []string) Patterns {
	out := make(Patterns, 0, len(raw))
	for _, r := range raw {
		out = append(out, Compile(r))
	}
	return out
}

// AnyMatch reports whether any pattern in the list matches text
func (ps Patterns) AnyMatch(text string) bool {
	for _, p := range ps {
		if p.Matches(text) {
			return true
		}
	}
	return false
}
