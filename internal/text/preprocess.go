package text

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule is a single substitution applied to every input line before chunking.
// Pattern is a regular expression; Replacement may reference capture groups
// using $1 syntax.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// Preprocessor applies an ordered sequence of substitution rules to text
// lines. Rules are applied in the order they were supplied, so overlapping
// patterns behave deterministically.
type Preprocessor struct {
	rules []compiledRule
}

// NewPreprocessor compiles the given rules. An invalid pattern fails here,
// at configuration time, never during line processing.
func NewPreprocessor(rules []Rule) (*Preprocessor, error) {
	p := &Preprocessor{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		pattern, replacement, err := expandWordBoundaries(r.Pattern, r.Replacement)
		if err != nil {
			return nil, fmt.Errorf("invalid substitution pattern %q: %w", r.Pattern, err)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid substitution pattern %q: %w", r.Pattern, err)
		}
		p.rules = append(p.rules, compiledRule{re: re, replacement: replacement})
	}
	return p, nil
}

// Apply runs every rule against the line and returns the substituted result.
// It has no side effects and is safe for concurrent use.
func (p *Preprocessor) Apply(line string) string {
	for _, r := range p.rules {
		line = r.re.ReplaceAllString(line, r.replacement)
	}
	return line
}

// Go's \b assertion only recognizes ASCII word characters, so a rule like
// `\bист\.` would never fire against Cyrillic text. A leading or trailing
// \b is rewritten into a Unicode-aware alternation that captures the
// adjacent character and re-emits it through the replacement.
const (
	leadBoundary  = `(^|[^\p{L}\p{N}_])`
	trailBoundary = `($|[^\p{L}\p{N}_])`
)

func expandWordBoundaries(pattern, replacement string) (string, string, error) {
	inner := pattern
	lead := strings.HasPrefix(inner, `\b`)
	if lead {
		inner = inner[2:]
	}
	trail := hasTrailingBoundary(inner)
	if trail {
		inner = inner[:len(inner)-2]
	}
	if containsWordBoundary(inner) {
		return "", "", fmt.Errorf(`\b is only supported at the start or end of a pattern`)
	}
	if !lead && !trail {
		return pattern, replacement, nil
	}

	re, err := regexp.Compile(inner)
	if err != nil {
		return "", "", err
	}
	groups := re.NumSubexp()

	if lead {
		inner = leadBoundary + inner
		replacement = "${1}" + shiftGroupRefs(replacement, 1)
	}
	if trail {
		k := groups + 1
		if lead {
			k++
		}
		inner += trailBoundary
		replacement += fmt.Sprintf("${%d}", k)
	}
	return inner, replacement, nil
}

// hasTrailingBoundary reports whether s ends in an unescaped \b.
func hasTrailingBoundary(s string) bool {
	if !strings.HasSuffix(s, `\b`) {
		return false
	}
	n := 0
	for i := len(s) - 3; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

// containsWordBoundary reports whether s contains an unescaped \b sequence.
func containsWordBoundary(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '\\' {
			continue
		}
		if s[i+1] == 'b' {
			return true
		}
		i++
	}
	return false
}

// shiftGroupRefs renumbers every numeric $n or ${n} reference in a
// replacement template by delta, leaving named references and $$ intact.
func shiftGroupRefs(repl string, delta int) string {
	var b strings.Builder
	for i := 0; i < len(repl); {
		if repl[i] != '$' {
			b.WriteByte(repl[i])
			i++
			continue
		}
		if i+1 < len(repl) && repl[i+1] == '$' {
			b.WriteString("$$")
			i += 2
			continue
		}
		if i+1 < len(repl) && repl[i+1] == '{' {
			if j := strings.IndexByte(repl[i+2:], '}'); j >= 0 {
				if n, err := strconv.Atoi(repl[i+2 : i+2+j]); err == nil {
					fmt.Fprintf(&b, "${%d}", n+delta)
					i += j + 3
					continue
				}
			}
			b.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		for j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
			j++
		}
		if j > i+1 {
			n, _ := strconv.Atoi(repl[i+1 : j])
			fmt.Fprintf(&b, "${%d}", n+delta)
			i = j
			continue
		}
		b.WriteByte('$')
		i++
	}
	return b.String()
}
