package sqlgen

import (
	"strconv"
	"strings"
)

// Dialect describes the SQL flavour spoken by a database family.
type Dialect struct {
	// Name is the family identifier ("mysql", "pgsql", "sqlite").
	Name string
	// Delimiter quotes identifiers.
	Delimiter byte
	// Numbered is true when the driver expects $1, $2, ... placeholders.
	Numbered bool
}

// Built-in dialects.
var (
	MySQL    = Dialect{Name: "mysql", Delimiter: '`'}
	Postgres = Dialect{Name: "pgsql", Delimiter: '"', Numbered: true}
	SQLite   = Dialect{Name: "sqlite", Delimiter: '"'}
)

// Quoter returns an identifier quoter for the dialect.
func (d Dialect) Quoter() Quoter {
	return NewQuoter(d.Delimiter)
}

// Compiler returns a statement compiler for the dialect.
func (d Dialect) Compiler() *Compiler {
	return NewCompiler(d.Quoter())
}

// Rebind rewrites ? placeholders into the form the driver expects.
// Question marks inside quoted identifiers, string literals, comments and
// dollar-quoted strings are kept.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			// A doubled quote inside a quoted run is an escape and simply
			// toggles twice.
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i - 1
			}
			b.WriteString(query[i : i+end+1])
			i += end
			continue
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end+4])
			i += end + 3
			continue
		case c == '$':
			if end := dollarQuoted(query[i:]); end > 0 {
				b.WriteString(query[i : i+end])
				i += end - 1
				continue
			}
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// dollarQuoted returns the length of the dollar-quoted string ($$...$$ or
// $tag$...$tag$) at the start of s, or 0 when s does not start with one.
// An unterminated string runs to the end of s.
func dollarQuoted(s string) int {
	j := strings.IndexByte(s[1:], '$')
	if j < 0 {
		return 0
	}
	tag := s[1 : j+1]
	for k := 0; k < len(tag); k++ {
		c := tag[k]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (k == 0 || c < '0' || c > '9') {
			return 0
		}
	}

	delim := s[:j+2]
	end := strings.Index(s[len(delim):], delim)
	if end < 0 {
		return len(s)
	}
	return len(delim) + end + len(delim)
}
