// Package script splits SQL script files into individual statements.
package script

import "strings"

// Split breaks src into statements on semicolons. Semicolons inside string
// literals, quoted identifiers and comments do not terminate a statement.
// Comments are dropped and empty statements are skipped.
func Split(src string) []string {
	var (
		stmts []string
		cur   strings.Builder
		quote byte
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if quote != 0 {
			cur.WriteByte(ch)
			if ch == quote {
				// doubled quote escapes itself
				if i+1 < len(src) && src[i+1] == quote {
					cur.WriteByte(src[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return stmts
}
