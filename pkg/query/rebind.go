package query

import (
	"strconv"
	"strings"
)

// Rebind rewrites ? placeholders into the dialect's style. Question marks in
// single quoted literals are left alone.
func Rebind(dialect Dialect, stmt string) string {
	if dialect != Postgres {
		return stmt
	}
	var (
		sb      strings.Builder
		n       int
		literal bool
	)
	sb.Grow(len(stmt) + 8)
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case c == '\'':
			literal = !literal
			sb.WriteByte(c)
		case c == '?' && !literal:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
