package sqlgen

import (
	"fmt"
	"strings"
)

// Tables is an ordered table list for a SELECT. The first entry
// is the base table; later entries are join keywords or joined tables.
//
//	From("posts").Join("left join").On("users", Filter{Where("posts.author_id", "users.id")})
//
// compiles to
//
//	"posts" LEFT JOIN "users" ON ("posts"."author_id" = "users"."id")
type Tables []TableEntry

// TableEntry is one element of a Tables list.
type TableEntry interface {
	tableEntry()
}

// Table is a bare token: the base table when first, a join keyword otherwise.
type Table string

// JoinOn joins a table using a column-equality predicate.
type JoinOn struct {
	Table string
	On    Filter
}

func (Table) tableEntry()  {}
func (JoinOn) tableEntry() {}

// DefaultJoin is used when no join keyword precedes a joined table.
const DefaultJoin = "INNER JOIN"

var joinKeywords = map[string]string{
	"JOIN":             "JOIN",
	"INNER JOIN":       "INNER JOIN",
	"LEFT JOIN":        "LEFT JOIN",
	"LEFT OUTER JOIN":  "LEFT OUTER JOIN",
	"RIGHT JOIN":       "RIGHT JOIN",
	"RIGHT OUTER JOIN": "RIGHT OUTER JOIN",
	"FULL JOIN":        "FULL JOIN",
	"FULL OUTER JOIN":  "FULL OUTER JOIN",
	"CROSS JOIN":       "CROSS JOIN",
}

// JoinKeyword returns the canonical form of a join keyword.
func JoinKeyword(token string) (string, bool) {
	kw, ok := joinKeywords[strings.ToUpper(strings.Join(strings.Fields(token), " "))]
	return kw, ok
}

// From starts a table list with a base table.
func From(table string) Tables {
	return Tables{Table(table)}
}

// Join appends a join keyword for the next joined table.
func (t Tables) Join(keyword string) Tables {
	return append(t, Table(keyword))
}

// On appends a joined table.
func (t Tables) On(table string, on Filter) Tables {
	return append(t, JoinOn{Table: table, On: on})
}

// CompileTables compiles a table list into the text of a FROM
// clause. Join predicates compare columns only, so no arguments are produced.
func (c *Compiler) CompileTables(t Tables) (string, error) {
	if len(t) == 0 {
		return "", fmt.Errorf("%w: no tables given", ErrInvalidTable)
	}

	base, ok := t[0].(Table)
	if !ok || strings.TrimSpace(string(base)) == "" {
		return "", fmt.Errorf("%w: first entry must be the base table", ErrInvalidTable)
	}

	from, err := c.quoter.Quote(string(base))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(from)

	join := DefaultJoin
	for i, entry := range t[1:] {
		switch e := entry.(type) {
		case Table:
			kw, ok := JoinKeyword(string(e))
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrInvalidJoin, string(e))
			}
			join = kw

		case JoinOn:
			if strings.TrimSpace(e.Table) == "" {
				return "", fmt.Errorf("%w: entry %d has no table name", ErrInvalidTable, i+1)
			}
			table, err := c.quoter.Quote(e.Table)
			if err != nil {
				return "", err
			}

			b.WriteString(" " + join + " " + table)
			if join == "CROSS JOIN" {
				if len(e.On) > 0 {
					return "", fmt.Errorf("%w: CROSS JOIN %q takes no predicate", ErrInvalidTable, e.Table)
				}
			} else {
				if len(e.On) == 0 {
					return "", fmt.Errorf("%w: join on %q needs a predicate", ErrInvalidTable, e.Table)
				}
				var unused []interface{}
				on, err := c.compileFilter(e.On, &unused, true)
				if err != nil {
					return "", err
				}
				b.WriteString(" ON " + on)
			}
			join = DefaultJoin

		default:
			return "", fmt.Errorf("%w: entry %d has unsupported type %T", ErrInvalidTable, i+1, entry)
		}
	}

	return b.String(), nil
}
