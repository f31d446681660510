// Package filterlang parses a small textual notation for filters, column
// assignments and table joins into sqlgen values.
//
//	status in ("draft", "review") or (author = "joe" and created >= "2020-01-01")
//	title = "hello", views += 1
//	posts p left join users u on p.author_id = u.id
package filterlang

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|LIKE|IN|TRUE|FALSE|NULL|JOIN|LEFT|RIGHT|INNER|OUTER|FULL|CROSS|ON|AS)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:''|[^'])*'`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Operator", Pattern: `<>|!=|<=|>=|\+=|-=|[=<>]`},
	{Name: "Punct", Pattern: `[(),.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type exprNode struct {
	Head *termNode   `@@`
	Tail []*tailNode `@@*`
}

type tailNode struct {
	Logic string    `@("AND" | "OR")`
	Term  *termNode `@@`
}

type termNode struct {
	Group *exprNode `  "(" @@ ")"`
	Cond  *condNode `| @@`
}

type condNode struct {
	Column string     `@Ident ( @"." @Ident )*`
	Not    bool       `@"NOT"?`
	Op     string     `@("LIKE" | "IN" | Operator)`
	Value  *valueNode `@@`
}

type valueNode struct {
	List   []*scalarNode `  "(" @@ ( "," @@ )* ")"`
	Scalar *scalarNode   `| @@`
	Column string        `| @Ident ( @"." @Ident )*`
}

type scalarNode struct {
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @("TRUE" | "FALSE")`
	Null   bool    `| @"NULL"`
}

type assignmentsNode struct {
	Items []*assignNode `@@ ( "," @@ )*`
}

type assignNode struct {
	Column string      `@Ident`
	Op     string      `@("=" | "+=" | "-=")`
	Value  *scalarNode `@@`
}

type tablesNode struct {
	Base  *tableRef   `@@`
	Joins []*joinNode `@@*`
}

type tableRef struct {
	Name  string `@Ident`
	Alias string `( "AS"? @Ident )?`
}

type joinNode struct {
	Kind  []string  `@("INNER" | "LEFT" | "RIGHT" | "FULL" | "CROSS")? @"OUTER"? @"JOIN"`
	Table *tableRef `@@`
	On    *exprNode `( "ON" @@ )?`
}

var (
	options = []participle.Option{
		participle.Lexer(filterLexer),
		participle.Elide("Whitespace"),
		participle.CaseInsensitive("Keyword"),
		participle.UseLookahead(2),
	}

	filterParser      = participle.MustBuild[exprNode](options...)
	assignmentsParser = participle.MustBuild[assignmentsNode](options...)
	tablesParser      = participle.MustBuild[tablesNode](options...)
)
