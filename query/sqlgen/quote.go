package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

var plainIdentifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Quoter quotes table and column names with a fixed delimiter.
type Quoter struct {
	delim byte
}

// NewQuoter creates a Quoter that wraps identifiers in delim.
func NewQuoter(delim byte) Quoter {
	return Quoter{delim: delim}
}

// Delimiter returns the quoting character.
func (q Quoter) Delimiter() byte {
	return q.delim
}

// Quote quotes a table or column reference.
//
// Accepted forms:
//
//	id            -> "id"
//	*             -> *
//	posts.id      -> "posts"."id"
//	posts.*       -> "posts".*
//	id AS post_id -> "id" AS post_id
//	created DESC  -> "created" DESC
//
// Anything else, such as function calls, fails with ErrInvalidIdentifier.
func (q Quoter) Quote(identifier string) (string, error) {
	if identifier == "*" {
		return identifier, nil
	}

	if plainIdentifier.MatchString(identifier) {
		return q.wrap(identifier), nil
	}

	// Aliased form: only the leading token is an identifier.
	if i := strings.IndexAny(identifier, " \t\n"); i > 0 {
		head, err := q.Quote(identifier[:i])
		if err != nil {
			return "", err
		}
		return head + identifier[i:], nil
	}

	if i := strings.IndexByte(identifier, '.'); i > 0 && i < len(identifier)-1 {
		qualifier, err := q.Quote(identifier[:i])
		if err != nil {
			return "", err
		}
		if qualifier == "*" {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
		}
		column, err := q.Quote(identifier[i+1:])
		if err != nil {
			return "", err
		}
		return qualifier + "." + column, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
}

// QuoteColumn quotes a plain or qualified column reference such as id or
// posts.id. Aliases, sort directions and wildcards are rejected.
func (q Quoter) QuoteColumn(identifier string) (string, error) {
	if identifier == "" || strings.ContainsAny(identifier, " \t\r\n") || strings.HasSuffix(identifier, "*") {
		return "", fmt.Errorf("%w: %q is not a column reference", ErrInvalidIdentifier, identifier)
	}
	return q.Quote(identifier)
}

// QuoteAll quotes every identifier in order.
func (q Quoter) QuoteAll(identifiers []string) ([]string, error) {
	quoted := make([]string, len(identifiers))
	for i, ident := range identifiers {
		s, err := q.Quote(ident)
		if err != nil {
			return nil, err
		}
		quoted[i] = s
	}
	return quoted, nil
}

func (q Quoter) wrap(name string) string {
	d := string(q.delim)
	return d + strings.ReplaceAll(name, d, d+d) + d
}
