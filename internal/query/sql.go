package query

import (
	"fmt"
	"strings"
)

// Column names of the documents relation referenced by rendered criteria.
const (
	colOwner     = "user_id"
	colWorkspace = "workspace_id"
	colKind      = "kind"
	colTitle     = "title"
)

// SQL renders the criteria as a WHERE fragment with pgx positional
// parameters starting at $1. The fragment never comes back empty: criteria
// matching everything render as TRUE, criteria matching nothing as FALSE.
func SQL(c Criteria) (string, []any) {
	return SQLFrom(c, 1)
}

// SQLFrom renders the criteria with positional parameters starting at the
// given index, for callers that already bound earlier arguments.
func SQLFrom(c Criteria, start int) (string, []any) {
	b := &sqlBuilder{next: start}
	clause := b.render(c)
	return clause, b.args
}

type sqlBuilder struct {
	args []any
	next int
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	p := fmt.Sprintf("$%d", b.next)
	b.next++
	return p
}

func (b *sqlBuilder) render(c Criteria) string {
	switch n := c.(type) {
	case nil:
		return "TRUE"
	case All:
		return "TRUE"
	case And:
		return b.renderJunction([]Criteria(n), " AND ", "TRUE")
	case Or:
		return b.renderJunction([]Criteria(n), " OR ", "FALSE")
	case OwnerIs:
		return fmt.Sprintf("%s = %s", colOwner, b.bind(n.User.String()))
	case OwnerIn:
		if len(n.Users) == 0 {
			return "FALSE"
		}
		placeholders := make([]string, len(n.Users))
		for i, u := range n.Users {
			placeholders[i] = b.bind(u.String())
		}
		return fmt.Sprintf("%s IN (%s)", colOwner, strings.Join(placeholders, ", "))
	case WorkspaceIn:
		return b.renderWorkspaceIn(n)
	case KindIs:
		return fmt.Sprintf("%s = %s", colKind, b.bind(string(n.Kind)))
	case TitleContains:
		return fmt.Sprintf("%s ILIKE %s", colTitle, b.bind("%"+escapeLike(n.Text)+"%"))
	default:
		// Unknown nodes must not silently widen the result set.
		return "FALSE"
	}
}

func (b *sqlBuilder) renderJunction(children []Criteria, sep, empty string) string {
	if len(children) == 0 {
		return empty
	}
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = "(" + b.render(child) + ")"
	}
	return strings.Join(parts, sep)
}

func (b *sqlBuilder) renderWorkspaceIn(n WorkspaceIn) string {
	var parts []string
	if len(n.IDs) > 0 {
		placeholders := make([]string, len(n.IDs))
		for i, id := range n.IDs {
			placeholders[i] = b.bind(id)
		}
		parts = append(parts, fmt.Sprintf("%s IN (%s)", colWorkspace, strings.Join(placeholders, ", ")))
	}
	if n.Unassigned {
		parts = append(parts, colWorkspace+" IS NULL")
	}
	if len(parts) == 0 {
		return "FALSE"
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
