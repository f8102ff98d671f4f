package query

import (
	"strings"

	"github.com/docuvault/docuvault-server/internal/model"
)

// Matches evaluates the criteria against a document in process. The
// in-memory store filters with this evaluator, which keeps it aligned with
// the SQL and BSON renderings of the same tree.
func Matches(c Criteria, doc model.Document) bool {
	switch n := c.(type) {
	case nil:
		return true
	case All:
		return true
	case And:
		for _, child := range n {
			if !Matches(child, doc) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range n {
			if Matches(child, doc) {
				return true
			}
		}
		return false
	case OwnerIs:
		return doc.Owner == n.User
	case OwnerIn:
		for _, u := range n.Users {
			if doc.Owner == u {
				return true
			}
		}
		return false
	case WorkspaceIn:
		if doc.Workspace == nil {
			return n.Unassigned
		}
		for _, id := range n.IDs {
			if *doc.Workspace == id {
				return true
			}
		}
		return false
	case KindIs:
		return doc.Kind == n.Kind
	case TitleContains:
		return strings.Contains(strings.ToLower(doc.Title), strings.ToLower(n.Text))
	default:
		return false
	}
}
