// Package query builds and renders the filter criteria used to scope
// document queries to the records a caller may read. The access rules are
// expressed once over a small criteria AST; per-backend renderers translate
// the AST for the relational store (SQL) and the document store (BSON), and
// an in-process evaluator executes it for the in-memory backend.
package query

import (
	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
)

// Criteria is a node of the filter tree.
type Criteria interface {
	isCriteria()
}

// All matches every document.
type All struct{}

// And matches documents satisfying every child criteria.
type And []Criteria

// Or matches documents satisfying at least one child criteria.
type Or []Criteria

// OwnerIs matches documents owned by the given user.
type OwnerIs struct {
	User model.UserID
}

// OwnerIn matches documents owned by any of the given users.
type OwnerIn struct {
	Users []model.UserID
}

// WorkspaceIn matches documents assigned to one of the given workspaces.
// When Unassigned is set, documents with no workspace match as well. An
// empty id list without Unassigned matches nothing.
type WorkspaceIn struct {
	IDs        []uuid.UUID
	Unassigned bool
}

// KindIs matches documents of the given kind.
type KindIs struct {
	Kind model.DocumentKind
}

// TitleContains matches documents whose title contains the given substring.
type TitleContains struct {
	Text string
}

func (All) isCriteria()           {}
func (And) isCriteria()           {}
func (Or) isCriteria()            {}
func (OwnerIs) isCriteria()       {}
func (OwnerIn) isCriteria()       {}
func (WorkspaceIn) isCriteria()   {}
func (KindIs) isCriteria()        {}
func (TitleContains) isCriteria() {}

// Conjoin combines two criteria with AND, treating nil and All as neutral
// elements.
func Conjoin(a, b Criteria) Criteria {
	if a == nil || isAll(a) {
		if b == nil {
			return All{}
		}
		return b
	}
	if b == nil || isAll(b) {
		return a
	}
	return And{a, b}
}

func isAll(c Criteria) bool {
	_, ok := c.(All)
	return ok
}
