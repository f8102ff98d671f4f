// Package model defines the core entities shared by the access-control
// services: principals, groups, permissions, workspaces and documents.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserID identifies a user managed by the external authentication system.
// It is opaque to this server and compared by value only.
type UserID string

// IsZero reports whether the id is unset.
func (u UserID) IsZero() bool {
	return u == ""
}

func (u UserID) String() string {
	return string(u)
}

// Principal is the acting identity attached to every request. Identity
// verification happens upstream; the server only consumes the resolved
// attributes.
type Principal struct {
	ID        UserID
	Superuser bool
	Staff     bool
	Anonymous bool
}

// AnonymousPrincipal returns the principal used for unauthenticated requests.
func AnonymousPrincipal() Principal {
	return Principal{Anonymous: true}
}

// Group is a named collection of users sharing granted permissions.
type Group struct {
	ID   uuid.UUID
	Name string
}

// Well-known group names. The anonymous group carries the grants applied to
// unauthenticated requests; the default group is the baseline for registered
// users.
const (
	AnonymousGroupName = "anonymous"
	DefaultGroupName   = "default"
)

// Permission is a named grantable capability, assignable to users or groups.
// The ContentType/Codename pair is unique.
type Permission struct {
	ID          uuid.UUID
	Name        string
	Codename    string
	ContentType string
}

// Label returns the fully qualified permission label used for capability
// checks ("namespace.codename").
func (p Permission) Label() string {
	return p.ContentType + "." + p.Codename
}

// Workspace is a shareable container for documents. A workspace with no owner
// and the public flag set is the global workspace.
type Workspace struct {
	ID          uuid.UUID
	Title       string
	Owner       UserID // zero value marks the global workspace
	IsPublic    bool
	ReadPermID  uuid.UUID
	WritePermID uuid.UUID
}

// IsGlobal reports whether this is the distinguished global workspace.
func (w Workspace) IsGlobal() bool {
	return w.IsPublic && w.Owner.IsZero()
}

// IsOwnedBy reports whether the given user owns the workspace.
func (w Workspace) IsOwnedBy(id UserID) bool {
	return !w.Owner.IsZero() && w.Owner == id
}

// DocumentKind tags the variant of an owned resource.
type DocumentKind string

// Document kinds subject to access control.
const (
	KindData            DocumentKind = "data"
	KindTemplate        DocumentKind = "template"
	KindBlob            DocumentKind = "blob"
	KindUserPreferences DocumentKind = "user_preferences"
)

// SupportsWorkspace reports whether documents of this kind can be placed in a
// workspace. User preferences are strictly private to their owner.
func (k DocumentKind) SupportsWorkspace() bool {
	return k != KindUserPreferences
}

// PublishCodename returns the codename of the capability required to publish
// a document of this kind, or "" when the kind cannot be published.
func (k DocumentKind) PublishCodename() string {
	switch k {
	case KindData:
		return PublishDataCodename
	case KindTemplate:
		return PublishTemplateCodename
	case KindBlob:
		return PublishBlobCodename
	default:
		return ""
	}
}

// System capability codenames, created at bootstrap.
const (
	PublishDataCodename     = "publish_data"
	PublishTemplateCodename = "publish_template"
	PublishBlobCodename     = "publish_blob"
)

// Document is any owned, optionally workspace-scoped resource. A nil
// Workspace means the document is private to its owner.
type Document struct {
	ID        uuid.UUID
	Kind      DocumentKind
	Title     string
	Owner     UserID
	Workspace *uuid.UUID
	Content   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InWorkspace reports whether the document is assigned to the given workspace.
func (d Document) InWorkspace(id uuid.UUID) bool {
	return d.Workspace != nil && *d.Workspace == id
}

// IsOwnedBy reports whether the given user owns the document.
func (d Document) IsOwnedBy(id UserID) bool {
	return !id.IsZero() && d.Owner == id
}
