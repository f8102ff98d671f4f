// Package store defines the persistence interfaces consumed by the
// access-control services. Implementations live in the db (Postgres) and
// inmemory subpackages.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/query"
)

// PermissionStore persists permissions and their grants to users and groups.
// Grant and revoke operations are idempotent.
type PermissionStore interface {
	// CreatePermission inserts a permission. Returns NotUniqueError when the
	// codename/content-type pair already exists.
	CreatePermission(ctx context.Context, perm model.Permission) (model.Permission, error)
	GetPermissionByID(ctx context.Context, id uuid.UUID) (model.Permission, error)
	GetPermissionByCodename(ctx context.Context, codename string) (model.Permission, error)
	// ListPermissionsByPrefix returns the permissions of a content type whose
	// codename starts with the given prefix.
	ListPermissionsByPrefix(ctx context.Context, contentType, codenamePrefix string) ([]model.Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error

	GrantToUser(ctx context.Context, permID uuid.UUID, user model.UserID) error
	RevokeFromUser(ctx context.Context, permID uuid.UUID, user model.UserID) error
	GrantToGroup(ctx context.Context, permID, groupID uuid.UUID) error
	RevokeFromGroup(ctx context.Context, permID, groupID uuid.UUID) error

	// PermissionsForUser returns ids of matching permissions reachable by the
	// user, directly or through group membership.
	PermissionsForUser(ctx context.Context, user model.UserID, contentType, codenamePrefix string) ([]uuid.UUID, error)
	// PermissionsForGroup returns ids of matching permissions granted to the group.
	PermissionsForGroup(ctx context.Context, groupID uuid.UUID, contentType, codenamePrefix string) ([]uuid.UUID, error)
	// UserHoldsPermission reports whether the user holds the permission,
	// directly or through group membership.
	UserHoldsPermission(ctx context.Context, user model.UserID, permID uuid.UUID) (bool, error)
	GroupHoldsPermission(ctx context.Context, groupID, permID uuid.UUID) (bool, error)

	UsersWithPermission(ctx context.Context, permID uuid.UUID) ([]model.UserID, error)
	GroupsWithPermission(ctx context.Context, permID uuid.UUID) ([]model.Group, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	CreateGroup(ctx context.Context, group model.Group) (model.Group, error)
	GetGroupByName(ctx context.Context, name string) (model.Group, error)
	// GroupsByNameAndPermission returns groups matching the name that hold a
	// permission with the given codename.
	GroupsByNameAndPermission(ctx context.Context, name, permissionCodename string) ([]model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	GroupsForUser(ctx context.Context, user model.UserID) ([]model.Group, error)
	AddGroupMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error
	RemoveGroupMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error
}

// WorkspaceStore persists workspaces.
type WorkspaceStore interface {
	// CreateWorkspace inserts a workspace. Returns NotUniqueError when the
	// owner already has a workspace with the same title.
	CreateWorkspace(ctx context.Context, ws model.Workspace) (model.Workspace, error)
	SaveWorkspace(ctx context.Context, ws model.Workspace) error
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error
	GetWorkspaceByID(ctx context.Context, id uuid.UUID) (model.Workspace, error)
	GetGlobalWorkspace(ctx context.Context) (model.Workspace, error)

	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	ListWorkspacesByOwner(ctx context.Context, owner model.UserID) ([]model.Workspace, error)
	ListPublicWorkspaces(ctx context.Context) ([]model.Workspace, error)

	// ListWorkspacesWithReadAccess returns workspaces owned by the user,
	// public, or carrying one of the given read permissions.
	ListWorkspacesWithReadAccess(ctx context.Context, user model.UserID, readPermIDs []uuid.UUID) ([]model.Workspace, error)
	// ListWorkspacesWithWriteAccess returns workspaces owned by the user or
	// carrying one of the given write permissions. Public does not grant write.
	ListWorkspacesWithWriteAccess(ctx context.Context, user model.UserID, writePermIDs []uuid.UUID) ([]model.Workspace, error)
}

// DocumentStore persists documents of every kind.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc model.Document) (model.Document, error)
	SaveDocument(ctx context.Context, doc model.Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (model.Document, error)
	// ListDocuments returns documents matching the criteria, sorted by the
	// order spec ("field" ascending, "-field" descending).
	ListDocuments(ctx context.Context, criteria query.Criteria, order string) ([]model.Document, error)
}

// Store aggregates all persistence interfaces backing the server.
type Store interface {
	PermissionStore
	GroupStore
	WorkspaceStore
	DocumentStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
