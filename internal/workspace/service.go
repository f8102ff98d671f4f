// Package workspace implements the workspace model: a shareable container
// for documents with an owner, a public flag and an associated read/write
// permission pair.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/config"
	"github.com/docuvault/docuvault-server/internal/groups"
	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/perms"
	"github.com/docuvault/docuvault-server/internal/store"
)

// GlobalWorkspaceTitle is reserved for the distinguished global workspace.
const GlobalWorkspaceTitle = "Global Public Workspace"

// Service implements workspace operations over a WorkspaceStore, delegating
// permission handling to the permission service.
type Service struct {
	store  store.WorkspaceStore
	perms  *perms.Service
	groups *groups.Registry
	cfg    *config.Config
}

// NewService creates a workspace service.
func NewService(st store.WorkspaceStore, permSvc *perms.Service, groupReg *groups.Registry, cfg *config.Config) *Service {
	return &Service{store: st, perms: permSvc, groups: groupReg, cfg: cfg}
}

// CreateAndSave creates a workspace together with its read and write
// permissions. The permissions are created first; when the workspace insert
// fails they are rolled back best-effort so no orphaned permission rows are
// left behind, and the original failure is surfaced.
func (s *Service) CreateAndSave(ctx context.Context, title string, owner model.UserID, isPublic bool) (model.Workspace, error) {
	if strings.TrimSpace(title) == "" {
		return model.Workspace{}, model.NewModelError("title must not be empty or only whitespaces")
	}
	if !owner.IsZero() && strings.EqualFold(strings.TrimSpace(title), GlobalWorkspaceTitle) {
		return model.Workspace{}, model.NewModelError(fmt.Sprintf("you can't create a workspace with the title: %s", title))
	}

	readPerm, err := s.perms.CreateReadPerm(ctx, title, owner)
	if err != nil {
		return model.Workspace{}, err
	}
	writePerm, err := s.perms.CreateWritePerm(ctx, title, owner)
	if err != nil {
		s.rollbackPermission(ctx, readPerm.ID)
		return model.Workspace{}, err
	}

	ws, err := s.store.CreateWorkspace(ctx, model.Workspace{
		Title:       title,
		Owner:       owner,
		IsPublic:    isPublic,
		ReadPermID:  readPerm.ID,
		WritePermID: writePerm.ID,
	})
	if err != nil {
		s.rollbackPermission(ctx, readPerm.ID)
		s.rollbackPermission(ctx, writePerm.ID)
		if model.IsNotUniqueError(err) {
			return model.Workspace{}, err
		}
		return model.Workspace{}, model.WrapModelError("problem while creating the workspace", err)
	}
	return ws, nil
}

// rollbackPermission deletes a permission created during a failed workspace
// save. The delete is best-effort: its failure must not mask the dominant
// error, but the anomaly stays observable in the logs.
func (s *Service) rollbackPermission(ctx context.Context, permID uuid.UUID) {
	if err := s.perms.DeletePermission(ctx, permID); err != nil {
		slog.Warn("Failed to roll back workspace permission", "permission_id", permID, "error", err)
	}
}

// SetTitle renames the workspace. Owner only, superuser bypass.
func (s *Service) SetTitle(ctx context.Context, ws model.Workspace, newTitle string, principal model.Principal) error {
	if !principal.Superuser {
		if err := checkIsOwner(ws, principal); err != nil {
			return err
		}
	}
	if strings.TrimSpace(newTitle) == "" {
		return model.NewModelError("title must not be empty or only whitespaces")
	}
	ws.Title = newTitle
	return s.store.SaveWorkspace(ctx, ws)
}

// SetPublic makes the workspace public. The caller must own the workspace
// and hold the publish capability (superuser bypass), and the deployment must
// allow publishing workspaces.
func (s *Service) SetPublic(ctx context.Context, ws model.Workspace, principal model.Principal) error {
	if !principal.Superuser {
		if err := checkIsOwner(ws, principal); err != nil {
			return err
		}
		label := ContentTypeLabel(model.PublishDataCodename)
		held, err := s.perms.HasPermission(ctx, principal, label)
		if err != nil {
			return err
		}
		if !held {
			return model.NewAccessControlError("the user doesn't have enough rights to publish this workspace")
		}
	}
	if !s.cfg.CanSetWorkspacePublic {
		return model.NewModelError("the deployment does not allow setting workspaces public")
	}
	ws.IsPublic = true
	return s.store.SaveWorkspace(ctx, ws)
}

// SetPrivate makes the workspace private again. Owner only (superuser
// bypass); the global workspace can never be privatized, and the deployment
// switch may forbid turning public data private.
func (s *Service) SetPrivate(ctx context.Context, ws model.Workspace, principal model.Principal) error {
	if !principal.Superuser {
		if err := checkIsOwner(ws, principal); err != nil {
			return err
		}
	}
	if ws.IsGlobal() {
		return model.NewModelError("you can't change the state of the global workspace")
	}
	if !s.cfg.CanSetPublicDataToPrivate {
		return model.NewModelError("the deployment does not allow setting public data back to private")
	}
	ws.IsPublic = false
	return s.store.SaveWorkspace(ctx, ws)
}

// Delete removes the workspace and cascades to its permission pair. Owner
// only (superuser bypass); a public workspace cannot be deleted when the
// deployment forbids un-publishing; the global workspace cannot be deleted by
// anyone.
func (s *Service) Delete(ctx context.Context, ws model.Workspace, principal model.Principal) error {
	if !principal.Superuser {
		if err := checkIsOwner(ws, principal); err != nil {
			return err
		}
		if ws.IsPublic && !s.cfg.CanSetPublicDataToPrivate {
			return model.NewAccessControlError("the workspace can not be deleted")
		}
	}
	if ws.IsGlobal() {
		return model.NewModelError("the global workspace can not be deleted")
	}

	// The workspace row goes first: it references its permission pair.
	if err := s.store.DeleteWorkspace(ctx, ws.ID); err != nil {
		return err
	}
	s.rollbackPermission(ctx, ws.ReadPermID)
	s.rollbackPermission(ctx, ws.WritePermID)
	return nil
}

// GetByID returns the workspace with the given id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (model.Workspace, error) {
	return s.store.GetWorkspaceByID(ctx, id)
}

// GetByIDList resolves a list of workspace ids.
func (s *Service) GetByIDList(ctx context.Context, ids []uuid.UUID) ([]model.Workspace, error) {
	out := make([]model.Workspace, 0, len(ids))
	for _, id := range ids {
		ws, err := s.store.GetWorkspaceByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// GetAll returns every workspace.
func (s *Service) GetAll(ctx context.Context) ([]model.Workspace, error) {
	return s.store.ListWorkspaces(ctx)
}

// GetAllByOwner returns the workspaces owned by the user.
func (s *Service) GetAllByOwner(ctx context.Context, owner model.UserID) ([]model.Workspace, error) {
	return s.store.ListWorkspacesByOwner(ctx, owner)
}

// GetAllPublic returns every public workspace.
func (s *Service) GetAllPublic(ctx context.Context) ([]model.Workspace, error) {
	return s.store.ListPublicWorkspaces(ctx)
}

// GetAllOtherPublic returns public workspaces not owned by the user.
func (s *Service) GetAllOtherPublic(ctx context.Context, user model.UserID) ([]model.Workspace, error) {
	public, err := s.store.ListPublicWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Workspace
	for _, ws := range public {
		if !ws.IsOwnedBy(user) {
			out = append(out, ws)
		}
	}
	return out, nil
}

// GetNonPublicByOwner returns the private workspaces owned by the user.
func (s *Service) GetNonPublicByOwner(ctx context.Context, owner model.UserID) ([]model.Workspace, error) {
	owned, err := s.store.ListWorkspacesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	var out []model.Workspace
	for _, ws := range owned {
		if !ws.IsPublic {
			out = append(out, ws)
		}
	}
	return out, nil
}

// GetPublicByOwner returns the public workspaces owned by the user.
func (s *Service) GetPublicByOwner(ctx context.Context, owner model.UserID) ([]model.Workspace, error) {
	owned, err := s.store.ListWorkspacesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	var out []model.Workspace
	for _, ws := range owned {
		if ws.IsPublic {
			out = append(out, ws)
		}
	}
	return out, nil
}

// GetGlobalWorkspace returns the distinguished global workspace.
func (s *Service) GetGlobalWorkspace(ctx context.Context) (model.Workspace, error) {
	return s.store.GetGlobalWorkspace(ctx)
}

// EnsureGlobalWorkspace creates the global workspace when absent. Called
// once at startup.
func (s *Service) EnsureGlobalWorkspace(ctx context.Context) error {
	_, err := s.store.GetGlobalWorkspace(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}
	_, err = s.CreateAndSave(ctx, GlobalWorkspaceTitle, "", true)
	if err != nil && !model.IsNotUniqueError(err) {
		return fmt.Errorf("failed to create the global workspace: %w", err)
	}
	return nil
}

// AllWithReadAccess returns the workspaces the principal may read: owned,
// public, or carrying a read permission reachable by the principal.
func (s *Service) AllWithReadAccess(ctx context.Context, principal model.Principal) ([]model.Workspace, error) {
	permIDs, err := s.perms.AllWorkspacePermissionsUserCanRead(ctx, principal)
	if err != nil {
		return nil, err
	}
	return s.store.ListWorkspacesWithReadAccess(ctx, principal.ID, permIDs)
}

// AllWithWriteAccess returns the workspaces the principal may write to:
// owned, or carrying a write permission reachable by the principal. Being
// public grants no write access.
func (s *Service) AllWithWriteAccess(ctx context.Context, principal model.Principal) ([]model.Workspace, error) {
	permIDs, err := s.perms.AllWorkspacePermissionsUserCanWrite(ctx, principal)
	if err != nil {
		return nil, err
	}
	return s.store.ListWorkspacesWithWriteAccess(ctx, principal.ID, permIDs)
}

// AllWithReadAccessNotOwned returns readable workspaces owned by others.
func (s *Service) AllWithReadAccessNotOwned(ctx context.Context, principal model.Principal) ([]model.Workspace, error) {
	readable, err := s.AllWithReadAccess(ctx, principal)
	if err != nil {
		return nil, err
	}
	return withoutOwner(readable, principal.ID), nil
}

// AllWithWriteAccessNotOwned returns writable workspaces owned by others.
func (s *Service) AllWithWriteAccessNotOwned(ctx context.Context, principal model.Principal) ([]model.Workspace, error) {
	writable, err := s.AllWithWriteAccess(ctx, principal)
	if err != nil {
		return nil, err
	}
	return withoutOwner(writable, principal.ID), nil
}

func withoutOwner(list []model.Workspace, owner model.UserID) []model.Workspace {
	var out []model.Workspace
	for _, ws := range list {
		if !ws.IsOwnedBy(owner) {
			out = append(out, ws)
		}
	}
	return out
}

// CheckIfWorkspaceCanBeChanged reports whether the document may be moved out
// of its current workspace: documents sitting in a public workspace are
// frozen there when the deployment forbids un-publishing.
func (s *Service) CheckIfWorkspaceCanBeChanged(ctx context.Context, doc model.Document) (bool, error) {
	if doc.Workspace == nil {
		return true, nil
	}
	ws, err := s.store.GetWorkspaceByID(ctx, *doc.Workspace)
	if err != nil {
		return false, err
	}
	if ws.IsPublic && !s.cfg.CanSetPublicDataToPrivate {
		return false, nil
	}
	return true, nil
}

// ContentTypeLabel builds the fully qualified label of an application
// permission codename.
func ContentTypeLabel(codename string) string {
	return perms.ContentTypeNamespace + "." + codename
}
