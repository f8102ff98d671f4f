package workspace

import (
	"context"

	"github.com/docuvault/docuvault-server/internal/model"
)

// checkIsOwner fails with an AccessControlError unless the principal owns
// the workspace. Superuser bypass is the call site's responsibility.
func checkIsOwner(ws model.Workspace, principal model.Principal) error {
	if !ws.IsOwnedBy(principal.ID) {
		return model.NewAccessControlError("the user does not have the permission: the user is not the owner of this workspace")
	}
	return nil
}

// IsWorkspacePublic reports whether the workspace is public.
func IsWorkspacePublic(ws model.Workspace) bool {
	return ws.IsPublic
}

// IsWorkspaceGlobal reports whether this is the global workspace.
func IsWorkspaceGlobal(ws model.Workspace) bool {
	return ws.IsGlobal()
}

// CanUserReadWorkspace reports whether the principal may read the workspace:
// public, owned, or covered by the read-permission label.
func (s *Service) CanUserReadWorkspace(ctx context.Context, principal model.Principal, ws model.Workspace) (bool, error) {
	if ws.IsPublic {
		return true, nil
	}
	if ws.IsOwnedBy(principal.ID) {
		return true, nil
	}
	label, err := s.perms.PermissionLabel(ctx, ws.ReadPermID)
	if err != nil {
		return false, err
	}
	return s.perms.HasPermission(ctx, principal, label)
}

// CanUserWriteWorkspace reports whether the principal may write in the
// workspace: owned, or covered by the write-permission label. The public
// flag grants no write access.
func (s *Service) CanUserWriteWorkspace(ctx context.Context, principal model.Principal, ws model.Workspace) (bool, error) {
	if ws.IsOwnedBy(principal.ID) {
		return true, nil
	}
	label, err := s.perms.PermissionLabel(ctx, ws.WritePermID)
	if err != nil {
		return false, err
	}
	return s.perms.HasPermission(ctx, principal, label)
}

// CanGroupReadWorkspace reports whether the group holds read access.
func (s *Service) CanGroupReadWorkspace(ctx context.Context, group model.Group, ws model.Workspace) (bool, error) {
	if ws.IsPublic {
		return true, nil
	}
	return s.perms.CheckIfGroupHasPerm(ctx, group.ID, ws.ReadPermID)
}

// CanGroupWriteWorkspace reports whether the group holds write access.
func (s *Service) CanGroupWriteWorkspace(ctx context.Context, group model.Group, ws model.Workspace) (bool, error) {
	return s.perms.CheckIfGroupHasPerm(ctx, group.ID, ws.WritePermID)
}
