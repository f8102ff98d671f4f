package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
)

// checkOwnerActsForOthers guards the rights-management operations: only the
// workspace owner may grant or revoke another user's or group's access.
// Superusers bypass the ownership check.
func checkOwnerActsForOthers(ws model.Workspace, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	return checkIsOwner(ws, principal)
}

// checkGlobalWriteProtected rejects write-access mutations on the global
// workspace. This is a domain rule, not an authorization check: it applies
// to every caller, superusers included.
func checkGlobalWriteProtected(ws model.Workspace) error {
	if ws.IsGlobal() {
		return model.NewModelError("you can't modify the rights of the global public workspace")
	}
	return nil
}

// AddUserReadAccess grants the target user read access to the workspace.
func (s *Service) AddUserReadAccess(ctx context.Context, ws model.Workspace, target model.UserID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	return s.perms.AddPermissionToUser(ctx, target, ws.ReadPermID)
}

// AddUserWriteAccess grants the target user write access to the workspace.
func (s *Service) AddUserWriteAccess(ctx context.Context, ws model.Workspace, target model.UserID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	if err := checkGlobalWriteProtected(ws); err != nil {
		return err
	}
	return s.perms.AddPermissionToUser(ctx, target, ws.WritePermID)
}

// RemoveUserReadAccess revokes the target user's read access.
func (s *Service) RemoveUserReadAccess(ctx context.Context, ws model.Workspace, target model.UserID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	return s.perms.RemovePermissionFromUser(ctx, target, ws.ReadPermID)
}

// RemoveUserWriteAccess revokes the target user's write access.
func (s *Service) RemoveUserWriteAccess(ctx context.Context, ws model.Workspace, target model.UserID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	if err := checkGlobalWriteProtected(ws); err != nil {
		return err
	}
	return s.perms.RemovePermissionFromUser(ctx, target, ws.WritePermID)
}

// AddGroupReadAccess grants the group read access to the workspace.
func (s *Service) AddGroupReadAccess(ctx context.Context, ws model.Workspace, groupID uuid.UUID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	return s.perms.AddPermissionToGroup(ctx, groupID, ws.ReadPermID)
}

// AddGroupWriteAccess grants the group write access to the workspace.
func (s *Service) AddGroupWriteAccess(ctx context.Context, ws model.Workspace, groupID uuid.UUID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	if err := checkGlobalWriteProtected(ws); err != nil {
		return err
	}
	return s.perms.AddPermissionToGroup(ctx, groupID, ws.WritePermID)
}

// RemoveGroupReadAccess revokes the group's read access.
func (s *Service) RemoveGroupReadAccess(ctx context.Context, ws model.Workspace, groupID uuid.UUID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	return s.perms.RemovePermissionFromGroup(ctx, groupID, ws.ReadPermID)
}

// RemoveGroupWriteAccess revokes the group's write access.
func (s *Service) RemoveGroupWriteAccess(ctx context.Context, ws model.Workspace, groupID uuid.UUID, principal model.Principal) error {
	if err := checkOwnerActsForOthers(ws, principal); err != nil {
		return err
	}
	if err := checkGlobalWriteProtected(ws); err != nil {
		return err
	}
	return s.perms.RemovePermissionFromGroup(ctx, groupID, ws.WritePermID)
}

// checkOwnerIntrospects guards the sharing introspection operations.
func checkOwnerIntrospects(ws model.Workspace, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	return checkIsOwner(ws, principal)
}

// ListUsersWithReadAccess returns the users granted read access to the
// workspace. Owner only.
func (s *Service) ListUsersWithReadAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.UserID, error) {
	if err := checkOwnerIntrospects(ws, principal); err != nil {
		return nil, err
	}
	return s.perms.UsersWithPermission(ctx, ws.ReadPermID)
}

// ListUsersWithWriteAccess returns the users granted write access to the
// workspace. Owner only.
func (s *Service) ListUsersWithWriteAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.UserID, error) {
	if err := checkOwnerIntrospects(ws, principal); err != nil {
		return nil, err
	}
	return s.perms.UsersWithPermission(ctx, ws.WritePermID)
}

// ListUsersWithAnyAccess returns the union of read and write grant holders.
func (s *Service) ListUsersWithAnyAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.UserID, error) {
	readers, err := s.ListUsersWithReadAccess(ctx, ws, principal)
	if err != nil {
		return nil, err
	}
	writers, err := s.ListUsersWithWriteAccess(ctx, ws, principal)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.UserID]struct{}, len(readers)+len(writers))
	var out []model.UserID
	for _, user := range append(readers, writers...) {
		if _, ok := seen[user]; ok {
			continue
		}
		seen[user] = struct{}{}
		out = append(out, user)
	}
	return out, nil
}

// ListGroupsWithReadAccess returns the groups with read access. Every group
// can read a public workspace.
func (s *Service) ListGroupsWithReadAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.Group, error) {
	if err := checkOwnerIntrospects(ws, principal); err != nil {
		return nil, err
	}
	if ws.IsPublic {
		return s.groups.GetAll(ctx)
	}
	return s.perms.GroupsWithPermission(ctx, ws.ReadPermID)
}

// ListGroupsWithWriteAccess returns the groups granted write access.
func (s *Service) ListGroupsWithWriteAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.Group, error) {
	if err := checkOwnerIntrospects(ws, principal); err != nil {
		return nil, err
	}
	return s.perms.GroupsWithPermission(ctx, ws.WritePermID)
}

// ListGroupsWithAnyAccess returns the union of read and write groups.
func (s *Service) ListGroupsWithAnyAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.Group, error) {
	readers, err := s.ListGroupsWithReadAccess(ctx, ws, principal)
	if err != nil {
		return nil, err
	}
	writers, err := s.ListGroupsWithWriteAccess(ctx, ws, principal)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(readers)+len(writers))
	var out []model.Group
	for _, group := range append(readers, writers...) {
		if _, ok := seen[group.ID]; ok {
			continue
		}
		seen[group.ID] = struct{}{}
		out = append(out, group)
	}
	return out, nil
}

// ListGroupsWithNoAccess returns the groups holding neither read nor write
// access to the workspace.
func (s *Service) ListGroupsWithNoAccess(ctx context.Context, ws model.Workspace, principal model.Principal) ([]model.Group, error) {
	withAccess, err := s.ListGroupsWithAnyAccess(ctx, ws, principal)
	if err != nil {
		return nil, err
	}
	return s.groups.GetAllExcept(ctx, withAccess)
}
