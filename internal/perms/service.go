// Package perms implements the permission store: named grantable
// capabilities scoped to the application namespace, assignable to users
// directly or to groups.
package perms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/store"
)

// ContentTypeNamespace is the content-type tag of every permission owned by
// this application.
const ContentTypeNamespace = "docuvault"

// Codename and display-name prefixes for the per-workspace permission pair.
const (
	ReadCodenamePrefix  = "can_read_workspace_"
	WriteCodenamePrefix = "can_write_workspace_"

	readNamePrefix  = "Can read workspace"
	writeNamePrefix = "Can write workspace"
)

// Service implements the permission operations over a PermissionStore.
type Service struct {
	store  store.PermissionStore
	groups store.GroupStore
}

// NewService creates a permission service.
func NewService(st store.PermissionStore, groups store.GroupStore) *Service {
	return &Service{store: st, groups: groups}
}

// titleToCodename normalizes a workspace title for use inside a codename:
// trimmed, lowercased, spaces replaced with underscores.
func titleToCodename(title string) string {
	title = strings.TrimSpace(title)
	title = strings.ToLower(title)
	return strings.ReplaceAll(title, " ", "_")
}

// ReadCodename returns the codename of the read permission for a workspace
// title and owner. The owner id keeps equal titles from colliding across
// owners.
func ReadCodename(title string, owner model.UserID) string {
	return ReadCodenamePrefix + titleToCodename(title) + " (" + owner.String() + ")"
}

// WriteCodename returns the codename of the write permission for a workspace
// title and owner.
func WriteCodename(title string, owner model.UserID) string {
	return WriteCodenamePrefix + titleToCodename(title) + " (" + owner.String() + ")"
}

// CreateReadPerm creates the read permission for a workspace.
func (s *Service) CreateReadPerm(ctx context.Context, title string, owner model.UserID) (model.Permission, error) {
	name := fmt.Sprintf("%s - %s (%s)", readNamePrefix, strings.TrimSpace(title), owner)
	return s.createPerm(ctx, name, ReadCodename(title, owner))
}

// CreateWritePerm creates the write permission for a workspace.
func (s *Service) CreateWritePerm(ctx context.Context, title string, owner model.UserID) (model.Permission, error) {
	name := fmt.Sprintf("%s - %s (%s)", writeNamePrefix, strings.TrimSpace(title), owner)
	return s.createPerm(ctx, name, WriteCodename(title, owner))
}

func (s *Service) createPerm(ctx context.Context, name, codename string) (model.Permission, error) {
	perm, err := s.store.CreatePermission(ctx, model.Permission{
		Name:        name,
		Codename:    codename,
		ContentType: ContentTypeNamespace,
	})
	if err != nil {
		if model.IsNotUniqueError(err) {
			return model.Permission{}, err
		}
		return model.Permission{}, model.WrapModelError("problem while creating the permission", err)
	}
	return perm, nil
}

// GetByID returns the permission with the given id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (model.Permission, error) {
	return s.store.GetPermissionByID(ctx, id)
}

// GetByCodename returns the permission with the given codename.
func (s *Service) GetByCodename(ctx context.Context, codename string) (model.Permission, error) {
	return s.store.GetPermissionByCodename(ctx, codename)
}

// AddPermissionToUser grants the permission to the user. Granting an already
// held permission is a no-op.
func (s *Service) AddPermissionToUser(ctx context.Context, user model.UserID, permID uuid.UUID) error {
	return s.store.GrantToUser(ctx, permID, user)
}

// RemovePermissionFromUser revokes the permission from the user. Revoking an
// absent grant is a no-op.
func (s *Service) RemovePermissionFromUser(ctx context.Context, user model.UserID, permID uuid.UUID) error {
	return s.store.RevokeFromUser(ctx, permID, user)
}

// AddPermissionToGroup grants the permission to every member of the group.
func (s *Service) AddPermissionToGroup(ctx context.Context, groupID, permID uuid.UUID) error {
	return s.store.GrantToGroup(ctx, permID, groupID)
}

// RemovePermissionFromGroup revokes the permission from the group.
func (s *Service) RemovePermissionFromGroup(ctx context.Context, groupID, permID uuid.UUID) error {
	return s.store.RevokeFromGroup(ctx, permID, groupID)
}

// AllWorkspacePermissionsUserCanWrite returns the ids of workspace write
// permissions reachable by the principal: all of them for a superuser, none
// for an anonymous user, and the union of direct and group grants otherwise.
func (s *Service) AllWorkspacePermissionsUserCanWrite(ctx context.Context, principal model.Principal) ([]uuid.UUID, error) {
	if principal.Superuser {
		return s.allPermissionIDs(ctx, WriteCodenamePrefix)
	}
	if principal.Anonymous {
		return nil, nil
	}
	return s.store.PermissionsForUser(ctx, principal.ID, ContentTypeNamespace, WriteCodenamePrefix)
}

// AllWorkspacePermissionsUserCanRead returns the ids of workspace read
// permissions reachable by the principal. Anonymous users get the grants of
// the anonymous group; a deployment without an anonymous group simply has no
// anonymous grants.
func (s *Service) AllWorkspacePermissionsUserCanRead(ctx context.Context, principal model.Principal) ([]uuid.UUID, error) {
	if principal.Superuser {
		return s.allPermissionIDs(ctx, ReadCodenamePrefix)
	}
	if principal.Anonymous {
		group, err := s.groups.GetGroupByName(ctx, model.AnonymousGroupName)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return s.store.PermissionsForGroup(ctx, group.ID, ContentTypeNamespace, ReadCodenamePrefix)
	}
	return s.store.PermissionsForUser(ctx, principal.ID, ContentTypeNamespace, ReadCodenamePrefix)
}

func (s *Service) allPermissionIDs(ctx context.Context, prefix string) ([]uuid.UUID, error) {
	perms, err := s.store.ListPermissionsByPrefix(ctx, ContentTypeNamespace, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(perms))
	for i, perm := range perms {
		ids[i] = perm.ID
	}
	return ids, nil
}

// PermissionLabel returns the fully qualified label of a permission,
// suitable for capability checks.
func (s *Service) PermissionLabel(ctx context.Context, permID uuid.UUID) (string, error) {
	perm, err := s.store.GetPermissionByID(ctx, permID)
	if err != nil {
		return "", err
	}
	return perm.Label(), nil
}

// CheckIfGroupHasPerm reports whether the group holds the permission.
func (s *Service) CheckIfGroupHasPerm(ctx context.Context, groupID, permID uuid.UUID) (bool, error) {
	return s.store.GroupHoldsPermission(ctx, groupID, permID)
}

// HasPermission reports whether the principal holds the permission named by
// the label ("namespace.codename"), directly or through group membership.
// Superusers hold every permission; anonymous principals hold none.
func (s *Service) HasPermission(ctx context.Context, principal model.Principal, label string) (bool, error) {
	if principal.Superuser {
		return true, nil
	}
	if principal.Anonymous || principal.ID.IsZero() {
		return false, nil
	}
	namespace, codename, found := strings.Cut(label, ".")
	if !found {
		return false, fmt.Errorf("malformed permission label %q", label)
	}
	perm, err := s.store.GetPermissionByCodename(ctx, codename)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if perm.ContentType != namespace {
		return false, nil
	}
	return s.store.UserHoldsPermission(ctx, principal.ID, perm.ID)
}

// UsersWithPermission returns the users directly granted the permission.
func (s *Service) UsersWithPermission(ctx context.Context, permID uuid.UUID) ([]model.UserID, error) {
	return s.store.UsersWithPermission(ctx, permID)
}

// GroupsWithPermission returns the groups granted the permission.
func (s *Service) GroupsWithPermission(ctx context.Context, permID uuid.UUID) ([]model.Group, error) {
	return s.store.GroupsWithPermission(ctx, permID)
}

// DeletePermission deletes a permission. Callers running cleanup flows are
// expected to log and discard the returned error rather than fail the
// dominant operation; the row may already be gone.
func (s *Service) DeletePermission(ctx context.Context, permID uuid.UUID) error {
	return s.store.DeletePermission(ctx, permID)
}

// EnsureSystemRights creates the system publish permissions when absent.
// Called once at startup.
func (s *Service) EnsureSystemRights(ctx context.Context) error {
	for _, codename := range []string{
		model.PublishDataCodename,
		model.PublishTemplateCodename,
		model.PublishBlobCodename,
	} {
		_, err := s.store.CreatePermission(ctx, model.Permission{
			Name:        "Can " + strings.ReplaceAll(codename, "_", " "),
			Codename:    codename,
			ContentType: ContentTypeNamespace,
		})
		if err != nil && !model.IsNotUniqueError(err) {
			return fmt.Errorf("failed to ensure permission %s: %w", codename, err)
		}
	}
	slog.Debug("System rights ensured", "namespace", ContentTypeNamespace)
	return nil
}
