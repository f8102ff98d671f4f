// Package groups implements the group registry, including the well-known
// anonymous and default groups.
package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/store"
)

// Registry looks up and manages groups.
type Registry struct {
	store store.GroupStore
}

// NewRegistry creates a group registry.
func NewRegistry(st store.GroupStore) *Registry {
	return &Registry{store: st}
}

// GetByNameAndPermission returns the groups matching the name that hold a
// permission with the given codename. Used to test whether the anonymous
// group was granted a specific capability.
func (r *Registry) GetByNameAndPermission(ctx context.Context, name, permissionCodename string) ([]model.Group, error) {
	return r.store.GroupsByNameAndPermission(ctx, name, permissionCodename)
}

// GetAnonymousGroup returns the anonymous group, or ErrNotFound when the
// deployment has none; callers treat absence as "anonymous has no grants".
func (r *Registry) GetAnonymousGroup(ctx context.Context) (model.Group, error) {
	return r.store.GetGroupByName(ctx, model.AnonymousGroupName)
}

// GetDefaultGroup returns the default group for registered users.
func (r *Registry) GetDefaultGroup(ctx context.Context) (model.Group, error) {
	return r.store.GetGroupByName(ctx, model.DefaultGroupName)
}

// GetAll returns every group.
func (r *Registry) GetAll(ctx context.Context) ([]model.Group, error) {
	return r.store.ListGroups(ctx)
}

// GetAllExcept returns every group not present in the exclusion list.
func (r *Registry) GetAllExcept(ctx context.Context, excluded []model.Group) ([]model.Group, error) {
	all, err := r.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	skip := make(map[uuid.UUID]struct{}, len(excluded))
	for _, group := range excluded {
		skip[group.ID] = struct{}{}
	}
	var out []model.Group
	for _, group := range all {
		if _, ok := skip[group.ID]; !ok {
			out = append(out, group)
		}
	}
	return out, nil
}

// GroupsForUser returns the groups the user belongs to.
func (r *Registry) GroupsForUser(ctx context.Context, user model.UserID) ([]model.Group, error) {
	return r.store.GroupsForUser(ctx, user)
}

// CreateGroup creates a new named group.
func (r *Registry) CreateGroup(ctx context.Context, name string) (model.Group, error) {
	return r.store.CreateGroup(ctx, model.Group{Name: name})
}

// AddMember adds the user to the group. Adding twice is a no-op.
func (r *Registry) AddMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error {
	return r.store.AddGroupMember(ctx, groupID, user)
}

// RemoveMember removes the user from the group.
func (r *Registry) RemoveMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error {
	return r.store.RemoveGroupMember(ctx, groupID, user)
}

// EnsureWellKnownGroups creates the anonymous and default groups when
// absent. Called once at startup.
func (r *Registry) EnsureWellKnownGroups(ctx context.Context) error {
	for _, name := range []string{model.AnonymousGroupName, model.DefaultGroupName} {
		if _, err := r.store.GetGroupByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to look up group %s: %w", name, err)
		}
		if _, err := r.store.CreateGroup(ctx, model.Group{Name: name}); err != nil && !model.IsNotUniqueError(err) {
			return fmt.Errorf("failed to create group %s: %w", name, err)
		}
	}
	return nil
}
