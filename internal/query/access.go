package query

import (
	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
)

// CheckUserFilter verifies that the caller may filter by the given user ids.
// Regular users may only name themselves; an empty filter requests no
// restriction and always passes. Superusers are expected to be short-circuited
// by the caller before this check runs.
func CheckUserFilter(userFilter []model.UserID, principal model.Principal) error {
	for _, id := range userFilter {
		if !id.IsZero() && id != principal.ID {
			return model.NewAccessControlError("the user does not have enough rights to filter by user")
		}
	}
	return nil
}

// CheckWorkspaceFilter verifies that every workspace named in the caller's
// filter belongs to the accessible set. A nil workspace ref (documents with
// no workspace) is never part of an accessible set and is rejected. An empty
// filter requests no restriction and always passes.
func CheckWorkspaceFilter(workspaceFilter []*uuid.UUID, accessible []uuid.UUID) error {
	for _, ref := range workspaceFilter {
		if ref == nil || !containsWorkspace(accessible, *ref) {
			return model.NewAccessControlError("the user does not have enough rights to filter by workspace")
		}
	}
	return nil
}

// AccessibleCriteria computes the criteria restricting a document query to
// records the principal may read: the document's workspace must be in the
// accessible set (narrowed to the explicit filter when one is supplied), or
// the document must be owned by the principal. Superusers get no restriction
// beyond their explicit filters.
func AccessibleCriteria(
	principal model.Principal,
	accessibleWorkspaces []uuid.UUID,
	workspaceFilter []*uuid.UUID,
	userFilter []model.UserID,
) (Criteria, error) {
	if principal.Superuser {
		return superuserCriteria(workspaceFilter, userFilter), nil
	}

	if err := CheckUserFilter(userFilter, principal); err != nil {
		return nil, err
	}
	if err := CheckWorkspaceFilter(workspaceFilter, accessibleWorkspaces); err != nil {
		return nil, err
	}

	workspaceSet := accessibleWorkspaces
	if len(workspaceFilter) > 0 {
		workspaceSet = make([]uuid.UUID, 0, len(workspaceFilter))
		for _, ref := range workspaceFilter {
			if ref != nil && containsWorkspace(accessibleWorkspaces, *ref) {
				workspaceSet = append(workspaceSet, *ref)
			}
		}
	}
	access := Criteria(WorkspaceIn{IDs: workspaceSet})

	// An explicit workspace filter without a user filter asks for exactly
	// those workspaces, not the caller's own private documents on top.
	if len(workspaceFilter) > 0 && len(userFilter) == 0 {
		return access, nil
	}

	if !principal.ID.IsZero() {
		if len(userFilter) > 0 {
			// A user filter is always self-referential here.
			if len(workspaceFilter) > 0 {
				return And{access, OwnerIs{User: principal.ID}}, nil
			}
			return OwnerIs{User: principal.ID}, nil
		}
		return Or{access, OwnerIs{User: principal.ID}}, nil
	}
	return access, nil
}

// AddAccessCriteria conjoins the caller's base query with the access
// criteria for the principal. A nil base query means "match everything".
func AddAccessCriteria(
	base Criteria,
	principal model.Principal,
	accessibleWorkspaces []uuid.UUID,
	workspaceFilter []*uuid.UUID,
	userFilter []model.UserID,
) (Criteria, error) {
	access, err := AccessibleCriteria(principal, accessibleWorkspaces, workspaceFilter, userFilter)
	if err != nil {
		return nil, err
	}
	return Conjoin(base, access), nil
}

// superuserCriteria applies only the explicit filters, with no ownership
// restriction layered on top. A nil workspace ref selects documents with no
// workspace.
func superuserCriteria(workspaceFilter []*uuid.UUID, userFilter []model.UserID) Criteria {
	c := Criteria(All{})
	if len(workspaceFilter) > 0 {
		ws := WorkspaceIn{}
		for _, ref := range workspaceFilter {
			if ref == nil {
				ws.Unassigned = true
			} else {
				ws.IDs = append(ws.IDs, *ref)
			}
		}
		c = Conjoin(c, ws)
	}
	if len(userFilter) > 0 {
		c = Conjoin(c, OwnerIn{Users: userFilter})
	}
	return c
}

func containsWorkspace(set []uuid.UUID, id uuid.UUID) bool {
	for _, w := range set {
		if w == id {
			return true
		}
	}
	return false
}
