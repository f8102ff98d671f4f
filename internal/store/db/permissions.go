package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
)

// CreatePermission inserts a permission row.
func (s *dbStore) CreatePermission(ctx context.Context, perm model.Permission) (model.Permission, error) {
	ctx, span := s.startSpan(ctx, "dbStore.CreatePermission")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, codename, content_type)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		perm.Name, perm.Codename, perm.ContentType)
	if err := row.Scan(&perm.ID); err != nil {
		err = mapError(err, "the permission already exists")
		recordError(span, err)
		return model.Permission{}, err
	}
	return perm, nil
}

// GetPermissionByID returns the permission with the given id.
func (s *dbStore) GetPermissionByID(ctx context.Context, id uuid.UUID) (model.Permission, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetPermissionByID")
	defer span.End()

	var perm model.Permission
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, codename, content_type FROM permissions WHERE id = $1`, id)
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Codename, &perm.ContentType); err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Permission{}, err
	}
	return perm, nil
}

// GetPermissionByCodename returns the permission with the given codename.
func (s *dbStore) GetPermissionByCodename(ctx context.Context, codename string) (model.Permission, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetPermissionByCodename")
	defer span.End()

	var perm model.Permission
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, codename, content_type FROM permissions WHERE codename = $1`, codename)
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Codename, &perm.ContentType); err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Permission{}, err
	}
	return perm, nil
}

// ListPermissionsByPrefix returns the permissions of a content type whose
// codename starts with the given prefix.
func (s *dbStore) ListPermissionsByPrefix(ctx context.Context, contentType, codenamePrefix string) ([]model.Permission, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListPermissionsByPrefix")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, codename, content_type FROM permissions
		 WHERE content_type = $1 AND codename LIKE $2 || '%'
		 ORDER BY codename`,
		contentType, codenamePrefix)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []model.Permission
	for rows.Next() {
		var perm model.Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Codename, &perm.ContentType); err != nil {
			recordError(span, err)
			return nil, err
		}
		out = append(out, perm)
	}
	if err := rows.Err(); err != nil {
		recordError(span, err)
		return nil, err
	}
	return out, nil
}

// DeletePermission removes a permission and, through cascading constraints,
// its user and group grants.
func (s *dbStore) DeletePermission(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "dbStore.DeletePermission")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		recordError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GrantToUser grants the permission to the user. Granting twice is a no-op.
func (s *dbStore) GrantToUser(ctx context.Context, permID uuid.UUID, user model.UserID) error {
	ctx, span := s.startSpan(ctx, "dbStore.GrantToUser")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO permission_user_grants (permission_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		permID, user.String())
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to grant permission to user: %w", err)
	}
	return nil
}

// RevokeFromUser revokes the permission from the user. Revoking an absent
// grant is a no-op.
func (s *dbStore) RevokeFromUser(ctx context.Context, permID uuid.UUID, user model.UserID) error {
	ctx, span := s.startSpan(ctx, "dbStore.RevokeFromUser")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM permission_user_grants WHERE permission_id = $1 AND user_id = $2`,
		permID, user.String())
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to revoke permission from user: %w", err)
	}
	return nil
}

// GrantToGroup grants the permission to the group. Granting twice is a no-op.
func (s *dbStore) GrantToGroup(ctx context.Context, permID, groupID uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "dbStore.GrantToGroup")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO permission_group_grants (permission_id, group_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		permID, groupID)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to grant permission to group: %w", err)
	}
	return nil
}

// RevokeFromGroup revokes the permission from the group.
func (s *dbStore) RevokeFromGroup(ctx context.Context, permID, groupID uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "dbStore.RevokeFromGroup")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM permission_group_grants WHERE permission_id = $1 AND group_id = $2`,
		permID, groupID)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to revoke permission from group: %w", err)
	}
	return nil
}

// PermissionsForUser returns ids of matching permissions reachable by the
// user, directly or through group membership.
func (s *dbStore) PermissionsForUser(ctx context.Context, user model.UserID, contentType, codenamePrefix string) ([]uuid.UUID, error) {
	ctx, span := s.startSpan(ctx, "dbStore.PermissionsForUser")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT p.id FROM permissions p
		 LEFT JOIN permission_user_grants ug ON ug.permission_id = p.id
		 LEFT JOIN permission_group_grants gg ON gg.permission_id = p.id
		 LEFT JOIN group_members gm ON gm.group_id = gg.group_id
		 WHERE p.content_type = $1 AND p.codename LIKE $2 || '%'
		   AND (ug.user_id = $3 OR gm.user_id = $3)`,
		contentType, codenamePrefix, user.String())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// PermissionsForGroup returns ids of matching permissions granted to the
// group.
func (s *dbStore) PermissionsForGroup(ctx context.Context, groupID uuid.UUID, contentType, codenamePrefix string) ([]uuid.UUID, error) {
	ctx, span := s.startSpan(ctx, "dbStore.PermissionsForGroup")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT p.id FROM permissions p
		 JOIN permission_group_grants gg ON gg.permission_id = p.id
		 WHERE gg.group_id = $1 AND p.content_type = $2 AND p.codename LIKE $3 || '%'`,
		groupID, contentType, codenamePrefix)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// UserHoldsPermission reports whether the user holds the permission, directly
// or through group membership.
func (s *dbStore) UserHoldsPermission(ctx context.Context, user model.UserID, permID uuid.UUID) (bool, error) {
	ctx, span := s.startSpan(ctx, "dbStore.UserHoldsPermission")
	defer span.End()

	var held bool
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM permission_user_grants WHERE permission_id = $1 AND user_id = $2
		   UNION ALL
		   SELECT 1 FROM permission_group_grants gg
		   JOIN group_members gm ON gm.group_id = gg.group_id
		   WHERE gg.permission_id = $1 AND gm.user_id = $2
		 )`,
		permID, user.String())
	if err := row.Scan(&held); err != nil {
		recordError(span, err)
		return false, err
	}
	return held, nil
}

// GroupHoldsPermission reports whether the group holds the permission.
func (s *dbStore) GroupHoldsPermission(ctx context.Context, groupID, permID uuid.UUID) (bool, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GroupHoldsPermission")
	defer span.End()

	var held bool
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM permission_group_grants WHERE permission_id = $1 AND group_id = $2
		 )`,
		permID, groupID)
	if err := row.Scan(&held); err != nil {
		recordError(span, err)
		return false, err
	}
	return held, nil
}

// UsersWithPermission returns the users directly granted the permission.
func (s *dbStore) UsersWithPermission(ctx context.Context, permID uuid.UUID) ([]model.UserID, error) {
	ctx, span := s.startSpan(ctx, "dbStore.UsersWithPermission")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM permission_user_grants WHERE permission_id = $1 ORDER BY user_id`,
		permID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []model.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			recordError(span, err)
			return nil, err
		}
		out = append(out, model.UserID(id))
	}
	if err := rows.Err(); err != nil {
		recordError(span, err)
		return nil, err
	}
	return out, nil
}

// GroupsWithPermission returns the groups granted the permission.
func (s *dbStore) GroupsWithPermission(ctx context.Context, permID uuid.UUID) ([]model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GroupsWithPermission")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name FROM groups g
		 JOIN permission_group_grants gg ON gg.group_id = g.id
		 WHERE gg.permission_id = $1
		 ORDER BY g.name`,
		permID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanGroups(rows)
}
