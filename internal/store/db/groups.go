package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docuvault/docuvault-server/internal/model"
)

// CreateGroup inserts a group row.
func (s *dbStore) CreateGroup(ctx context.Context, group model.Group) (model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.CreateGroup")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO groups (name) VALUES ($1) RETURNING id`, group.Name)
	if err := row.Scan(&group.ID); err != nil {
		err = mapError(err, "the group already exists")
		recordError(span, err)
		return model.Group{}, err
	}
	return group, nil
}

// GetGroupByName returns the group with the given name.
func (s *dbStore) GetGroupByName(ctx context.Context, name string) (model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetGroupByName")
	defer span.End()

	var group model.Group
	row := s.pool.QueryRow(ctx, `SELECT id, name FROM groups WHERE name = $1`, name)
	if err := row.Scan(&group.ID, &group.Name); err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Group{}, err
	}
	return group, nil
}

// GroupsByNameAndPermission returns groups matching the name that hold a
// permission with the given codename.
func (s *dbStore) GroupsByNameAndPermission(ctx context.Context, name, permissionCodename string) ([]model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GroupsByNameAndPermission")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name FROM groups g
		 JOIN permission_group_grants gg ON gg.group_id = g.id
		 JOIN permissions p ON p.id = gg.permission_id
		 WHERE g.name = $1 AND p.codename = $2
		 ORDER BY g.name`,
		name, permissionCodename)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanGroups(rows)
}

// ListGroups returns every group.
func (s *dbStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListGroups")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanGroups(rows)
}

// GroupsForUser returns the groups the user is a member of.
func (s *dbStore) GroupsForUser(ctx context.Context, user model.UserID) ([]model.Group, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GroupsForUser")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = $1
		 ORDER BY g.name`,
		user.String())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanGroups(rows)
}

// AddGroupMember adds the user to the group. Adding twice is a no-op.
func (s *dbStore) AddGroupMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error {
	ctx, span := s.startSpan(ctx, "dbStore.AddGroupMember")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		groupID, user.String())
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember removes the user from the group.
func (s *dbStore) RemoveGroupMember(ctx context.Context, groupID uuid.UUID, user model.UserID) error {
	ctx, span := s.startSpan(ctx, "dbStore.RemoveGroupMember")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, user.String())
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return nil
}

func scanGroups(rows pgx.Rows) ([]model.Group, error) {
	var out []model.Group
	for rows.Next() {
		var group model.Group
		if err := rows.Scan(&group.ID, &group.Name); err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
