package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docuvault/docuvault-server/internal/model"
)

// CreateWorkspace inserts a workspace row.
func (s *dbStore) CreateWorkspace(ctx context.Context, ws model.Workspace) (model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.CreateWorkspace")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO workspaces (title, owner, is_public, read_perm_id, write_perm_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		ws.Title, ws.Owner.String(), ws.IsPublic, ws.ReadPermID, ws.WritePermID)
	if err := row.Scan(&ws.ID); err != nil {
		err = mapError(err, "a workspace with the same title already exists")
		recordError(span, err)
		return model.Workspace{}, err
	}
	return ws, nil
}

// SaveWorkspace updates a workspace row.
func (s *dbStore) SaveWorkspace(ctx context.Context, ws model.Workspace) error {
	ctx, span := s.startSpan(ctx, "dbStore.SaveWorkspace")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE workspaces
		 SET title = $2, owner = $3, is_public = $4, read_perm_id = $5, write_perm_id = $6
		 WHERE id = $1`,
		ws.ID, ws.Title, ws.Owner.String(), ws.IsPublic, ws.ReadPermID, ws.WritePermID)
	if err != nil {
		err = mapError(err, "a workspace with the same title already exists")
		recordError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteWorkspace removes a workspace row. Documents keep existing with a
// dangling reference cleared by the foreign key's ON DELETE SET NULL.
func (s *dbStore) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "dbStore.DeleteWorkspace")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		recordError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetWorkspaceByID returns the workspace with the given id.
func (s *dbStore) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetWorkspaceByID")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces WHERE id = $1`, id)
	ws, err := scanWorkspace(row)
	if err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Workspace{}, err
	}
	return ws, nil
}

// GetGlobalWorkspace returns the distinguished ownerless public workspace.
func (s *dbStore) GetGlobalWorkspace(ctx context.Context) (model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetGlobalWorkspace")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces WHERE owner = '' AND is_public LIMIT 1`)
	ws, err := scanWorkspace(row)
	if err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Workspace{}, err
	}
	return ws, nil
}

// ListWorkspaces returns every workspace.
func (s *dbStore) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListWorkspaces")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces ORDER BY title`)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

// ListWorkspacesByOwner returns the workspaces owned by the user.
func (s *dbStore) ListWorkspacesByOwner(ctx context.Context, owner model.UserID) ([]model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListWorkspacesByOwner")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces WHERE owner = $1 AND owner <> '' ORDER BY title`,
		owner.String())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

// ListPublicWorkspaces returns every public workspace.
func (s *dbStore) ListPublicWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListPublicWorkspaces")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces WHERE is_public ORDER BY title`)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

// ListWorkspacesWithReadAccess returns workspaces owned by the user, public,
// or carrying one of the given read permissions.
func (s *dbStore) ListWorkspacesWithReadAccess(ctx context.Context, user model.UserID, readPermIDs []uuid.UUID) ([]model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListWorkspacesWithReadAccess")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces
		 WHERE (owner = $1 AND owner <> '') OR is_public OR read_perm_id = ANY($2)
		 ORDER BY title`,
		user.String(), readPermIDs)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

// ListWorkspacesWithWriteAccess returns workspaces owned by the user or
// carrying one of the given write permissions. Public does not grant write.
func (s *dbStore) ListWorkspacesWithWriteAccess(ctx context.Context, user model.UserID, writePermIDs []uuid.UUID) ([]model.Workspace, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListWorkspacesWithWriteAccess")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner, is_public, read_perm_id, write_perm_id
		 FROM workspaces
		 WHERE (owner = $1 AND owner <> '') OR write_perm_id = ANY($2)
		 ORDER BY title`,
		user.String(), writePermIDs)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

func scanWorkspace(row pgx.Row) (model.Workspace, error) {
	var ws model.Workspace
	var owner string
	err := row.Scan(&ws.ID, &ws.Title, &owner, &ws.IsPublic, &ws.ReadPermID, &ws.WritePermID)
	if err != nil {
		return model.Workspace{}, err
	}
	ws.Owner = model.UserID(owner)
	return ws, nil
}

func scanWorkspaces(rows pgx.Rows) ([]model.Workspace, error) {
	var out []model.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}
