package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/query"
)

// CreateDocument inserts a document row.
func (s *dbStore) CreateDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	ctx, span := s.startSpan(ctx, "dbStore.CreateDocument")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (kind, title, user_id, workspace_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		string(doc.Kind), doc.Title, doc.Owner.String(), doc.Workspace, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	if err := row.Scan(&doc.ID); err != nil {
		err = mapError(err, "the document already exists")
		recordError(span, err)
		return model.Document{}, err
	}
	return doc, nil
}

// SaveDocument updates a document row.
func (s *dbStore) SaveDocument(ctx context.Context, doc model.Document) error {
	ctx, span := s.startSpan(ctx, "dbStore.SaveDocument")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET kind = $2, title = $3, user_id = $4, workspace_id = $5, content = $6, updated_at = $7
		 WHERE id = $1`,
		doc.ID, string(doc.Kind), doc.Title, doc.Owner.String(), doc.Workspace, doc.Content, doc.UpdatedAt)
	if err != nil {
		recordError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document row.
func (s *dbStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "dbStore.DeleteDocument")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		recordError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetDocumentByID returns the document with the given id.
func (s *dbStore) GetDocumentByID(ctx context.Context, id uuid.UUID) (model.Document, error) {
	ctx, span := s.startSpan(ctx, "dbStore.GetDocumentByID")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, title, user_id, workspace_id, content, created_at, updated_at
		 FROM documents WHERE id = $1`, id)

	var doc model.Document
	var kind, owner string
	err := row.Scan(&doc.ID, &kind, &doc.Title, &owner, &doc.Workspace, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		err = mapError(err, "")
		recordError(span, err)
		return model.Document{}, err
	}
	doc.Kind = model.DocumentKind(kind)
	doc.Owner = model.UserID(owner)
	return doc, nil
}

// ListDocuments returns documents matching the criteria, sorted by the order
// spec.
func (s *dbStore) ListDocuments(ctx context.Context, criteria query.Criteria, order string) ([]model.Document, error) {
	ctx, span := s.startSpan(ctx, "dbStore.ListDocuments")
	defer span.End()

	where, args := query.SQL(criteria)
	orderBy, err := orderClause(order)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, title, user_id, workspace_id, content, created_at, updated_at
		 FROM documents WHERE `+where+orderBy, args...)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var doc model.Document
		var kind, owner string
		if err := rows.Scan(&doc.ID, &kind, &doc.Title, &owner, &doc.Workspace, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			recordError(span, err)
			return nil, err
		}
		doc.Kind = model.DocumentKind(kind)
		doc.Owner = model.UserID(owner)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		recordError(span, err)
		return nil, err
	}
	return out, nil
}

// orderClause translates the order spec ("field" ascending, "-field"
// descending) into an ORDER BY clause. Fields are whitelisted since they are
// interpolated into the statement.
func orderClause(order string) (string, error) {
	if order == "" {
		return "", nil
	}
	field := order
	direction := " ASC"
	if strings.HasPrefix(order, "-") {
		field = order[1:]
		direction = " DESC"
	}
	switch field {
	case "title", "created_at", "updated_at":
		return " ORDER BY " + field + direction, nil
	default:
		return "", fmt.Errorf("unknown order field %q", field)
	}
}
