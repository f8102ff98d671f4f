// Package docs implements the document operations guarded by the policy
// engine: every read, write and workspace move is authorized before it
// touches the store, and list queries are rewritten to the caller's
// accessible scope.
package docs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/authz"
	"github.com/docuvault/docuvault-server/internal/config"
	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/query"
	"github.com/docuvault/docuvault-server/internal/store"
)

// Service implements document operations over a DocumentStore.
type Service struct {
	store  store.DocumentStore
	engine *authz.Engine
	cfg    *config.Config
}

// NewService creates a document service.
func NewService(st store.DocumentStore, engine *authz.Engine, cfg *config.Config) *Service {
	return &Service{store: st, engine: engine, cfg: cfg}
}

// Create inserts a new document owned by the principal. Anonymous users
// cannot create documents. When the document targets a workspace the
// principal needs write access to it (and the publish capability when the
// workspace is public).
func (s *Service) Create(ctx context.Context, doc model.Document, principal model.Principal) (model.Document, error) {
	if principal.Anonymous {
		return model.Document{}, model.NewAccessControlError("the user doesn't have enough rights")
	}
	if strings.TrimSpace(doc.Title) == "" {
		return model.Document{}, model.NewModelError("title must not be empty or only whitespaces")
	}
	if doc.Kind == "" {
		return model.Document{}, model.NewModelError("document kind is required")
	}
	if !principal.Superuser || doc.Owner.IsZero() {
		doc.Owner = principal.ID
	}

	if doc.Workspace != nil {
		target, err := s.engine.Workspaces().GetByID(ctx, *doc.Workspace)
		if err != nil {
			return model.Document{}, err
		}
		// Authorize the placement against a detached copy: the document does
		// not exist yet, so only the destination matters.
		probe := doc
		probe.Workspace = nil
		if err := s.engine.Authorize(ctx, principal, authz.Request{
			Action:          authz.ActionAssignWorkspace,
			Document:        &probe,
			TargetWorkspace: &target,
		}); err != nil {
			return model.Document{}, err
		}
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	created, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		if model.IsNotUniqueError(err) {
			return model.Document{}, err
		}
		return model.Document{}, model.WrapModelError("problem while creating the document", err)
	}
	return created, nil
}

// Get returns the document after verifying the principal may read it.
func (s *Service) Get(ctx context.Context, id uuid.UUID, principal model.Principal) (model.Document, error) {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.engine.Authorize(ctx, principal, authz.Request{Action: authz.ActionRead, Document: &doc}); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Update replaces the document's title and content after verifying write
// access against its current state. Kind, owner and workspace are immutable
// here; use AssignWorkspace and ChangeOwner for those.
func (s *Service) Update(ctx context.Context, id uuid.UUID, title string, content []byte, principal model.Principal) (model.Document, error) {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.engine.Authorize(ctx, principal, authz.Request{Action: authz.ActionWrite, Document: &doc}); err != nil {
		return model.Document{}, err
	}
	if strings.TrimSpace(title) == "" {
		return model.Document{}, model.NewModelError("title must not be empty or only whitespaces")
	}

	doc.Title = title
	doc.Content = content
	doc.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Delete removes the document after verifying write access.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Authorize(ctx, principal, authz.Request{Action: authz.ActionWrite, Document: &doc}); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, doc.ID)
}

// AssignWorkspace moves the document into the target workspace; a nil target
// removes it from its workspace. The move is authorized against both the
// document's current state and the destination.
func (s *Service) AssignWorkspace(ctx context.Context, id uuid.UUID, target *uuid.UUID, principal model.Principal) (model.Document, error) {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return model.Document{}, err
	}

	var targetWs *model.Workspace
	if target != nil {
		ws, err := s.engine.Workspaces().GetByID(ctx, *target)
		if err != nil {
			return model.Document{}, err
		}
		targetWs = &ws
	}
	if err := s.engine.Authorize(ctx, principal, authz.Request{
		Action:          authz.ActionAssignWorkspace,
		Document:        &doc,
		TargetWorkspace: targetWs,
	}); err != nil {
		return model.Document{}, err
	}

	doc.Workspace = target
	doc.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// ChangeOwner reassigns the document to a new owner. Current owner only,
// superuser bypass.
func (s *Service) ChangeOwner(ctx context.Context, id uuid.UUID, newOwner model.UserID, principal model.Principal) (model.Document, error) {
	if newOwner.IsZero() {
		return model.Document{}, model.NewModelError("new owner is required")
	}
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.engine.Authorize(ctx, principal, authz.Request{
		Action:   authz.ActionChangeOwner,
		Document: &doc,
		NewOwner: newOwner,
	}); err != nil {
		return model.Document{}, err
	}

	doc.Owner = newOwner
	doc.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Filter narrows a document listing. Workspaces holds explicit workspace
// refs (a nil entry selects documents with no workspace, superusers only);
// Owners holds explicit owner ids (regular users may only name themselves).
type Filter struct {
	Kind          model.DocumentKind
	TitleContains string
	Workspaces    []*uuid.UUID
	Owners        []model.UserID
	Order         string
}

// List returns the documents matching the filter, restricted to what the
// principal may read. The restriction is compiled into the query itself;
// when the deployment enables it, the result set is additionally verified
// document by document.
func (s *Service) List(ctx context.Context, filter Filter, principal model.Principal) ([]model.Document, error) {
	var accessible []uuid.UUID
	if !principal.Superuser {
		ids, err := s.engine.AccessibleWorkspaceIDs(ctx, principal)
		if err != nil {
			return nil, err
		}
		accessible = ids
	}

	base := baseCriteria(filter)
	criteria, err := query.AddAccessCriteria(base, principal, accessible, filter.Workspaces, filter.Owners)
	if err != nil {
		return nil, err
	}

	order := filter.Order
	if order == "" {
		order = s.cfg.DefaultOrder
	}
	docsList, err := s.store.ListDocuments(ctx, criteria, order)
	if err != nil {
		return nil, err
	}

	if s.cfg.VerifyDocumentAccess {
		if err := s.engine.CheckCanReadList(ctx, docsList, principal); err != nil {
			return nil, err
		}
	}
	return docsList, nil
}

func baseCriteria(filter Filter) query.Criteria {
	var c query.Criteria
	if filter.Kind != "" {
		c = query.Conjoin(c, query.KindIs{Kind: filter.Kind})
	}
	if filter.TitleContains != "" {
		c = query.Conjoin(c, query.TitleContains{Text: filter.TitleContains})
	}
	return c
}
