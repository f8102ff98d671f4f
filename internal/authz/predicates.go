package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
)

// CheckCanWrite verifies that the principal may modify the document.
// Anonymous users never can. A document in a public workspace requires the
// publish capability even from its owner; a document in a private workspace
// requires write access to that workspace; a document without a workspace is
// writable by its owner only.
func (e *Engine) CheckCanWrite(ctx context.Context, doc model.Document, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	if principal.Anonymous {
		return model.NewAccessControlError("the user doesn't have enough rights")
	}

	if doc.Workspace != nil {
		ws, err := e.workspaces.GetByID(ctx, *doc.Workspace)
		if err != nil {
			return err
		}
		if ws.IsPublic && doc.IsOwnedBy(principal.ID) {
			return e.HasPermPublish(ctx, principal, doc.Kind.PublishCodename())
		}
		writable, err := e.workspaces.CanUserWriteWorkspace(ctx, principal, ws)
		if err != nil {
			return err
		}
		if !writable {
			return model.NewAccessControlError("the user doesn't have enough rights")
		}
		return nil
	}

	if !doc.IsOwnedBy(principal.ID) {
		return model.NewAccessControlError("the user doesn't have enough rights")
	}
	return nil
}

// CheckCanRead verifies that the principal may read the document. Anonymous
// access is only allowed to public-workspace documents, and only when the
// deployment switch enables it. Documents without a workspace are strictly
// private to their owner.
func (e *Engine) CheckCanRead(ctx context.Context, doc model.Document, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	if principal.Anonymous {
		return e.checkAnonymousCanRead(ctx, doc)
	}
	if doc.IsOwnedBy(principal.ID) {
		return nil
	}

	if doc.Workspace == nil {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	ws, err := e.workspaces.GetByID(ctx, *doc.Workspace)
	if err != nil {
		return err
	}
	readable, err := e.workspaces.CanUserReadWorkspace(ctx, principal, ws)
	if err != nil {
		return err
	}
	if !readable {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	return nil
}

func (e *Engine) checkAnonymousCanRead(ctx context.Context, doc model.Document) error {
	if !e.cfg.CanAnonymousAccessPublicDocument {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	if doc.Workspace == nil {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	ws, err := e.workspaces.GetByID(ctx, *doc.Workspace)
	if err != nil {
		return err
	}
	if !ws.IsPublic {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	return nil
}

// CheckCanReadList verifies that every document of the batch is readable by
// the principal: each foreign document must sit in a read-accessible
// workspace, and a foreign document without a workspace fails the whole
// batch. This is a coarse post-check run after a query was already scoped.
func (e *Engine) CheckCanReadList(ctx context.Context, docs []model.Document, principal model.Principal) error {
	if principal.Superuser || len(docs) == 0 {
		return nil
	}

	accessible, err := e.workspaces.AllWithReadAccess(ctx, principal)
	if err != nil {
		return err
	}
	readable := make(map[string]struct{}, len(accessible))
	for _, ws := range accessible {
		readable[ws.ID.String()] = struct{}{}
	}

	for _, doc := range docs {
		if doc.IsOwnedBy(principal.ID) {
			continue
		}
		if doc.Workspace == nil {
			return model.NewAccessControlError("the user doesn't have enough rights")
		}
		if _, ok := readable[doc.Workspace.String()]; !ok {
			return model.NewAccessControlError("the user doesn't have enough rights")
		}
	}
	return nil
}

// CanWriteInWorkspace verifies that the principal may place the document
// into the target workspace (nil removes it from its workspace). Moving
// into a public workspace needs the publish capability named by codename;
// moving into a private one needs ordinary write access. The document's
// current state must be writable, and when the deployment forbids
// un-publishing, a document may not leave a public workspace for a private
// destination.
func (e *Engine) CanWriteInWorkspace(
	ctx context.Context,
	doc model.Document,
	target *model.Workspace,
	principal model.Principal,
	publishCodename string,
) error {
	if principal.Superuser {
		return nil
	}

	if target != nil {
		if target.IsPublic {
			if err := e.HasPermPublish(ctx, principal, publishCodename); err != nil {
				return err
			}
		} else {
			writable, err := e.workspaces.CanUserWriteWorkspace(ctx, principal, *target)
			if err != nil {
				return err
			}
			if !writable {
				return model.NewAccessControlError("the user does not have the permission to write into this workspace")
			}
		}
	}

	if err := e.CheckCanWrite(ctx, doc, principal); err != nil {
		return err
	}

	if !e.cfg.CanSetPublicDataToPrivate && doc.Workspace != nil {
		current, err := e.workspaces.GetByID(ctx, *doc.Workspace)
		if err != nil {
			return err
		}
		if current.IsPublic && (target == nil || !target.IsPublic) {
			return model.NewAccessControlError("the document can not be unpublished")
		}
	}
	return nil
}

// CanWriteDocumentInWorkspace binds CanWriteInWorkspace to the publish
// capability of the document's kind.
func (e *Engine) CanWriteDocumentInWorkspace(ctx context.Context, doc model.Document, target *model.Workspace, principal model.Principal) error {
	if !doc.Kind.SupportsWorkspace() {
		return model.NewModelError("documents of this kind cannot be placed in a workspace")
	}
	return e.CanWriteInWorkspace(ctx, doc, target, principal, doc.Kind.PublishCodename())
}

// CanReadOrWriteInWorkspace verifies that the workspace is in the union of
// the principal's read- and write-accessible sets.
func (e *Engine) CanReadOrWriteInWorkspace(ctx context.Context, ws model.Workspace, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	readable, err := e.workspaces.CanUserReadWorkspace(ctx, principal, ws)
	if err != nil {
		return err
	}
	if readable {
		return nil
	}
	writable, err := e.workspaces.CanUserWriteWorkspace(ctx, principal, ws)
	if err != nil {
		return err
	}
	if !writable {
		return model.NewAccessControlError("the user does not have the permission to access this workspace")
	}
	return nil
}

// CanChangeOwner verifies that only the current owner (or a superuser) may
// reassign ownership of a document.
func (e *Engine) CanChangeOwner(_ context.Context, doc model.Document, _ model.UserID, principal model.Principal) error {
	if principal.Superuser {
		return nil
	}
	if !doc.IsOwnedBy(principal.ID) {
		return model.NewAccessControlError("the user doesn't have enough rights")
	}
	return nil
}

// HasPermPublish verifies that the principal holds the publish capability
// named by codename. Unexpected lookup failures are treated as a denial
// (fail closed) and logged.
func (e *Engine) HasPermPublish(ctx context.Context, principal model.Principal, codename string) error {
	if codename == "" {
		return model.NewAccessControlError("the user doesn't have enough rights to publish")
	}
	perm, err := e.perms.GetByCodename(ctx, codename)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			slog.Warn("Publish permission lookup failed", "codename", codename, "error", err)
		}
		return model.NewAccessControlError("the user doesn't have enough rights to publish")
	}
	held, err := e.perms.HasPermission(ctx, principal, perm.Label())
	if err != nil {
		slog.Warn("Publish capability check failed", "codename", codename, "error", err)
		return model.NewAccessControlError("the user doesn't have enough rights to publish")
	}
	if !held {
		return model.NewAccessControlError("the user doesn't have enough rights to publish")
	}
	return nil
}

// CheckHasPerm verifies that the principal holds the capability named by
// codename. Superusers always pass; unexpected lookup failures fail closed.
func (e *Engine) CheckHasPerm(ctx context.Context, principal model.Principal, codename string) error {
	if principal.Superuser {
		return nil
	}
	return e.HasPermPublish(ctx, principal, codename)
}

// CheckAnonymousAccess rejects anonymous principals unless the deployment
// allows anonymous access to public documents.
func (e *Engine) CheckAnonymousAccess(principal model.Principal) error {
	if principal.Anonymous && !e.cfg.CanAnonymousAccessPublicDocument {
		return model.NewAccessControlError("the user doesn't have enough rights to access this")
	}
	return nil
}

// AccessibleWorkspaceIDs returns the ids of workspaces the principal may
// read, in the form consumed by the query-rewriting layer.
func (e *Engine) AccessibleWorkspaceIDs(ctx context.Context, principal model.Principal) ([]uuid.UUID, error) {
	readable, err := e.workspaces.AllWithReadAccess(ctx, principal)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(readable))
	for i, ws := range readable {
		ids[i] = ws.ID
	}
	return ids, nil
}
