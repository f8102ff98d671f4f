// Package authz implements the authorization decision layer: a policy
// engine evaluating per-resource predicates before a business operation is
// allowed to run. Every guarded operation calls Authorize (or one of the
// predicate methods) with the acting principal; the only outcomes are
// clearance or an AccessControlError.
package authz

import (
	"context"
	"fmt"

	"github.com/docuvault/docuvault-server/internal/config"
	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/perms"
	"github.com/docuvault/docuvault-server/internal/workspace"
)

// Action is the kind of operation a principal wants to perform on a
// resource.
type Action string

// Actions understood by the policy engine.
const (
	ActionRead            Action = "read"
	ActionWrite           Action = "write"
	ActionAssignWorkspace Action = "assign_workspace"
	ActionChangeOwner     Action = "change_owner"
	ActionUseWorkspace    Action = "use_workspace"
)

// Request describes an authorization request: the action plus the resource
// state it targets. Exactly the fields relevant to the action need to be
// set.
type Request struct {
	Action Action

	// Document is the document being read, written or reassigned.
	Document *model.Document

	// TargetWorkspace is the destination for assign-workspace requests; nil
	// removes the document from its workspace. For use-workspace requests it
	// is the workspace being accessed.
	TargetWorkspace *model.Workspace

	// NewOwner is the proposed owner for change-owner requests.
	NewOwner model.UserID
}

// Engine evaluates authorization decisions against workspace state and the
// permission store.
type Engine struct {
	workspaces *workspace.Service
	perms      *perms.Service
	cfg        *config.Config
}

// NewEngine creates a policy engine.
func NewEngine(workspaces *workspace.Service, permSvc *perms.Service, cfg *config.Config) *Engine {
	return &Engine{workspaces: workspaces, perms: permSvc, cfg: cfg}
}

// Workspaces exposes the workspace service the engine decides against, for
// callers that need to resolve workspace state around an authorization.
func (e *Engine) Workspaces() *workspace.Service {
	return e.workspaces
}

// Authorize checks whether the principal may perform the requested action.
// It returns nil to clear the operation and an AccessControlError (or
// ModelError for domain-rule violations) otherwise.
func (e *Engine) Authorize(ctx context.Context, principal model.Principal, req Request) error {
	switch req.Action {
	case ActionRead:
		if req.Document == nil {
			return fmt.Errorf("read request without a document")
		}
		return e.CheckCanRead(ctx, *req.Document, principal)
	case ActionWrite:
		if req.Document == nil {
			return fmt.Errorf("write request without a document")
		}
		return e.CheckCanWrite(ctx, *req.Document, principal)
	case ActionAssignWorkspace:
		if req.Document == nil {
			return fmt.Errorf("assign-workspace request without a document")
		}
		return e.CanWriteDocumentInWorkspace(ctx, *req.Document, req.TargetWorkspace, principal)
	case ActionChangeOwner:
		if req.Document == nil {
			return fmt.Errorf("change-owner request without a document")
		}
		return e.CanChangeOwner(ctx, *req.Document, req.NewOwner, principal)
	case ActionUseWorkspace:
		if req.TargetWorkspace == nil {
			return fmt.Errorf("use-workspace request without a workspace")
		}
		return e.CanReadOrWriteInWorkspace(ctx, *req.TargetWorkspace, principal)
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}
