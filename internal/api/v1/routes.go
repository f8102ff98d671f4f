// Package v1 provides the REST API v1 endpoints for workspaces, documents
// and groups.
package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docuvault/docuvault-server/internal/docs"
	"github.com/docuvault/docuvault-server/internal/groups"
	"github.com/docuvault/docuvault-server/internal/workspace"
)

// Routes handles HTTP requests for the v1 API endpoints.
type Routes struct {
	workspaces *workspace.Service
	documents  *docs.Service
	groups     *groups.Registry
}

// NewRoutes creates a new Routes instance with the given services.
func NewRoutes(workspaces *workspace.Service, documents *docs.Service, groupReg *groups.Registry) *Routes {
	return &Routes{
		workspaces: workspaces,
		documents:  documents,
		groups:     groupReg,
	}
}

// Router creates and configures the HTTP router for the v1 API endpoints.
func Router(workspaces *workspace.Service, documents *docs.Service, groupReg *groups.Registry) http.Handler {
	routes := NewRoutes(workspaces, documents, groupReg)

	r := chi.NewRouter()

	r.Route("/workspaces", func(r chi.Router) {
		r.Get("/", routes.listWorkspaces)
		r.Post("/", routes.createWorkspace)
		r.Get("/global", routes.getGlobalWorkspace)
		r.Route("/{workspaceID}", func(r chi.Router) {
			r.Get("/", routes.getWorkspace)
			r.Delete("/", routes.deleteWorkspace)
			r.Patch("/title", routes.setWorkspaceTitle)
			r.Post("/publish", routes.publishWorkspace)
			r.Post("/unpublish", routes.unpublishWorkspace)
			r.Get("/access", routes.getWorkspaceAccess)
			r.Post("/access/grant", routes.grantWorkspaceAccess)
			r.Post("/access/revoke", routes.revokeWorkspaceAccess)
		})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", routes.listDocuments)
		r.Post("/", routes.createDocument)
		r.Route("/{documentID}", func(r chi.Router) {
			r.Get("/", routes.getDocument)
			r.Put("/", routes.updateDocument)
			r.Delete("/", routes.deleteDocument)
			r.Patch("/workspace", routes.assignDocumentWorkspace)
			r.Patch("/owner", routes.changeDocumentOwner)
		})
	})

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", routes.listGroups)
		r.Post("/", routes.createGroup)
		r.Route("/{groupID}/members", func(r chi.Router) {
			r.Post("/", routes.addGroupMember)
			r.Delete("/{userID}", routes.removeGroupMember)
		})
	})

	return r
}
