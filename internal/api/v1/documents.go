package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/api/common"
	"github.com/docuvault/docuvault-server/internal/docs"
	"github.com/docuvault/docuvault-server/internal/model"
)

// unassignedWorkspace is the query value selecting documents with no
// workspace (superusers only).
const unassignedWorkspace = "unassigned"

// documentResponse is the wire representation of a document.
type documentResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	Workspace *string   `json:"workspace,omitempty"`
	Content   []byte    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDocumentResponse(doc model.Document) documentResponse {
	resp := documentResponse{
		ID:        doc.ID.String(),
		Kind:      string(doc.Kind),
		Title:     doc.Title,
		Owner:     doc.Owner.String(),
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.Workspace != nil {
		ws := doc.Workspace.String()
		resp.Workspace = &ws
	}
	return resp
}

// createDocumentRequest is the payload for creating a document.
type createDocumentRequest struct {
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`
	Workspace *string `json:"workspace,omitempty"`
	Content   []byte  `json:"content,omitempty"`
}

func (routes *Routes) createDocument(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}

	doc := model.Document{
		Kind:    model.DocumentKind(req.Kind),
		Title:   req.Title,
		Content: req.Content,
	}
	if req.Workspace != nil {
		wsID, err := uuid.Parse(*req.Workspace)
		if err != nil {
			common.WriteErrorResponse(w, "invalid workspace id", http.StatusBadRequest)
			return
		}
		doc.Workspace = &wsID
	}

	created, err := routes.documents.Create(r.Context(), doc, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toDocumentResponse(created), http.StatusCreated)
}

func (routes *Routes) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	doc, err := routes.documents.Get(r.Context(), id, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toDocumentResponse(doc), http.StatusOK)
}

// updateDocumentRequest is the payload for replacing a document's title and
// content.
type updateDocumentRequest struct {
	Title   string `json:"title"`
	Content []byte `json:"content,omitempty"`
}

func (routes *Routes) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(w, r)
	if !ok {
		return
	}
	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	doc, err := routes.documents.Update(r.Context(), id, req.Title, req.Content, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toDocumentResponse(doc), http.StatusOK)
}

func (routes *Routes) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	if err := routes.documents.Delete(r.Context(), id, principal); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assignWorkspaceRequest is the payload for moving a document between
// workspaces. A null workspace removes the document from its workspace.
type assignWorkspaceRequest struct {
	Workspace *string `json:"workspace"`
}

func (routes *Routes) assignDocumentWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(w, r)
	if !ok {
		return
	}
	var req assignWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var target *uuid.UUID
	if req.Workspace != nil {
		wsID, err := uuid.Parse(*req.Workspace)
		if err != nil {
			common.WriteErrorResponse(w, "invalid workspace id", http.StatusBadRequest)
			return
		}
		target = &wsID
	}

	principal := common.PrincipalFromContext(r.Context())
	doc, err := routes.documents.AssignWorkspace(r.Context(), id, target, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toDocumentResponse(doc), http.StatusOK)
}

// changeOwnerRequest is the payload for reassigning document ownership.
type changeOwnerRequest struct {
	Owner string `json:"owner"`
}

func (routes *Routes) changeDocumentOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(w, r)
	if !ok {
		return
	}
	var req changeOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	doc, err := routes.documents.ChangeOwner(r.Context(), id, model.UserID(req.Owner), principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toDocumentResponse(doc), http.StatusOK)
}

// listDocuments lists documents visible to the principal. Query parameters:
// kind, title (substring), workspace (repeatable; "unassigned" selects
// documents with no workspace), owner (repeatable) and order.
func (routes *Routes) listDocuments(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	queryParams := r.URL.Query()

	filter := docs.Filter{
		Kind:          model.DocumentKind(queryParams.Get("kind")),
		TitleContains: queryParams.Get("title"),
		Order:         queryParams.Get("order"),
	}
	for _, raw := range queryParams["workspace"] {
		if raw == unassignedWorkspace {
			filter.Workspaces = append(filter.Workspaces, nil)
			continue
		}
		wsID, err := uuid.Parse(raw)
		if err != nil {
			common.WriteErrorResponse(w, "invalid workspace id: "+raw, http.StatusBadRequest)
			return
		}
		filter.Workspaces = append(filter.Workspaces, &wsID)
	}
	for _, owner := range queryParams["owner"] {
		filter.Owners = append(filter.Owners, model.UserID(owner))
	}

	list, err := routes.documents.List(r.Context(), filter, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	out := make([]documentResponse, len(list))
	for i, doc := range list {
		out[i] = toDocumentResponse(doc)
	}
	common.WriteJSONResponse(w, out, http.StatusOK)
}

func parseDocumentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		common.WriteErrorResponse(w, "invalid document id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
