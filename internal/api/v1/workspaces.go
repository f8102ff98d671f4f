package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/api/common"
	"github.com/docuvault/docuvault-server/internal/model"
)

// workspaceResponse is the wire representation of a workspace.
type workspaceResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Owner    string `json:"owner,omitempty"`
	IsPublic bool   `json:"is_public"`
	IsGlobal bool   `json:"is_global"`
}

func toWorkspaceResponse(ws model.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:       ws.ID.String(),
		Title:    ws.Title,
		Owner:    ws.Owner.String(),
		IsPublic: ws.IsPublic,
		IsGlobal: ws.IsGlobal(),
	}
}

func toWorkspaceResponses(list []model.Workspace) []workspaceResponse {
	out := make([]workspaceResponse, len(list))
	for i, ws := range list {
		out[i] = toWorkspaceResponse(ws)
	}
	return out
}

// createWorkspaceRequest is the payload for creating a workspace.
type createWorkspaceRequest struct {
	Title    string `json:"title"`
	IsPublic bool   `json:"is_public"`
}

func (routes *Routes) createWorkspace(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	if principal.Anonymous {
		common.WriteErrorResponse(w, "authentication required", http.StatusForbidden)
		return
	}

	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ws, err := routes.workspaces.CreateAndSave(r.Context(), req.Title, principal.ID, req.IsPublic)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toWorkspaceResponse(ws), http.StatusCreated)
}

// listWorkspaces lists workspaces by scope: readable (default), writable,
// owned, public or all (superusers only).
func (routes *Routes) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())

	var (
		list []model.Workspace
		err  error
	)
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "readable":
		list, err = routes.workspaces.AllWithReadAccess(r.Context(), principal)
	case "writable":
		list, err = routes.workspaces.AllWithWriteAccess(r.Context(), principal)
	case "owned":
		list, err = routes.workspaces.GetAllByOwner(r.Context(), principal.ID)
	case "public":
		list, err = routes.workspaces.GetAllPublic(r.Context())
	case "other_public":
		list, err = routes.workspaces.GetAllOtherPublic(r.Context(), principal.ID)
	case "all":
		if !principal.Superuser {
			common.WriteErrorResponse(w, "the user doesn't have enough rights", http.StatusForbidden)
			return
		}
		list, err = routes.workspaces.GetAll(r.Context())
	default:
		common.WriteErrorResponse(w, "unknown scope: "+scope, http.StatusBadRequest)
		return
	}
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toWorkspaceResponses(list), http.StatusOK)
}

func (routes *Routes) getGlobalWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := routes.workspaces.GetGlobalWorkspace(r.Context())
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, toWorkspaceResponse(ws), http.StatusOK)
}

func (routes *Routes) getWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	common.WriteJSONResponse(w, toWorkspaceResponse(ws), http.StatusOK)
}

func (routes *Routes) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	if err := routes.workspaces.Delete(r.Context(), ws, principal); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setTitleRequest is the payload for renaming a workspace.
type setTitleRequest struct {
	Title string `json:"title"`
}

func (routes *Routes) setWorkspaceTitle(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	var req setTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	if err := routes.workspaces.SetTitle(r.Context(), ws, req.Title, principal); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (routes *Routes) publishWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	if err := routes.workspaces.SetPublic(r.Context(), ws, principal); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (routes *Routes) unpublishWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	if err := routes.workspaces.SetPrivate(r.Context(), ws, principal); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// accessRequest is the payload for granting or revoking workspace access.
// Exactly one of UserID and GroupID must be set.
type accessRequest struct {
	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	Level   string `json:"level"`
}

func (routes *Routes) grantWorkspaceAccess(w http.ResponseWriter, r *http.Request) {
	routes.changeWorkspaceAccess(w, r, true)
}

func (routes *Routes) revokeWorkspaceAccess(w http.ResponseWriter, r *http.Request) {
	routes.changeWorkspaceAccess(w, r, false)
}

func (routes *Routes) changeWorkspaceAccess(w http.ResponseWriter, r *http.Request, grant bool) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Level != "read" && req.Level != "write" {
		common.WriteErrorResponse(w, "level must be read or write", http.StatusBadRequest)
		return
	}
	if (req.UserID == "") == (req.GroupID == "") {
		common.WriteErrorResponse(w, "exactly one of user_id and group_id must be set", http.StatusBadRequest)
		return
	}

	principal := common.PrincipalFromContext(r.Context())
	ctx := r.Context()

	var err error
	switch {
	case req.UserID != "" && grant && req.Level == "read":
		err = routes.workspaces.AddUserReadAccess(ctx, ws, model.UserID(req.UserID), principal)
	case req.UserID != "" && grant:
		err = routes.workspaces.AddUserWriteAccess(ctx, ws, model.UserID(req.UserID), principal)
	case req.UserID != "" && req.Level == "read":
		err = routes.workspaces.RemoveUserReadAccess(ctx, ws, model.UserID(req.UserID), principal)
	case req.UserID != "":
		err = routes.workspaces.RemoveUserWriteAccess(ctx, ws, model.UserID(req.UserID), principal)
	default:
		groupID, parseErr := uuid.Parse(req.GroupID)
		if parseErr != nil {
			common.WriteErrorResponse(w, "invalid group id", http.StatusBadRequest)
			return
		}
		switch {
		case grant && req.Level == "read":
			err = routes.workspaces.AddGroupReadAccess(ctx, ws, groupID, principal)
		case grant:
			err = routes.workspaces.AddGroupWriteAccess(ctx, ws, groupID, principal)
		case req.Level == "read":
			err = routes.workspaces.RemoveGroupReadAccess(ctx, ws, groupID, principal)
		default:
			err = routes.workspaces.RemoveGroupWriteAccess(ctx, ws, groupID, principal)
		}
	}
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// accessResponse describes who can reach a workspace.
type accessResponse struct {
	ReadUsers   []string            `json:"read_users"`
	WriteUsers  []string            `json:"write_users"`
	ReadGroups  []workspaceGroupRef `json:"read_groups"`
	WriteGroups []workspaceGroupRef `json:"write_groups"`
}

type workspaceGroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (routes *Routes) getWorkspaceAccess(w http.ResponseWriter, r *http.Request) {
	ws, ok := routes.resolveWorkspace(w, r)
	if !ok {
		return
	}
	principal := common.PrincipalFromContext(r.Context())
	ctx := r.Context()

	readUsers, err := routes.workspaces.ListUsersWithReadAccess(ctx, ws, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	writeUsers, err := routes.workspaces.ListUsersWithWriteAccess(ctx, ws, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	readGroups, err := routes.workspaces.ListGroupsWithReadAccess(ctx, ws, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	writeGroups, err := routes.workspaces.ListGroupsWithWriteAccess(ctx, ws, principal)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	resp := accessResponse{
		ReadUsers:   userIDStrings(readUsers),
		WriteUsers:  userIDStrings(writeUsers),
		ReadGroups:  toGroupRefs(readGroups),
		WriteGroups: toGroupRefs(writeGroups),
	}
	common.WriteJSONResponse(w, resp, http.StatusOK)
}

func userIDStrings(ids []model.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func toGroupRefs(list []model.Group) []workspaceGroupRef {
	out := make([]workspaceGroupRef, len(list))
	for i, group := range list {
		out[i] = workspaceGroupRef{ID: group.ID.String(), Name: group.Name}
	}
	return out
}

// resolveWorkspace parses the workspace id from the URL and loads the
// workspace, writing the error response itself on failure.
func (routes *Routes) resolveWorkspace(w http.ResponseWriter, r *http.Request) (model.Workspace, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		common.WriteErrorResponse(w, "invalid workspace id", http.StatusBadRequest)
		return model.Workspace{}, false
	}
	ws, err := routes.workspaces.GetByID(r.Context(), id)
	if err != nil {
		common.WriteServiceError(w, err)
		return model.Workspace{}, false
	}
	return ws, true
}
