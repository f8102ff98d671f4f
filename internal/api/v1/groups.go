package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/api/common"
	"github.com/docuvault/docuvault-server/internal/model"
)

// groupResponse is the wire representation of a group.
type groupResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (routes *Routes) listGroups(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	if principal.Anonymous {
		common.WriteErrorResponse(w, "authentication required", http.StatusForbidden)
		return
	}

	var (
		list []model.Group
		err  error
	)
	if principal.Superuser || principal.Staff {
		list, err = routes.groups.GetAll(r.Context())
	} else {
		list, err = routes.groups.GroupsForUser(r.Context(), principal.ID)
	}
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	out := make([]groupResponse, len(list))
	for i, group := range list {
		out[i] = groupResponse{ID: group.ID.String(), Name: group.Name}
	}
	common.WriteJSONResponse(w, out, http.StatusOK)
}

// createGroupRequest is the payload for creating a group.
type createGroupRequest struct {
	Name string `json:"name"`
}

func (routes *Routes) createGroup(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	if !principal.Superuser && !principal.Staff {
		common.WriteErrorResponse(w, "the user doesn't have enough rights", http.StatusForbidden)
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		common.WriteErrorResponse(w, "name is required", http.StatusBadRequest)
		return
	}

	group, err := routes.groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, groupResponse{ID: group.ID.String(), Name: group.Name}, http.StatusCreated)
}

// addMemberRequest is the payload for adding a user to a group.
type addMemberRequest struct {
	UserID string `json:"user_id"`
}

func (routes *Routes) addGroupMember(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	if !principal.Superuser && !principal.Staff {
		common.WriteErrorResponse(w, "the user doesn't have enough rights", http.StatusForbidden)
		return
	}

	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		common.WriteErrorResponse(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := routes.groups.AddMember(r.Context(), groupID, model.UserID(req.UserID)); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (routes *Routes) removeGroupMember(w http.ResponseWriter, r *http.Request) {
	principal := common.PrincipalFromContext(r.Context())
	if !principal.Superuser && !principal.Staff {
		common.WriteErrorResponse(w, "the user doesn't have enough rights", http.StatusForbidden)
		return
	}

	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		common.WriteErrorResponse(w, "user id is required", http.StatusBadRequest)
		return
	}

	if err := routes.groups.RemoveMember(r.Context(), groupID, model.UserID(userID)); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseGroupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		common.WriteErrorResponse(w, "invalid group id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
