// Package inmemory provides an in-memory implementation of the store
// interfaces, used for tests and for running the server without a database.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/query"
	"github.com/docuvault/docuvault-server/internal/store"
)

// memStore implements store.Store with mutex-guarded maps.
type memStore struct {
	mu sync.RWMutex

	permissions map[uuid.UUID]model.Permission
	userGrants  map[uuid.UUID]map[model.UserID]struct{}
	groupGrants map[uuid.UUID]map[uuid.UUID]struct{}

	groups  map[uuid.UUID]model.Group
	members map[uuid.UUID]map[model.UserID]struct{}

	workspaces map[uuid.UUID]model.Workspace
	documents  map[uuid.UUID]model.Document
}

var _ store.Store = (*memStore)(nil)

// New creates an empty in-memory store.
func New() store.Store {
	return &memStore{
		permissions: make(map[uuid.UUID]model.Permission),
		userGrants:  make(map[uuid.UUID]map[model.UserID]struct{}),
		groupGrants: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		groups:      make(map[uuid.UUID]model.Group),
		members:     make(map[uuid.UUID]map[model.UserID]struct{}),
		workspaces:  make(map[uuid.UUID]model.Workspace),
		documents:   make(map[uuid.UUID]model.Document),
	}
}

// Ping always succeeds for the in-memory backend.
func (*memStore) Ping(context.Context) error {
	return nil
}

// --- permissions ---

func (s *memStore) CreatePermission(_ context.Context, perm model.Permission) (model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.permissions {
		if existing.Codename == perm.Codename && existing.ContentType == perm.ContentType {
			return model.Permission{}, model.NewNotUniqueError("the permission already exists")
		}
	}
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	s.permissions[perm.ID] = perm
	return perm, nil
}

func (s *memStore) GetPermissionByID(_ context.Context, id uuid.UUID) (model.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perm, ok := s.permissions[id]
	if !ok {
		return model.Permission{}, model.ErrNotFound
	}
	return perm, nil
}

func (s *memStore) GetPermissionByCodename(_ context.Context, codename string) (model.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, perm := range s.permissions {
		if perm.Codename == codename {
			return perm, nil
		}
	}
	return model.Permission{}, model.ErrNotFound
}

func (s *memStore) ListPermissionsByPrefix(_ context.Context, contentType, codenamePrefix string) ([]model.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Permission
	for _, perm := range s.permissions {
		if perm.ContentType == contentType && strings.HasPrefix(perm.Codename, codenamePrefix) {
			out = append(out, perm)
		}
	}
	sortPermissions(out)
	return out, nil
}

func (s *memStore) DeletePermission(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.permissions, id)
	delete(s.userGrants, id)
	delete(s.groupGrants, id)
	return nil
}

func (s *memStore) GrantToUser(_ context.Context, permID uuid.UUID, user model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[permID]; !ok {
		return model.ErrNotFound
	}
	if s.userGrants[permID] == nil {
		s.userGrants[permID] = make(map[model.UserID]struct{})
	}
	s.userGrants[permID][user] = struct{}{}
	return nil
}

func (s *memStore) RevokeFromUser(_ context.Context, permID uuid.UUID, user model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.userGrants[permID], user)
	return nil
}

func (s *memStore) GrantToGroup(_ context.Context, permID, groupID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[permID]; !ok {
		return model.ErrNotFound
	}
	if s.groupGrants[permID] == nil {
		s.groupGrants[permID] = make(map[uuid.UUID]struct{})
	}
	s.groupGrants[permID][groupID] = struct{}{}
	return nil
}

func (s *memStore) RevokeFromGroup(_ context.Context, permID, groupID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groupGrants[permID], groupID)
	return nil
}

func (s *memStore) PermissionsForUser(_ context.Context, user model.UserID, contentType, codenamePrefix string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for id, perm := range s.permissions {
		if perm.ContentType != contentType || !strings.HasPrefix(perm.Codename, codenamePrefix) {
			continue
		}
		if s.userHoldsLocked(user, id) {
			out = append(out, id)
		}
	}
	sortUUIDs(out)
	return out, nil
}

func (s *memStore) PermissionsForGroup(_ context.Context, groupID uuid.UUID, contentType, codenamePrefix string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for id, perm := range s.permissions {
		if perm.ContentType != contentType || !strings.HasPrefix(perm.Codename, codenamePrefix) {
			continue
		}
		if _, ok := s.groupGrants[id][groupID]; ok {
			out = append(out, id)
		}
	}
	sortUUIDs(out)
	return out, nil
}

func (s *memStore) UserHoldsPermission(_ context.Context, user model.UserID, permID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userHoldsLocked(user, permID), nil
}

// userHoldsLocked checks direct grants and grants through group membership.
// Caller must hold s.mu.
func (s *memStore) userHoldsLocked(user model.UserID, permID uuid.UUID) bool {
	if _, ok := s.userGrants[permID][user]; ok {
		return true
	}
	for groupID := range s.groupGrants[permID] {
		if _, ok := s.members[groupID][user]; ok {
			return true
		}
	}
	return false
}

func (s *memStore) GroupHoldsPermission(_ context.Context, groupID, permID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.groupGrants[permID][groupID]
	return ok, nil
}

func (s *memStore) UsersWithPermission(_ context.Context, permID uuid.UUID) ([]model.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UserID, 0, len(s.userGrants[permID]))
	for user := range s.userGrants[permID] {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) GroupsWithPermission(_ context.Context, permID uuid.UUID) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Group
	for groupID := range s.groupGrants[permID] {
		if group, ok := s.groups[groupID]; ok {
			out = append(out, group)
		}
	}
	sortGroups(out)
	return out, nil
}

// --- groups ---

func (s *memStore) CreateGroup(_ context.Context, group model.Group) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if existing.Name == group.Name {
			return model.Group{}, model.NewNotUniqueError("the group already exists")
		}
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	s.groups[group.ID] = group
	return group, nil
}

func (s *memStore) GetGroupByName(_ context.Context, name string) (model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, group := range s.groups {
		if group.Name == name {
			return group, nil
		}
	}
	return model.Group{}, model.ErrNotFound
}

func (s *memStore) GroupsByNameAndPermission(_ context.Context, name, permissionCodename string) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Group
	for _, group := range s.groups {
		if group.Name != name {
			continue
		}
		for permID := range s.groupGrants {
			perm, ok := s.permissions[permID]
			if !ok || perm.Codename != permissionCodename {
				continue
			}
			if _, granted := s.groupGrants[permID][group.ID]; granted {
				out = append(out, group)
				break
			}
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *memStore) ListGroups(_ context.Context) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Group, 0, len(s.groups))
	for _, group := range s.groups {
		out = append(out, group)
	}
	sortGroups(out)
	return out, nil
}

func (s *memStore) GroupsForUser(_ context.Context, user model.UserID) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Group
	for groupID, members := range s.members {
		if _, ok := members[user]; !ok {
			continue
		}
		if group, found := s.groups[groupID]; found {
			out = append(out, group)
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *memStore) AddGroupMember(_ context.Context, groupID uuid.UUID, user model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return model.ErrNotFound
	}
	if s.members[groupID] == nil {
		s.members[groupID] = make(map[model.UserID]struct{})
	}
	s.members[groupID][user] = struct{}{}
	return nil
}

func (s *memStore) RemoveGroupMember(_ context.Context, groupID uuid.UUID, user model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members[groupID], user)
	return nil
}

// --- workspaces ---

func (s *memStore) CreateWorkspace(_ context.Context, ws model.Workspace) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.workspaces {
		if existing.Owner == ws.Owner && strings.EqualFold(existing.Title, ws.Title) {
			return model.Workspace{}, model.NewNotUniqueError("a workspace with the same title already exists")
		}
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	s.workspaces[ws.ID] = ws
	return ws, nil
}

func (s *memStore) SaveWorkspace(_ context.Context, ws model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[ws.ID]; !ok {
		return model.ErrNotFound
	}
	s.workspaces[ws.ID] = ws
	return nil
}

func (s *memStore) DeleteWorkspace(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.workspaces, id)
	return nil
}

func (s *memStore) GetWorkspaceByID(_ context.Context, id uuid.UUID) (model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return model.Workspace{}, model.ErrNotFound
	}
	return ws, nil
}

func (s *memStore) GetGlobalWorkspace(_ context.Context) (model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ws := range s.workspaces {
		if ws.IsGlobal() {
			return ws, nil
		}
	}
	return model.Workspace{}, model.ErrNotFound
}

func (s *memStore) ListWorkspaces(_ context.Context) ([]model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterWorkspacesLocked(func(model.Workspace) bool { return true }), nil
}

func (s *memStore) ListWorkspacesByOwner(_ context.Context, owner model.UserID) ([]model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterWorkspacesLocked(func(ws model.Workspace) bool {
		return ws.IsOwnedBy(owner)
	}), nil
}

func (s *memStore) ListPublicWorkspaces(_ context.Context) ([]model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterWorkspacesLocked(func(ws model.Workspace) bool {
		return ws.IsPublic
	}), nil
}

func (s *memStore) ListWorkspacesWithReadAccess(_ context.Context, user model.UserID, readPermIDs []uuid.UUID) ([]model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	permSet := uuidSet(readPermIDs)
	return s.filterWorkspacesLocked(func(ws model.Workspace) bool {
		if ws.IsPublic || ws.IsOwnedBy(user) {
			return true
		}
		_, ok := permSet[ws.ReadPermID]
		return ok
	}), nil
}

func (s *memStore) ListWorkspacesWithWriteAccess(_ context.Context, user model.UserID, writePermIDs []uuid.UUID) ([]model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	permSet := uuidSet(writePermIDs)
	return s.filterWorkspacesLocked(func(ws model.Workspace) bool {
		if ws.IsOwnedBy(user) {
			return true
		}
		_, ok := permSet[ws.WritePermID]
		return ok
	}), nil
}

// filterWorkspacesLocked collects workspaces matching the predicate, sorted
// by title for deterministic listings. Caller must hold s.mu.
func (s *memStore) filterWorkspacesLocked(keep func(model.Workspace) bool) []model.Workspace {
	var out []model.Workspace
	for _, ws := range s.workspaces {
		if keep(ws) {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// --- documents ---

func (s *memStore) CreateDocument(_ context.Context, doc model.Document) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	s.documents[doc.ID] = doc
	return doc, nil
}

func (s *memStore) SaveDocument(_ context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; !ok {
		return model.ErrNotFound
	}
	s.documents[doc.ID] = doc
	return nil
}

func (s *memStore) DeleteDocument(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *memStore) GetDocumentByID(_ context.Context, id uuid.UUID) (model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return model.Document{}, model.ErrNotFound
	}
	return doc, nil
}

func (s *memStore) ListDocuments(_ context.Context, criteria query.Criteria, order string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Document
	for _, doc := range s.documents {
		if query.Matches(criteria, doc) {
			out = append(out, doc)
		}
	}
	sortDocuments(out, order)
	return out, nil
}

func sortDocuments(docs []model.Document, order string) {
	field := strings.TrimPrefix(order, "-")
	desc := strings.HasPrefix(order, "-")

	less := func(i, j int) bool {
		a, b := docs[i], docs[j]
		switch field {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	}
	if desc {
		sort.Slice(docs, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.Slice(docs, less)
}

func sortPermissions(perms []model.Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i].Codename < perms[j].Codename })
}

func sortGroups(groups []model.Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

func uuidSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
