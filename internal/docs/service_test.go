package docs_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-server/internal/authz"
	"github.com/docuvault/docuvault-server/internal/config"
	"github.com/docuvault/docuvault-server/internal/docs"
	"github.com/docuvault/docuvault-server/internal/groups"
	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/perms"
	"github.com/docuvault/docuvault-server/internal/store/inmemory"
	"github.com/docuvault/docuvault-server/internal/workspace"
)

var (
	alice = model.Principal{ID: "alice"}
	bob   = model.Principal{ID: "bob"}
	root  = model.Principal{ID: "root", Superuser: true}
	anon  = model.AnonymousPrincipal()
)

type fixture struct {
	svc   *docs.Service
	wsSvc *workspace.Service
	perms *perms.Service
	cfg   *config.Config

	public  model.Workspace // owned by bob, public
	private model.Workspace // owned by bob, private
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := inmemory.New()
	cfg := config.Default()
	permSvc := perms.NewService(st, st)
	groupReg := groups.NewRegistry(st)
	wsSvc := workspace.NewService(st, permSvc, groupReg, cfg)
	engine := authz.NewEngine(wsSvc, permSvc, cfg)
	require.NoError(t, permSvc.EnsureSystemRights(ctx))

	public, err := wsSvc.CreateAndSave(ctx, "Public", "bob", true)
	require.NoError(t, err)
	private, err := wsSvc.CreateAndSave(ctx, "Private", "bob", false)
	require.NoError(t, err)

	return &fixture{
		svc:     docs.NewService(st, engine, cfg),
		wsSvc:   wsSvc,
		perms:   permSvc,
		cfg:     cfg,
		public:  public,
		private: private,
	}
}

func (fx *fixture) create(t *testing.T, doc model.Document, principal model.Principal) model.Document {
	t.Helper()
	created, err := fx.svc.Create(context.Background(), doc, principal)
	require.NoError(t, err)
	return created
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	created, err := fx.svc.Create(ctx, model.Document{Kind: model.KindData, Title: "Report"}, alice)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.UserID("alice"), created.Owner)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	// Ownership claims by regular users are overridden.
	created = fx.create(t, model.Document{Kind: model.KindData, Title: "Mine", Owner: "bob"}, alice)
	assert.Equal(t, model.UserID("alice"), created.Owner)

	// Superusers may create on behalf of another user.
	created = fx.create(t, model.Document{Kind: model.KindData, Title: "For Bob", Owner: "bob"}, root)
	assert.Equal(t, model.UserID("bob"), created.Owner)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	_, err := fx.svc.Create(ctx, model.Document{Kind: model.KindData, Title: "Report"}, anon)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	_, err = fx.svc.Create(ctx, model.Document{Kind: model.KindData, Title: "  "}, alice)
	require.Error(t, err)
	assert.True(t, model.IsModelError(err))

	_, err = fx.svc.Create(ctx, model.Document{Title: "Report"}, alice)
	require.Error(t, err)
	assert.True(t, model.IsModelError(err))
}

func TestCreateInWorkspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	// No write access to bob's private workspace.
	_, err := fx.svc.Create(ctx, model.Document{
		Kind:      model.KindData,
		Title:     "Report",
		Workspace: &fx.private.ID,
	}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, fx.wsSvc.AddUserWriteAccess(ctx, fx.private, "alice", bob))
	created := fx.create(t, model.Document{
		Kind:      model.KindData,
		Title:     "Report",
		Workspace: &fx.private.ID,
	}, alice)
	require.NotNil(t, created.Workspace)
	assert.Equal(t, fx.private.ID, *created.Workspace)

	// Creating straight into a public workspace is publishing.
	_, err = fx.svc.Create(ctx, model.Document{
		Kind:      model.KindData,
		Title:     "Announcement",
		Workspace: &fx.public.ID,
	}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// An unknown workspace is reported as absent, not forbidden.
	missing := uuid.New()
	_, err = fx.svc.Create(ctx, model.Document{
		Kind:      model.KindData,
		Title:     "Report",
		Workspace: &missing,
	}, alice)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)

	got, err := fx.svc.Get(ctx, doc.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = fx.svc.Get(ctx, doc.ID, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	_, err = fx.svc.Get(ctx, uuid.New(), alice)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)

	_, err := fx.svc.Update(ctx, doc.ID, "Stolen", nil, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	_, err = fx.svc.Update(ctx, doc.ID, "  ", nil, alice)
	require.Error(t, err)
	assert.True(t, model.IsModelError(err))

	updated, err := fx.svc.Update(ctx, doc.ID, "Final Report", []byte(`{"v":2}`), alice)
	require.NoError(t, err)
	assert.Equal(t, "Final Report", updated.Title)
	assert.Equal(t, []byte(`{"v":2}`), updated.Content)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt) || updated.UpdatedAt.Equal(doc.UpdatedAt))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)

	err := fx.svc.Delete(ctx, doc.ID, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, fx.svc.Delete(ctx, doc.ID, alice))
	_, err = fx.svc.Get(ctx, doc.ID, alice)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAssignWorkspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)

	_, err := fx.svc.AssignWorkspace(ctx, doc.ID, &fx.private.ID, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, fx.wsSvc.AddUserWriteAccess(ctx, fx.private, "alice", bob))
	moved, err := fx.svc.AssignWorkspace(ctx, doc.ID, &fx.private.ID, alice)
	require.NoError(t, err)
	require.NotNil(t, moved.Workspace)
	assert.Equal(t, fx.private.ID, *moved.Workspace)

	// And back out again.
	moved, err = fx.svc.AssignWorkspace(ctx, doc.ID, nil, alice)
	require.NoError(t, err)
	assert.Nil(t, moved.Workspace)
}

func TestAssignWorkspaceUnpublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	publish, err := fx.perms.GetByCodename(ctx, model.PublishDataCodename)
	require.NoError(t, err)
	require.NoError(t, fx.perms.AddPermissionToUser(ctx, "alice", publish.ID))

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)
	_, err = fx.svc.AssignWorkspace(ctx, doc.ID, &fx.public.ID, alice)
	require.NoError(t, err)

	// Pulling a published document back out is forbidden under the
	// restrictive default deployment.
	_, err = fx.svc.AssignWorkspace(ctx, doc.ID, nil, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	fx.cfg.CanSetPublicDataToPrivate = true
	moved, err := fx.svc.AssignWorkspace(ctx, doc.ID, nil, alice)
	require.NoError(t, err)
	assert.Nil(t, moved.Workspace)
}

func TestChangeOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	doc := fx.create(t, model.Document{Kind: model.KindData, Title: "Report"}, alice)

	_, err := fx.svc.ChangeOwner(ctx, doc.ID, "bob", bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	_, err = fx.svc.ChangeOwner(ctx, doc.ID, "", alice)
	require.Error(t, err)
	assert.True(t, model.IsModelError(err))

	changed, err := fx.svc.ChangeOwner(ctx, doc.ID, "bob", alice)
	require.NoError(t, err)
	assert.Equal(t, model.UserID("bob"), changed.Owner)
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	fx.create(t, model.Document{Kind: model.KindData, Title: "Own"}, alice)
	fx.create(t, model.Document{Kind: model.KindData, Title: "Published", Workspace: &fx.public.ID}, bob)
	fx.create(t, model.Document{Kind: model.KindData, Title: "Hidden", Workspace: &fx.private.ID}, bob)
	fx.create(t, model.Document{Kind: model.KindBlob, Title: "Own Blob"}, alice)

	// Default scope: own documents plus readable workspaces.
	list, err := fx.svc.List(ctx, docs.Filter{}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Own", "Published", "Own Blob"}, docTitles(list))

	// Kind filter.
	list, err = fx.svc.List(ctx, docs.Filter{Kind: model.KindData}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Own", "Published"}, docTitles(list))

	// Title filter.
	list, err = fx.svc.List(ctx, docs.Filter{TitleContains: "blob"}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Own Blob"}, docTitles(list))

	// Workspace filter narrows to the named workspace only.
	list, err = fx.svc.List(ctx, docs.Filter{Workspaces: []*uuid.UUID{&fx.public.ID}}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Published"}, docTitles(list))

	// Naming an inaccessible workspace is a denial, not an empty result.
	_, err = fx.svc.List(ctx, docs.Filter{Workspaces: []*uuid.UUID{&fx.private.ID}}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Regular users may only filter on their own ownership.
	list, err = fx.svc.List(ctx, docs.Filter{Owners: []model.UserID{"alice"}}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Own", "Own Blob"}, docTitles(list))

	_, err = fx.svc.List(ctx, docs.Filter{Owners: []model.UserID{"bob"}}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Superusers see everything and may filter freely.
	list, err = fx.svc.List(ctx, docs.Filter{}, root)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	list, err = fx.svc.List(ctx, docs.Filter{Owners: []model.UserID{"bob"}}, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Published", "Hidden"}, docTitles(list))
}

func TestListOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	fx.create(t, model.Document{Kind: model.KindData, Title: "Beta"}, alice)
	fx.create(t, model.Document{Kind: model.KindData, Title: "Alpha"}, alice)

	list, err := fx.svc.List(ctx, docs.Filter{Order: "title"}, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, docTitles(list))

	list, err = fx.svc.List(ctx, docs.Filter{Order: "-title"}, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta", "Alpha"}, docTitles(list))
}

func TestListAnonymous(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	fx.create(t, model.Document{Kind: model.KindData, Title: "Published", Workspace: &fx.public.ID}, bob)
	fx.create(t, model.Document{Kind: model.KindData, Title: "Own"}, bob)

	// The workspace-level scope already hides everything outside public
	// workspaces; the verification pass then applies the anonymous rules.
	fx.cfg.CanAnonymousAccessPublicDocument = true
	list, err := fx.svc.List(ctx, docs.Filter{}, anon)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Published"}, docTitles(list))
}

func docTitles(list []model.Document) []string {
	out := make([]string, len(list))
	for i, doc := range list {
		out[i] = doc.Title
	}
	return out
}
