package authz_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-server/internal/authz"
	"github.com/docuvault/docuvault-server/internal/config"
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

type world struct {
	engine *authz.Engine
	perms  *perms.Service
	wsSvc  *workspace.Service
	cfg    *config.Config

	public  model.Workspace // owned by bob, public
	private model.Workspace // owned by bob, private
}

// newWorld builds an engine over the in-memory store with one public and one
// private workspace, both owned by bob, and the system publish rights in
// place.
func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()

	st := inmemory.New()
	cfg := config.Default()
	permSvc := perms.NewService(st, st)
	groupReg := groups.NewRegistry(st)
	wsSvc := workspace.NewService(st, permSvc, groupReg, cfg)
	require.NoError(t, permSvc.EnsureSystemRights(ctx))

	public, err := wsSvc.CreateAndSave(ctx, "Public", "bob", true)
	require.NoError(t, err)
	private, err := wsSvc.CreateAndSave(ctx, "Private", "bob", false)
	require.NoError(t, err)

	return &world{
		engine:  authz.NewEngine(wsSvc, permSvc, cfg),
		perms:   permSvc,
		wsSvc:   wsSvc,
		cfg:     cfg,
		public:  public,
		private: private,
	}
}

func (w *world) grantPublish(t *testing.T, user model.UserID, codename string) {
	t.Helper()
	perm, err := w.perms.GetByCodename(context.Background(), codename)
	require.NoError(t, err)
	require.NoError(t, w.perms.AddPermissionToUser(context.Background(), user, perm.ID))
}

func TestCheckCanRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	own := model.Document{Kind: model.KindData, Owner: "alice"}
	foreign := model.Document{Kind: model.KindData, Owner: "bob"}
	inPublic := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.public.ID}
	inPrivate := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.private.ID}

	// Owners read their own documents, assigned or not.
	assert.NoError(t, w.engine.CheckCanRead(ctx, own, alice))

	// A foreign document without a workspace is invisible.
	err := w.engine.CheckCanRead(ctx, foreign, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Public workspaces grant read to everyone signed in.
	assert.NoError(t, w.engine.CheckCanRead(ctx, inPublic, alice))

	// Private workspaces need a grant.
	err = w.engine.CheckCanRead(ctx, inPrivate, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, w.wsSvc.AddUserReadAccess(ctx, w.private, "alice", bob))
	assert.NoError(t, w.engine.CheckCanRead(ctx, inPrivate, alice))

	// Superusers bypass everything.
	assert.NoError(t, w.engine.CheckCanRead(ctx, inPrivate, root))
	assert.NoError(t, w.engine.CheckCanRead(ctx, foreign, root))
}

func TestCheckCanReadAnonymous(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	inPublic := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.public.ID}
	inPrivate := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.private.ID}

	// Denied while the deployment switch is off.
	err := w.engine.CheckCanRead(ctx, inPublic, anon)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	w.cfg.CanAnonymousAccessPublicDocument = true
	assert.NoError(t, w.engine.CheckCanRead(ctx, inPublic, anon))

	// Even then, only public-workspace documents are visible.
	err = w.engine.CheckCanRead(ctx, inPrivate, anon)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))
	err = w.engine.CheckCanRead(ctx, model.Document{Kind: model.KindData, Owner: "bob"}, anon)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))
}

func TestCheckCanWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	own := model.Document{Kind: model.KindData, Owner: "alice"}
	foreign := model.Document{Kind: model.KindData, Owner: "bob"}
	inPrivate := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.private.ID}

	// Owners write their own unassigned documents.
	assert.NoError(t, w.engine.CheckCanWrite(ctx, own, alice))

	err := w.engine.CheckCanWrite(ctx, foreign, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Anonymous users never write.
	err = w.engine.CheckCanWrite(ctx, own, anon)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Workspace write access is required for assigned documents.
	err = w.engine.CheckCanWrite(ctx, inPrivate, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, w.wsSvc.AddUserWriteAccess(ctx, w.private, "alice", bob))
	assert.NoError(t, w.engine.CheckCanWrite(ctx, inPrivate, alice))

	assert.NoError(t, w.engine.CheckCanWrite(ctx, foreign, root))
}

func TestCheckCanWritePublishedDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	// bob owns a document sitting in his own public workspace. Even the
	// owner needs the publish capability to touch published data.
	published := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.public.ID}

	err := w.engine.CheckCanWrite(ctx, published, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	w.grantPublish(t, "bob", model.PublishDataCodename)
	assert.NoError(t, w.engine.CheckCanWrite(ctx, published, bob))
}

func TestCheckCanReadList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	own := model.Document{Kind: model.KindData, Owner: "alice"}
	inPublic := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.public.ID}
	inPrivate := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.private.ID}
	foreign := model.Document{Kind: model.KindData, Owner: "bob"}

	assert.NoError(t, w.engine.CheckCanReadList(ctx, []model.Document{own, inPublic}, alice))

	// One unreadable document fails the whole batch.
	err := w.engine.CheckCanReadList(ctx, []model.Document{own, inPrivate}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	err = w.engine.CheckCanReadList(ctx, []model.Document{foreign}, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	assert.NoError(t, w.engine.CheckCanReadList(ctx, []model.Document{inPrivate, foreign}, root))
	assert.NoError(t, w.engine.CheckCanReadList(ctx, nil, alice))
}

func TestCanWriteDocumentInWorkspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	own := model.Document{Kind: model.KindData, Owner: "alice"}

	// Moving into a private workspace needs write access there.
	err := w.engine.CanWriteDocumentInWorkspace(ctx, own, &w.private, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	require.NoError(t, w.wsSvc.AddUserWriteAccess(ctx, w.private, "alice", bob))
	assert.NoError(t, w.engine.CanWriteDocumentInWorkspace(ctx, own, &w.private, alice))

	// Moving into a public workspace needs the kind's publish capability,
	// write grants are not enough.
	err = w.engine.CanWriteDocumentInWorkspace(ctx, own, &w.public, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	w.grantPublish(t, "alice", model.PublishDataCodename)
	assert.NoError(t, w.engine.CanWriteDocumentInWorkspace(ctx, own, &w.public, alice))

	// User preferences never enter a workspace.
	prefs := model.Document{Kind: model.KindUserPreferences, Owner: "alice"}
	err = w.engine.CanWriteDocumentInWorkspace(ctx, prefs, &w.private, alice)
	require.Error(t, err)
	assert.True(t, model.IsModelError(err))
}

func TestCanWriteInWorkspaceUnpublishGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	w.grantPublish(t, "bob", model.PublishDataCodename)
	published := model.Document{Kind: model.KindData, Owner: "bob", Workspace: &w.public.ID}

	// Moving a published document to a private destination is an
	// un-publish; the restrictive default forbids it even for the owner.
	err := w.engine.CanWriteDocumentInWorkspace(ctx, published, nil, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	err = w.engine.CanWriteDocumentInWorkspace(ctx, published, &w.private, bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// Public to public stays published and passes.
	assert.NoError(t, w.engine.CanWriteDocumentInWorkspace(ctx, published, &w.public, bob))

	w.cfg.CanSetPublicDataToPrivate = true
	assert.NoError(t, w.engine.CanWriteDocumentInWorkspace(ctx, published, nil, bob))

	// Superusers bypass the guard entirely.
	w.cfg.CanSetPublicDataToPrivate = false
	assert.NoError(t, w.engine.CanWriteDocumentInWorkspace(ctx, published, nil, root))
}

func TestCanReadOrWriteInWorkspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	// Public workspaces are readable, hence usable.
	assert.NoError(t, w.engine.CanReadOrWriteInWorkspace(ctx, w.public, alice))

	err := w.engine.CanReadOrWriteInWorkspace(ctx, w.private, alice)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	// A write-only grant also clears the workspace for use.
	require.NoError(t, w.wsSvc.AddUserWriteAccess(ctx, w.private, "alice", bob))
	assert.NoError(t, w.engine.CanReadOrWriteInWorkspace(ctx, w.private, alice))

	assert.NoError(t, w.engine.CanReadOrWriteInWorkspace(ctx, w.private, root))
}

func TestCanChangeOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	doc := model.Document{Kind: model.KindData, Owner: "alice"}

	assert.NoError(t, w.engine.CanChangeOwner(ctx, doc, "bob", alice))

	err := w.engine.CanChangeOwner(ctx, doc, "bob", bob)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	assert.NoError(t, w.engine.CanChangeOwner(ctx, doc, "bob", root))
}

func TestCheckHasPerm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	err := w.engine.CheckHasPerm(ctx, alice, model.PublishDataCodename)
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	w.grantPublish(t, "alice", model.PublishDataCodename)
	assert.NoError(t, w.engine.CheckHasPerm(ctx, alice, model.PublishDataCodename))

	// Kinds without a publish capability always fail closed.
	err = w.engine.CheckHasPerm(ctx, alice, "")
	require.Error(t, err)
	assert.True(t, model.IsAccessControlError(err))

	assert.NoError(t, w.engine.CheckHasPerm(ctx, root, ""))
}

func TestAuthorizeDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	own := model.Document{Kind: model.KindData, Owner: "alice"}

	assert.NoError(t, w.engine.Authorize(ctx, alice, authz.Request{
		Action:   authz.ActionRead,
		Document: &own,
	}))
	assert.NoError(t, w.engine.Authorize(ctx, alice, authz.Request{
		Action:   authz.ActionWrite,
		Document: &own,
	}))
	assert.NoError(t, w.engine.Authorize(ctx, alice, authz.Request{
		Action:   authz.ActionChangeOwner,
		Document: &own,
		NewOwner: "bob",
	}))
	assert.NoError(t, w.engine.Authorize(ctx, alice, authz.Request{
		Action:          authz.ActionUseWorkspace,
		TargetWorkspace: &w.public,
	}))

	// Malformed requests are plain errors, not denials.
	err := w.engine.Authorize(ctx, alice, authz.Request{Action: authz.ActionRead})
	require.Error(t, err)
	assert.False(t, model.IsAccessControlError(err))

	err = w.engine.Authorize(ctx, alice, authz.Request{Action: "frobnicate"})
	require.Error(t, err)
	assert.False(t, model.IsAccessControlError(err))
}

func TestAccessibleWorkspaceIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	ids, err := w.engine.AccessibleWorkspaceIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w.public.ID}, ids)

	require.NoError(t, w.wsSvc.AddUserReadAccess(ctx, w.private, "alice", bob))
	ids, err = w.engine.AccessibleWorkspaceIDs(ctx, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{w.public.ID, w.private.ID}, ids)
}
