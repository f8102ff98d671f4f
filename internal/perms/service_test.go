package perms_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/perms"
	"github.com/docuvault/docuvault-server/internal/store/inmemory"
)

func newService(t *testing.T) *perms.Service {
	t.Helper()
	st := inmemory.New()
	return perms.NewService(st, st)
}

func TestCodenames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "can_read_workspace_my_workspace (alice)", perms.ReadCodename("My Workspace", "alice"))
	assert.Equal(t, "can_write_workspace_my_workspace (alice)", perms.WriteCodename("My Workspace", "alice"))
	// Trimmed and case-folded before normalization.
	assert.Equal(t, "can_read_workspace_reports (bob)", perms.ReadCodename("  Reports ", "bob"))
	// Equal titles across owners yield distinct codenames.
	assert.NotEqual(t, perms.ReadCodename("Reports", "alice"), perms.ReadCodename("Reports", "bob"))
}

func TestCreateWorkspacePermissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	readPerm, err := svc.CreateReadPerm(ctx, "My Workspace", "alice")
	require.NoError(t, err)
	assert.Equal(t, "can_read_workspace_my_workspace (alice)", readPerm.Codename)
	assert.Equal(t, "docuvault", readPerm.ContentType)
	assert.Equal(t, "Can read workspace - My Workspace (alice)", readPerm.Name)

	writePerm, err := svc.CreateWritePerm(ctx, "My Workspace", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, readPerm.ID, writePerm.ID)

	// Creating the same pair twice surfaces the uniqueness violation as-is.
	_, err = svc.CreateReadPerm(ctx, "My Workspace", "alice")
	require.Error(t, err)
	assert.True(t, model.IsNotUniqueError(err))
}

func TestHasPermission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	perm, err := svc.CreateReadPerm(ctx, "Shared", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.AddPermissionToUser(ctx, "bob", perm.ID))

	label := "docuvault." + perm.Codename

	held, err := svc.HasPermission(ctx, model.Principal{ID: "bob"}, label)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = svc.HasPermission(ctx, model.Principal{ID: "carol"}, label)
	require.NoError(t, err)
	assert.False(t, held)

	// Superusers hold everything, anonymous principals hold nothing.
	held, err = svc.HasPermission(ctx, model.Principal{ID: "root", Superuser: true}, label)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = svc.HasPermission(ctx, model.AnonymousPrincipal(), label)
	require.NoError(t, err)
	assert.False(t, held)

	// Unknown codenames are a plain denial, not an error.
	held, err = svc.HasPermission(ctx, model.Principal{ID: "bob"}, "docuvault.does_not_exist")
	require.NoError(t, err)
	assert.False(t, held)

	// Wrong namespace does not match.
	held, err = svc.HasPermission(ctx, model.Principal{ID: "bob"}, "other."+perm.Codename)
	require.NoError(t, err)
	assert.False(t, held)

	_, err = svc.HasPermission(ctx, model.Principal{ID: "bob"}, "not-a-label")
	assert.Error(t, err)
}

func TestGrantsAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	perm, err := svc.CreateWritePerm(ctx, "Shared", "alice")
	require.NoError(t, err)

	require.NoError(t, svc.AddPermissionToUser(ctx, "bob", perm.ID))
	require.NoError(t, svc.AddPermissionToUser(ctx, "bob", perm.ID))

	users, err := svc.UsersWithPermission(ctx, perm.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.UserID{"bob"}, users)

	require.NoError(t, svc.RemovePermissionFromUser(ctx, "bob", perm.ID))
	require.NoError(t, svc.RemovePermissionFromUser(ctx, "bob", perm.ID))

	users, err = svc.UsersWithPermission(ctx, perm.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGroupGrantsReachMembers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := inmemory.New()
	svc := perms.NewService(st, st)

	group, err := st.CreateGroup(ctx, model.Group{Name: "team"})
	require.NoError(t, err)
	require.NoError(t, st.AddGroupMember(ctx, group.ID, "bob"))

	perm, err := svc.CreateReadPerm(ctx, "Shared", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.AddPermissionToGroup(ctx, group.ID, perm.ID))

	held, err := svc.HasPermission(ctx, model.Principal{ID: "bob"}, "docuvault."+perm.Codename)
	require.NoError(t, err)
	assert.True(t, held)

	ids, err := svc.AllWorkspacePermissionsUserCanRead(ctx, model.Principal{ID: "bob"})
	require.NoError(t, err)
	assert.Contains(t, ids, perm.ID)

	hasPerm, err := svc.CheckIfGroupHasPerm(ctx, group.ID, perm.ID)
	require.NoError(t, err)
	assert.True(t, hasPerm)
}

func TestAccessiblePermissionSets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := inmemory.New()
	svc := perms.NewService(st, st)

	readPerm, err := svc.CreateReadPerm(ctx, "Shared", "alice")
	require.NoError(t, err)
	writePerm, err := svc.CreateWritePerm(ctx, "Shared", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.AddPermissionToUser(ctx, "bob", readPerm.ID))

	readable, err := svc.AllWorkspacePermissionsUserCanRead(ctx, model.Principal{ID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{readPerm.ID}, readable)

	writable, err := svc.AllWorkspacePermissionsUserCanWrite(ctx, model.Principal{ID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, writable)

	// Superusers reach every workspace permission.
	readable, err = svc.AllWorkspacePermissionsUserCanRead(ctx, model.Principal{ID: "root", Superuser: true})
	require.NoError(t, err)
	assert.Contains(t, readable, readPerm.ID)
	writable, err = svc.AllWorkspacePermissionsUserCanWrite(ctx, model.Principal{ID: "root", Superuser: true})
	require.NoError(t, err)
	assert.Contains(t, writable, writePerm.ID)

	// Without an anonymous group, anonymous users have no read grants.
	readable, err = svc.AllWorkspacePermissionsUserCanRead(ctx, model.AnonymousPrincipal())
	require.NoError(t, err)
	assert.Empty(t, readable)
	writable, err = svc.AllWorkspacePermissionsUserCanWrite(ctx, model.AnonymousPrincipal())
	require.NoError(t, err)
	assert.Empty(t, writable)
}

func TestAnonymousReadsThroughAnonymousGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := inmemory.New()
	svc := perms.NewService(st, st)

	group, err := st.CreateGroup(ctx, model.Group{Name: model.AnonymousGroupName})
	require.NoError(t, err)

	perm, err := svc.CreateReadPerm(ctx, "Open Data", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.AddPermissionToGroup(ctx, group.ID, perm.ID))

	readable, err := svc.AllWorkspacePermissionsUserCanRead(ctx, model.AnonymousPrincipal())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{perm.ID}, readable)
}

func TestEnsureSystemRights(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.EnsureSystemRights(ctx))
	// Idempotent.
	require.NoError(t, svc.EnsureSystemRights(ctx))

	for _, codename := range []string{"publish_data", "publish_template", "publish_blob"} {
		perm, err := svc.GetByCodename(ctx, codename)
		require.NoError(t, err)
		assert.Equal(t, "docuvault", perm.ContentType)
	}
}
