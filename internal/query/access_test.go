package query_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-server/internal/model"
	"github.com/docuvault/docuvault-server/internal/query"
)

func TestCheckUserFilter(t *testing.T) {
	t.Parallel()

	principal := model.Principal{ID: "alice"}

	tests := []struct {
		name      string
		filter    []model.UserID
		expectErr bool
	}{
		{name: "empty filter passes", filter: nil},
		{name: "own id passes", filter: []model.UserID{"alice"}},
		{name: "foreign id rejected", filter: []model.UserID{"bob"}, expectErr: true},
		{name: "own id mixed with foreign rejected", filter: []model.UserID{"alice", "bob"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := query.CheckUserFilter(tt.filter, principal)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, model.IsAccessControlError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckWorkspaceFilter(t *testing.T) {
	t.Parallel()

	wsA := uuid.New()
	wsB := uuid.New()
	accessible := []uuid.UUID{wsA}

	tests := []struct {
		name      string
		filter    []*uuid.UUID
		expectErr bool
	}{
		{name: "empty filter passes", filter: nil},
		{name: "accessible workspace passes", filter: []*uuid.UUID{&wsA}},
		{name: "inaccessible workspace rejected", filter: []*uuid.UUID{&wsB}, expectErr: true},
		{name: "nil ref rejected", filter: []*uuid.UUID{nil}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := query.CheckWorkspaceFilter(tt.filter, accessible)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, model.IsAccessControlError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccessibleCriteria(t *testing.T) {
	t.Parallel()

	wsA := uuid.New()
	wsB := uuid.New()
	alice := model.Principal{ID: "alice"}

	t.Run("default scope is accessible workspaces or own documents", func(t *testing.T) {
		t.Parallel()
		c, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA}, nil, nil)
		require.NoError(t, err)

		inWs := model.Document{Owner: "bob", Workspace: &wsA}
		own := model.Document{Owner: "alice"}
		foreign := model.Document{Owner: "bob"}
		assert.True(t, query.Matches(c, inWs))
		assert.True(t, query.Matches(c, own))
		assert.False(t, query.Matches(c, foreign))
	})

	t.Run("workspace filter narrows the accessible set", func(t *testing.T) {
		t.Parallel()
		c, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA, wsB}, []*uuid.UUID{&wsA}, nil)
		require.NoError(t, err)

		inA := model.Document{Owner: "bob", Workspace: &wsA}
		inB := model.Document{Owner: "bob", Workspace: &wsB}
		// With an explicit workspace filter the caller's own unassigned
		// documents are not added back in.
		own := model.Document{Owner: "alice"}
		assert.True(t, query.Matches(c, inA))
		assert.False(t, query.Matches(c, inB))
		assert.False(t, query.Matches(c, own))
	})

	t.Run("user filter conjoins ownership", func(t *testing.T) {
		t.Parallel()
		c, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA}, []*uuid.UUID{&wsA}, []model.UserID{"alice"})
		require.NoError(t, err)

		ownInA := model.Document{Owner: "alice", Workspace: &wsA}
		foreignInA := model.Document{Owner: "bob", Workspace: &wsA}
		assert.True(t, query.Matches(c, ownInA))
		assert.False(t, query.Matches(c, foreignInA))
	})

	t.Run("user filter alone selects own documents everywhere", func(t *testing.T) {
		t.Parallel()
		c, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA}, nil, []model.UserID{"alice"})
		require.NoError(t, err)

		assert.True(t, query.Matches(c, model.Document{Owner: "alice"}))
		assert.True(t, query.Matches(c, model.Document{Owner: "alice", Workspace: &wsB}))
		assert.False(t, query.Matches(c, model.Document{Owner: "bob", Workspace: &wsA}))
	})

	t.Run("foreign user filter is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA}, nil, []model.UserID{"bob"})
		require.Error(t, err)
		assert.True(t, model.IsAccessControlError(err))
	})

	t.Run("inaccessible workspace filter is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := query.AccessibleCriteria(alice, []uuid.UUID{wsA}, []*uuid.UUID{&wsB}, nil)
		require.Error(t, err)
		assert.True(t, model.IsAccessControlError(err))
	})

	t.Run("superuser gets explicit filters only", func(t *testing.T) {
		t.Parallel()
		root := model.Principal{ID: "root", Superuser: true}

		c, err := query.AccessibleCriteria(root, nil, nil, nil)
		require.NoError(t, err)
		assert.True(t, query.Matches(c, model.Document{Owner: "anyone"}))

		c, err = query.AccessibleCriteria(root, nil, []*uuid.UUID{&wsA, nil}, nil)
		require.NoError(t, err)
		assert.True(t, query.Matches(c, model.Document{Owner: "bob", Workspace: &wsA}))
		assert.True(t, query.Matches(c, model.Document{Owner: "bob"}))
		assert.False(t, query.Matches(c, model.Document{Owner: "bob", Workspace: &wsB}))

		c, err = query.AccessibleCriteria(root, nil, nil, []model.UserID{"bob"})
		require.NoError(t, err)
		assert.True(t, query.Matches(c, model.Document{Owner: "bob"}))
		assert.False(t, query.Matches(c, model.Document{Owner: "carol"}))
	})

	t.Run("anonymous principal is limited to accessible workspaces", func(t *testing.T) {
		t.Parallel()
		c, err := query.AccessibleCriteria(model.AnonymousPrincipal(), []uuid.UUID{wsA}, nil, nil)
		require.NoError(t, err)
		assert.True(t, query.Matches(c, model.Document{Owner: "bob", Workspace: &wsA}))
		assert.False(t, query.Matches(c, model.Document{Owner: "bob"}))
	})
}

func TestAddAccessCriteria(t *testing.T) {
	t.Parallel()

	wsA := uuid.New()
	alice := model.Principal{ID: "alice"}

	base := query.KindIs{Kind: model.KindData}
	c, err := query.AddAccessCriteria(base, alice, []uuid.UUID{wsA}, nil, nil)
	require.NoError(t, err)

	ownData := model.Document{Owner: "alice", Kind: model.KindData}
	ownTemplate := model.Document{Owner: "alice", Kind: model.KindTemplate}
	foreignData := model.Document{Owner: "bob", Kind: model.KindData}
	assert.True(t, query.Matches(c, ownData))
	assert.False(t, query.Matches(c, ownTemplate))
	assert.False(t, query.Matches(c, foreignData))
}

func TestConjoin(t *testing.T) {
	t.Parallel()

	kind := query.KindIs{Kind: model.KindData}

	assert.Equal(t, query.All{}, query.Conjoin(nil, nil))
	assert.Equal(t, query.Criteria(kind), query.Conjoin(nil, kind))
	assert.Equal(t, query.Criteria(kind), query.Conjoin(kind, query.All{}))
	assert.Equal(t, query.Criteria(query.And{kind, kind}), query.Conjoin(kind, kind))
}
