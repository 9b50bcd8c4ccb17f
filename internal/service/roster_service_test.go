package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathwizard/internal/credentials"
	"mathwizard/internal/models"
)

func TestAddChildQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 1)

	creds, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	assert.Regexp(t, `^[A-Z][a-z]+[0-9]{4}$`, creds.Password)

	_, err = env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Bob", Username: "bob"})
	requireKind(t, err, ErrQuotaExceeded)

	children, err := env.roster.ListChildren(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, children)

	bob, err := env.children.GetChildByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, bob)
}

func TestAddChildDefaultsAndCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 3)

	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)
	_, err = env.roster.AddChild(ctx, "pat@example.com", AddChildInput{
		Name: "Bob", Username: "bob", Password: "chosenpw", Year: "Year 3",
	})
	require.NoError(t, err)

	alice, err := env.roster.GetChild(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultYear, alice.Year)
	assert.Equal(t, models.DefaultYearGroup, alice.YearGroup)
	assert.Equal(t, credentials.Hashed, credentials.Parse(alice.Password).Kind)

	bob, err := env.roster.GetChild(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "year3", bob.Year)
	assert.Equal(t, 3, bob.YearGroup)

	p, err := env.auth.LoginChild(ctx, "bob", "chosenpw")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
}

func TestAddChildErrorOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "full@example.com", 0)
	env.registerVerifiedParent(t, "other@example.com", 2)

	_, err := env.roster.AddChild(ctx, "other@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		parent string
		input  AddChildInput
		kind   error
	}{
		{name: "unknown parent", parent: "ghost@example.com", input: AddChildInput{Name: "Zed", Username: "zed"}, kind: ErrNotFound},
		{name: "taken username beats quota", parent: "full@example.com", input: AddChildInput{Name: "Alice", Username: "alice"}, kind: ErrConflict},
		{name: "quota", parent: "full@example.com", input: AddChildInput{Name: "Zed", Username: "zed"}, kind: ErrQuotaExceeded},
		{name: "invalid username", parent: "other@example.com", input: AddChildInput{Name: "Zed", Username: "z!"}, kind: ErrValidation},
		{name: "missing name", parent: "other@example.com", input: AddChildInput{Username: "zed"}, kind: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.roster.AddChild(ctx, tt.parent, tt.input)
			requireKind(t, err, tt.kind)
		})
	}
}

func TestAddChildConcurrentRespectsQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 2)

	names := []string{"amy", "ben", "cat", "dan", "eve", "fin"}
	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: name, Username: name})
		}(i, name)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 2, succeeded)

	children, err := env.roster.ListChildren(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestRemoveChild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 2)
	env.registerVerifiedParent(t, "other@example.com", 2)

	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)
	_, err = env.roster.AddChild(ctx, "other@example.com", AddChildInput{Name: "Bob", Username: "bob"})
	require.NoError(t, err)

	t.Run("absent username", func(t *testing.T) {
		requireKind(t, env.roster.RemoveChild(ctx, "pat@example.com", "zed"), ErrForbidden)
	})

	t.Run("another parent's child", func(t *testing.T) {
		requireKind(t, env.roster.RemoveChild(ctx, "pat@example.com", "bob"), ErrForbidden)
		bob, err := env.children.GetChildByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.NotNil(t, bob)
	})

	t.Run("own child", func(t *testing.T) {
		require.NoError(t, env.roster.RemoveChild(ctx, "pat@example.com", "alice"))
		children, err := env.roster.ListChildren(ctx, "pat@example.com")
		require.NoError(t, err)
		assert.Empty(t, children)
		_, err = env.roster.GetChild(ctx, "alice")
		requireKind(t, err, ErrNotFound)
	})

	children, err := env.roster.ListChildren(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, children)
}

func TestRecordProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 1)
	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	requireKind(t, env.roster.RecordProgress(ctx, "alice", "Fractions", 101), ErrValidation)
	requireKind(t, env.roster.RecordProgress(ctx, "alice", "", 50), ErrValidation)
	requireKind(t, env.roster.RecordProgress(ctx, "ghost", "Fractions", 50), ErrNotFound)

	require.NoError(t, env.roster.RecordProgress(ctx, "alice", "Fractions", 80))
	require.NoError(t, env.roster.RecordProgress(ctx, "alice", "Decimals", 0))

	child, err := env.roster.GetChild(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, child.Progress, 2)
	assert.Equal(t, "Fractions", child.Progress[0].Topic)
	assert.Equal(t, 80, child.Progress[0].Score)
}

func TestCanAccessChild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 1)
	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal *models.Principal
		allowed   bool
	}{
		{name: "admin", principal: &models.Principal{Role: models.RoleAdmin}, allowed: true},
		{name: "owning parent", principal: &models.Principal{Role: models.RoleParent, Email: "pat@example.com"}, allowed: true},
		{name: "other parent", principal: &models.Principal{Role: models.RoleParent, Email: "other@example.com"}, allowed: false},
		{name: "child self", principal: &models.Principal{Role: models.RoleChild, Username: "alice"}, allowed: true},
		{name: "other child", principal: &models.Principal{Role: models.RoleChild, Username: "bob"}, allowed: false},
		{name: "school", principal: &models.Principal{Role: models.RoleSchool, Email: "pat@example.com"}, allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.roster.CanAccessChild(ctx, tt.principal, "alice")
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestOwnerOf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 2)

	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	owner, err := env.roster.OwnerOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", owner)

	_, err = env.roster.OwnerOf(ctx, "nobody")
	requireKind(t, err, ErrNotFound)
}
