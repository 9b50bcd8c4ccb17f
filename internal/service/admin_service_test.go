package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathwizard/internal/models"
)

func TestAdminUpdateParentBelowChildCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.registerVerifiedParent(t, "pat@example.com", 3)

	for _, u := range []string{"alice", "bob"} {
		_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: u, Username: u})
		require.NoError(t, err)
	}

	err := env.admin.UpdateParent(ctx, testAdminEmail, parent.ID, "Renamed", "pat@example.com", 1)
	requireKind(t, err, ErrValidation)
	assert.Equal(t, "Cannot reduce maximum children below current number of children", err.Error())

	stored, err := env.parents.GetParentByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat Parent", stored.Name)
	assert.Equal(t, 3, stored.MaxChildren)

	require.NoError(t, env.admin.UpdateParent(ctx, testAdminEmail, parent.ID, "Renamed", "pat@example.com", 2))
	stored, err = env.parents.GetParentByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, 2, stored.MaxChildren)
}

func TestAdminUpdateParentEmailChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.registerVerifiedParent(t, "pat@example.com", 2)
	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	_, err = env.auth.RegisterSchool(ctx, RegisterSchoolInput{
		SchoolName: "Hilltop", AdminEmail: "head@hilltop.sch", Password: "password123",
	})
	require.NoError(t, err)

	err = env.admin.UpdateParent(ctx, testAdminEmail, parent.ID, "Pat", "head@hilltop.sch", 2)
	requireKind(t, err, ErrConflict)

	require.NoError(t, env.admin.UpdateParent(ctx, testAdminEmail, parent.ID, "Pat", "New@Example.com", 2))

	owner, err := env.children.GetRosterOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", owner)

	p, err := env.auth.Login(ctx, "new@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, p.Children)
}

func TestAdminUpdateParentNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.admin.UpdateParent(context.Background(), testAdminEmail, "missing", "Pat", "pat@example.com", 1)
	requireKind(t, err, ErrNotFound)
}

func TestAdminUpdateSchoolIsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	school, err := env.auth.RegisterSchool(ctx, RegisterSchoolInput{
		SchoolName: "Hilltop", AdminEmail: "head@hilltop.sch", Password: "password123", NumberOfTeachers: 2,
	})
	require.NoError(t, err)

	require.NoError(t, env.admin.UpdateSchool(ctx, testAdminEmail, school.ID, "Hilltop Primary", "head@hilltop.sch", 5))

	logs, err := env.admin.ListSystemLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogTypeEdit, logs[0].Type)
	assert.Equal(t, school.ID, logs[0].TargetID)
	assert.Equal(t, "school", logs[0].TargetType)
	assert.Equal(t, testAdminEmail, logs[0].AdminEmail)
	assert.Contains(t, logs[0].Details, "before")
	assert.Contains(t, logs[0].Details, "after")

	stored, err := env.schools.GetSchoolByID(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hilltop Primary", stored.SchoolName)
	assert.Equal(t, 5, stored.NumberOfTeachers)
}

func TestAdminDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.registerVerifiedParent(t, "pat@example.com", 1)
	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)

	school, err := env.auth.RegisterSchool(ctx, RegisterSchoolInput{
		SchoolName: "Hilltop", AdminEmail: "head@hilltop.sch", Password: "password123",
	})
	require.NoError(t, err)

	role, err := env.admin.DeleteUser(ctx, testAdminEmail, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, role)

	role, err = env.admin.DeleteUser(ctx, testAdminEmail, school.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSchool, role)

	_, err = env.admin.DeleteUser(ctx, testAdminEmail, parent.ID)
	requireKind(t, err, ErrNotFound)

	alice, err := env.children.GetChildByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, alice, "children survive their parent's deletion")

	users, err := env.admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	logs, err := env.admin.ListSystemLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, models.LogTypeDeletion, entry.Type)
	}
}

func TestAdminListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 2)
	_, err := env.auth.RegisterSchool(ctx, RegisterSchoolInput{
		SchoolName: "Hilltop", AdminEmail: "head@hilltop.sch", Password: "password123", NumberOfTeachers: 4,
	})
	require.NoError(t, err)

	users, err := env.admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, models.RoleParent, users[0].Role)
	require.NotNil(t, users[0].MaxChildren)
	assert.Equal(t, 2, *users[0].MaxChildren)
	assert.Nil(t, users[0].NumberOfTeachers)

	assert.Equal(t, models.RoleSchool, users[1].Role)
	require.NotNil(t, users[1].NumberOfTeachers)
	assert.Equal(t, 4, *users[1].NumberOfTeachers)
}
