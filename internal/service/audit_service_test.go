package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathwizard/internal/models"
)

func TestAuditRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ok := env.audit.Record(ctx, models.LogTypeEdit, "Parent account updated", testAdminEmail, "p1", "parent",
		map[string]any{"field": "name"})
	assert.True(t, ok)

	assert.False(t, env.audit.Record(ctx, models.LogType("bogus"), "x", testAdminEmail, "", "", nil))

	logs, err := env.audit.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Parent account updated", logs[0].Message)
	assert.Equal(t, "name", logs[0].Details["field"])
}

func TestAuditRecordSwallowsStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close())

	assert.False(t, env.audit.Record(context.Background(), models.LogTypeError, "boom", testAdminEmail, "", "", nil))
}

func TestAuditListRecentCapsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 105; i++ {
		require.True(t, env.audit.Record(ctx, models.LogTypeEdit, fmt.Sprintf("entry %d", i), testAdminEmail, "", "", nil))
	}

	logs, err := env.audit.ListRecent(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, logs, 100)

	logs, err = env.audit.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
