package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerifiedParent(t, "pat@example.com", 2)

	_, err := env.roster.AddChild(ctx, "pat@example.com", AddChildInput{Name: "Alice", Username: "alice"})
	require.NoError(t, err)
	_, err = env.partner.AddPartner(ctx, "pat@example.com", "Jo", "jo@example.com", "password123")
	require.NoError(t, err)
	_, err = env.auth.RegisterSchool(ctx, RegisterSchoolInput{
		SchoolName: "Hill Primary",
		AdminEmail: "office@hill.example",
		Password:   "password123",
	})
	require.NoError(t, err)

	backups := NewBackupService(env.parents, env.partners, env.schools, env.children, env.logs, "sqlite")

	var buf bytes.Buffer
	require.NoError(t, backups.ExportToWriter(ctx, &buf))

	var data BackupData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, backupVersion, data.Version)
	assert.Equal(t, "sqlite", data.DatabaseType)

	require.Len(t, data.Parents, 1)
	assert.Equal(t, []string{"alice"}, data.Parents[0].Children)
	require.Len(t, data.Parents[0].Partners, 1)
	assert.NotEqual(t, "password123", data.Parents[0].Partners[0].Password)

	require.Len(t, data.Schools, 1)
	assert.Equal(t, "Hill Primary", data.Schools[0].SchoolName)

	require.Len(t, data.Children, 1)
	assert.Equal(t, "pat@example.com", data.Children[0].ParentEmail)
}

func TestBackupExportToFile(t *testing.T) {
	env := newTestEnv(t)
	backups := NewBackupService(env.parents, env.partners, env.schools, env.children, env.logs, "sqlite")

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, backups.Export(context.Background(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data BackupData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Empty(t, data.Parents)
	assert.Empty(t, data.Children)
}
