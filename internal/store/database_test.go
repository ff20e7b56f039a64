package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := Migrations()

	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/001_create_sessions.sql",
		"migrations/002_create_draft_snapshots.sql",
	}, names)

	for _, name := range names {
		content, err := migrationFS.ReadFile(name)
		require.NoError(t, err)
		assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS")
	}
}
