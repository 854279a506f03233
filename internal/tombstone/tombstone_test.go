package tombstone

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tombstones.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			deleted, err := repo.WasDeleted(ctx, "Tech", "direct:http://a/feed")
			require.NoError(t, err)
			assert.False(t, deleted)

			require.NoError(t, repo.Record(ctx, "Tech", "direct:http://a/feed"))
			require.NoError(t, repo.Record(ctx, "Tech", "direct:http://a/feed"))
			require.NoError(t, repo.Record(ctx, "Art", "search:paint"))

			deleted, err = repo.WasDeleted(ctx, "Tech", "direct:http://a/feed")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = repo.WasDeleted(ctx, "News", "direct:http://a/feed")
			require.NoError(t, err)
			assert.False(t, deleted, "records are scoped to a guide")

			entries, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "Art", entries[0].GuideTitle)
			assert.Equal(t, "Tech", entries[1].GuideTitle)

			require.NoError(t, repo.Purge(ctx))
			entries, err = repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tombstones.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(ctx, "Tech", "query:pinned:"))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	deleted, err := db.WasDeleted(ctx, "Tech", "query:pinned:")
	require.NoError(t, err)
	assert.True(t, deleted)
}
