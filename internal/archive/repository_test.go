package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archiver/service/internal/db"
)

// Integration test; requires a disposable Postgres database.
func TestRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("CONTENT_ARCHIVER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CONTENT_ARCHIVER_TEST_DATABASE_URL not set; skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, db.Migrate(dsn, zap.NewNop()))
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	key := "it/" + uuid.NewString() + ".png"
	fetchedAt := time.Now().UTC().Truncate(time.Microsecond)

	first := Record{
		ID: uuid.NewString(), Bucket: "archive", Key: key, Source: "http://origin/a.png",
		Location: "http://cdn/archive/" + key, ContentType: "image/png", ContentLength: 1024,
		Bytes: 1024, Public: true, FetchedAt: fetchedAt,
	}
	second := first
	second.ID = uuid.NewString()
	second.ContentType = ""
	second.ContentLength = -1
	second.Public = false

	require.NoError(t, repo.Record(ctx, first))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Record(ctx, second))

	got, err := repo.List(ctx, ListFilter{Key: key, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, second.ID, got[0].ID)
	assert.Empty(t, got[0].ContentType)
	assert.Equal(t, int64(-1), got[0].ContentLength)
	assert.False(t, got[0].Public)

	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, "image/png", got[1].ContentType)
	assert.Equal(t, int64(1024), got[1].ContentLength)
	assert.True(t, got[1].FetchedAt.Equal(fetchedAt))
	assert.False(t, got[1].CreatedAt.IsZero())

	limited, err := repo.List(ctx, ListFilter{Key: key, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
