package draft_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/stretchr/testify/assert"
)

func getDB(t *testing.T, assert *assert.Assertions) (*draft.Database, string) {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "draft.sqlite")

	database, err := draft.NewDatabase(context.Background(), filename)
	assert.NotNil(database)
	assert.Nil(err)

	t.Cleanup(func() { database.Close() })

	return database, filename
}

func TestNewDatabaseBadFile(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	database, err := draft.NewDatabase(context.Background(), "/dev/null/asdflkjdsal.sqlite")
	assert.Nil(database)
	assert.NotNil(err)
}

func TestNewDatabaseCreatesDirectory(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	filename := filepath.Join(t.TempDir(), "nested", "taskboard", "draft.sqlite")

	database, err := draft.NewDatabase(context.Background(), filename)
	assert.Nil(err)
	assert.Nil(database.Close())
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	database, _ := getDB(t, assert)

	payload, err := database.Load(context.Background())
	assert.Nil(payload)
	assert.ErrorIs(err, draft.ErrNoDraft)
}

func TestSaveOverwritesSlot(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	database, _ := getDB(t, assert)

	assert.Nil(database.Save(ctx, []byte(`{"title":"first"}`)))
	assert.Nil(database.Save(ctx, []byte(`{"title":"second"}`)))

	payload, err := database.Load(ctx)
	assert.Nil(err)
	assert.Equal(`{"title":"second"}`, string(payload))
}

func TestDraftSurvivesReopen(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	database, filename := getDB(t, assert)
	assert.Nil(database.Save(ctx, []byte(`{"title":"keep me"}`)))
	assert.Nil(database.Close())

	database2, err := draft.NewDatabase(ctx, filename)
	assert.Nil(err)

	defer database2.Close()

	payload, err := database2.Load(ctx)
	assert.Nil(err)
	assert.Equal(`{"title":"keep me"}`, string(payload))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	database, _ := getDB(t, assert)

	// removing nothing is fine
	assert.Nil(database.Remove(ctx))

	assert.Nil(database.Save(ctx, []byte(`{}`)))
	assert.Nil(database.Remove(ctx))

	_, err := database.Load(ctx)
	assert.ErrorIs(err, draft.ErrNoDraft)
}

func TestMemory(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	store := &draft.Memory{}

	_, err := store.Load(ctx)
	assert.ErrorIs(err, draft.ErrNoDraft)

	assert.Nil(store.Save(ctx, []byte("x")))

	payload, err := store.Load(ctx)
	assert.Nil(err)
	assert.Equal("x", string(payload))

	assert.Nil(store.Remove(ctx))

	_, err = store.Load(ctx)
	assert.ErrorIs(err, draft.ErrNoDraft)
}
