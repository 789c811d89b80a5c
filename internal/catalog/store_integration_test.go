package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/log"
	"github.com/metalsur/catalogo/internal/testutil"
)

// vec768 builds a unit-ish 768-dim vector pointing mostly along axis i.
// Cosine distance between vectors on different axes is maximal, so search
// ordering in the tests is unambiguous.
func vec768(axis int) []float32 {
	v := make([]float32, 768)
	v[axis%768] = 1
	return v
}

func TestStoreIntegration_AddAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := catalog.New(testDB.Pool, log.NewNop())

	entries := []struct {
		entry catalog.Entry
		axis  int
	}{
		{catalog.Entry{ID: "EJ-100", Content: "Codigo: EJ-100\nNombre: Eje templado", Metadata: map[string]string{"categoria": "ejes"}}, 0},
		{catalog.Entry{ID: "BU-200", Content: "Codigo: BU-200\nNombre: Buje de bronce", Metadata: map[string]string{"categoria": "bujes"}}, 1},
		{catalog.Entry{ID: "PL-300", Content: "Codigo: PL-300\nNombre: Plancha de acero", Metadata: map[string]string{"categoria": "planchas"}}, 2},
	}
	for _, e := range entries {
		require.NoError(t, store.Add(ctx, e.entry, vec768(e.axis)))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// A query on axis 1 must rank the axis-1 entry first.
	got, err := store.Search(ctx, vec768(1), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BU-200", got[0].ID)
	assert.Equal(t, "bujes", got[0].Metadata["categoria"])

	// k larger than the index returns everything that exists.
	got, err = store.Search(ctx, vec768(0), 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "EJ-100", got[0].ID)
}

func TestStoreIntegration_AddUpsertsByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := catalog.New(testDB.Pool, log.NewNop())

	require.NoError(t, store.Add(ctx, catalog.Entry{ID: "EJ-100", Content: "primera versión"}, vec768(0)))
	require.NoError(t, store.Add(ctx, catalog.Entry{ID: "EJ-100", Content: "segunda versión"}, vec768(0)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Search(ctx, vec768(0), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "segunda versión", got[0].Content)
}

func TestStoreIntegration_EmbeddingSpace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := catalog.New(testDB.Pool, log.NewNop())

	// Before ingest the space is unregistered and serving must refuse.
	_, err := store.Space(ctx)
	assert.ErrorIs(t, err, catalog.ErrSpaceUnregistered)
	assert.ErrorIs(t, store.VerifySpace(ctx, "nomic-embed-text", 768), catalog.ErrSpaceUnregistered)

	require.NoError(t, store.RegisterSpace(ctx, "nomic-embed-text", 768))

	sp, err := store.Space(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", sp.EmbedderModel)
	assert.Equal(t, 768, sp.Dimension)
	assert.False(t, sp.RegisteredAt.IsZero())

	assert.NoError(t, store.VerifySpace(ctx, "nomic-embed-text", 768))

	// A different model or dimension is a hard mismatch.
	err = store.VerifySpace(ctx, "mxbai-embed-large", 768)
	assert.ErrorIs(t, err, catalog.ErrSpaceMismatch)
	err = store.VerifySpace(ctx, "nomic-embed-text", 1024)
	assert.ErrorIs(t, err, catalog.ErrSpaceMismatch)

	// Re-registering replaces the previous space; the single row is kept.
	require.NoError(t, store.RegisterSpace(ctx, "mxbai-embed-large", 1024))
	assert.NoError(t, store.VerifySpace(ctx, "mxbai-embed-large", 1024))
	assert.True(t, errors.Is(store.VerifySpace(ctx, "nomic-embed-text", 768), catalog.ErrSpaceMismatch))
}
